package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"vn.io.arda/notifeed/internal/domain"
)

// NotificationClient implements domain.NotificationService over the
// Notification Service REST API.
type NotificationClient struct {
	client
}

// NewNotificationClient creates a client for baseURL. timeout <= 0 uses 10s.
func NewNotificationClient(baseURL string, timeout time.Duration) *NotificationClient {
	return &NotificationClient{client: newClient(baseURL, timeout)}
}

// History calls GET /notifications?userId=&page=&limit=.
func (c *NotificationClient) History(ctx context.Context, userID string, page, limit int) ([]domain.StoredNotification, error) {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out list[domain.StoredNotification]
	if err := c.do(ctx, http.MethodGet, "/notifications?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("notification history: %w", err)
	}
	return out, nil
}

// Delete calls DELETE /notifications/{id}.
func (c *NotificationClient) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("notification delete: %w", err)
	}
	return nil
}
