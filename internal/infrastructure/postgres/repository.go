package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"vn.io.arda/notifeed/internal/domain"
)

// Repository reads the Notification Service's table directly. It implements
// domain.NotificationService for deployments that share its database.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new postgres Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// History fetches one page of a user's notifications, newest first. page is 1-based.
func (r *Repository) History(ctx context.Context, userID string, page, limit int) ([]domain.StoredNotification, error) {
	if page < 1 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, title, body, type, created_at, is_read
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var results []domain.StoredNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return results, nil
}

// Delete removes a notification by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("delete notification: invalid id %q: %w", id, err)
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete notification %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanNotification(row scannable) (domain.StoredNotification, error) {
	var n domain.StoredNotification
	if err := row.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.CreatedAt, &n.IsRead); err != nil {
		return domain.StoredNotification{}, fmt.Errorf("scan notification: %w", err)
	}
	return n, nil
}
