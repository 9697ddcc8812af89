package domain

import (
	"context"
	"time"
)

// NotificationService is the port to the persisted-notification backend.
// Implementations live in infrastructure/rest and infrastructure/postgres.
type NotificationService interface {
	// History returns one page of the user's notifications, newest first.
	History(ctx context.Context, userID string, page, limit int) ([]StoredNotification, error)

	// Delete removes a notification by its backend id.
	Delete(ctx context.Context, id string) error
}

// DashboardService is the port to the role-gated dashboard aggregates.
type DashboardService interface {
	Dashboard(ctx context.Context, branchID string) (*Dashboard, error)
	AwaitingDeposit(ctx context.Context) ([]Booking, error)
}

// Dashboard is the aggregate state shown in the coordinator/manager/admin panel.
type Dashboard struct {
	Alerts           []Alert           `json:"alerts"`
	PendingApprovals []PendingApproval `json:"pendingApprovals"`
}

type Alert struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type PendingApproval struct {
	ID          string    `json:"id"`
	Kind        string    `json:"type"`
	RequestedBy string    `json:"requestedBy"`
	Summary     string    `json:"summary"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Booking is a booking still waiting for its deposit.
type Booking struct {
	ID        string    `json:"id"`
	Reference string    `json:"reference"`
	Customer  string    `json:"customerName"`
	Amount    float64   `json:"depositAmount"`
	DueAt     time.Time `json:"dueAt"`
}
