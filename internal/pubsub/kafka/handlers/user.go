package handlers

import (
	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/messages"
	"vn.io.arda/notifeed/internal/pubsub/kafka/registry"
)

func init() {
	Register(registry.UserGroup, "TRIP_ASSIGNED", handleTripAssigned)
	Register(registry.UserGroup, "EXPENSE_REVIEWED", handleExpenseReviewed)
	Register(registry.UserGroup, "LEAVE_REVIEWED", handleLeaveReviewed)
	Register(registry.UserGroup, "APPROVAL_REQUIRED", handleApprovalRequired)
}

func handleTripAssigned(env registry.Envelope) *registry.Notification {
	var p struct {
		TripID    string `json:"tripId"`
		Reference string `json:"reference"`
		Pickup    string `json:"pickup"`
	}
	if !decode(env, &p) || p.Reference == "" {
		return nil
	}
	title, body := messages.TripAssigned(p.Reference, p.Pickup)
	return notification(domain.CategoryTripAssigned, title, body, map[string]any{"tripId": p.TripID})
}

func handleExpenseReviewed(env registry.Envelope) *registry.Notification {
	var p struct {
		ClaimID   string `json:"claimId"`
		Reference string `json:"reference"`
		Outcome   string `json:"outcome"`
	}
	if !decode(env, &p) || p.Reference == "" || p.Outcome == "" {
		return nil
	}
	title, body := messages.ExpenseReviewed(p.Reference, p.Outcome)
	return notification(domain.CategoryExpenseStatus, title, body, map[string]any{"claimId": p.ClaimID, "outcome": p.Outcome})
}

func handleLeaveReviewed(env registry.Envelope) *registry.Notification {
	var p struct {
		RequestID string `json:"requestId"`
		From      string `json:"from"`
		Outcome   string `json:"outcome"`
	}
	if !decode(env, &p) || p.Outcome == "" {
		return nil
	}
	title, body := messages.LeaveReviewed(p.From, p.Outcome)
	return notification(domain.CategoryLeaveStatus, title, body, map[string]any{"requestId": p.RequestID, "outcome": p.Outcome})
}

func handleApprovalRequired(env registry.Envelope) *registry.Notification {
	var p struct {
		ApprovalID  string `json:"approvalId"`
		Kind        string `json:"kind"`
		RequestedBy string `json:"requestedBy"`
	}
	if !decode(env, &p) || p.Kind == "" {
		return nil
	}
	title, body := messages.ApprovalRequired(p.Kind, p.RequestedBy)
	return notification(domain.CategoryApproval, title, body, map[string]any{"approvalId": p.ApprovalID})
}
