package messages

import (
	"fmt"
	"strings"
)

// ─── Session builders ────────────────────────────────────────────────────────

func LoggedOut() (string, string) {
	return LoggedOutTitle, LoggedOutBody
}

func RoleChanged(role string) (string, string) {
	return RoleChangedTitle, fmt.Sprintf(RoleChangedBody, strings.ToLower(role))
}

// ─── Booking builders ────────────────────────────────────────────────────────

func BookingCreated(reference, customer string) (string, string) {
	return BookingCreatedTitle, fmt.Sprintf(BookingCreatedBody, reference, customer)
}

func BookingConfirmed(reference string) (string, string) {
	return BookingConfirmedTitle, fmt.Sprintf(BookingConfirmedBody, reference)
}

func BookingCancelled(reference, reason string) (string, string) {
	return BookingCancelledTitle, fmt.Sprintf(BookingCancelledBody, reference, orUnknown(reason))
}

func DepositPending(reference string, amount float64) (string, string) {
	return DepositPendingTitle, fmt.Sprintf(DepositPendingBody, reference, amount)
}

// ─── Payment builders ────────────────────────────────────────────────────────

func PaymentReceived(amount float64, reference string) (string, string) {
	return PaymentReceivedTitle, fmt.Sprintf(PaymentReceivedBody, amount, reference)
}

func PaymentFailed(reference, reason string) (string, string) {
	return PaymentFailedTitle, fmt.Sprintf(PaymentFailedBody, reference, orUnknown(reason))
}

// ─── Dispatch builders ───────────────────────────────────────────────────────

func DispatchAssigned(dispatch, vehicle string) (string, string) {
	return DispatchAssignedTitle, fmt.Sprintf(DispatchAssignedBody, dispatch, vehicle)
}

func DispatchDelayed(dispatch string, minutes int) (string, string) {
	return DispatchDelayedTitle, fmt.Sprintf(DispatchDelayedBody, dispatch, minutes)
}

// ─── Driver builders ─────────────────────────────────────────────────────────

func TripAssigned(trip, pickup string) (string, string) {
	return TripAssignedTitle, fmt.Sprintf(TripAssignedBody, trip, orUnknown(pickup))
}

func ExpenseReviewed(claim, outcome string) (string, string) {
	return ExpenseReviewedTitle, fmt.Sprintf(ExpenseReviewedBody, claim, strings.ToLower(outcome))
}

func LeaveReviewed(from, outcome string) (string, string) {
	return LeaveReviewedTitle, fmt.Sprintf(LeaveReviewedBody, from, strings.ToLower(outcome))
}

// ─── Staff builders ──────────────────────────────────────────────────────────

func ApprovalRequired(kind, requester string) (string, string) {
	return ApprovalRequiredTitle, fmt.Sprintf(ApprovalRequiredBody, kind, requester)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
