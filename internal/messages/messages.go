// Package messages holds the notification texts the gateway writes itself:
// local notices and the translations of back-office domain events.
package messages

// ─── Session ─────────────────────────────────────────────────────────────────

const (
	LoggedOutTitle = "Signed out"
	LoggedOutBody  = "You have been signed out of the dashboard."

	RoleChangedTitle = "Role changed"
	RoleChangedBody  = "You are now signed in as %s. Your feed has been reloaded."
)

// ─── Bookings ────────────────────────────────────────────────────────────────

const (
	BookingCreatedTitle = "New booking"
	BookingCreatedBody  = "Booking %s was created for %s."

	BookingConfirmedTitle = "Booking confirmed"
	BookingConfirmedBody  = "Booking %s has been confirmed."

	BookingCancelledTitle = "Booking cancelled"
	BookingCancelledBody  = "Booking %s was cancelled: %s."

	DepositPendingTitle = "Deposit pending"
	DepositPendingBody  = "Booking %s is waiting for a deposit of %.2f."
)

// ─── Payments ────────────────────────────────────────────────────────────────

const (
	PaymentReceivedTitle = "Payment received"
	PaymentReceivedBody  = "Payment of %.2f received for %s."

	PaymentFailedTitle = "Payment failed"
	PaymentFailedBody  = "Payment for %s failed: %s."
)

// ─── Dispatch ────────────────────────────────────────────────────────────────

const (
	DispatchAssignedTitle = "Dispatch assigned"
	DispatchAssignedBody  = "Dispatch %s assigned to vehicle %s."

	DispatchDelayedTitle = "Dispatch delayed"
	DispatchDelayedBody  = "Dispatch %s is delayed by %d minutes."
)

// ─── Driver ──────────────────────────────────────────────────────────────────

const (
	TripAssignedTitle = "New trip"
	TripAssignedBody  = "Trip %s has been assigned to you, pickup at %s."

	ExpenseReviewedTitle = "Expense reviewed"
	ExpenseReviewedBody  = "Your expense claim %s was %s."

	LeaveReviewedTitle = "Leave request reviewed"
	LeaveReviewedBody  = "Your leave request from %s was %s."
)

// ─── Staff ───────────────────────────────────────────────────────────────────

const (
	ApprovalRequiredTitle = "Approval required"
	ApprovalRequiredBody  = "%s from %s is waiting for your approval."
)
