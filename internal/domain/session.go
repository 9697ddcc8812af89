package domain

import "strings"

// Role is the back-office role of the signed-in user.
type Role string

const (
	RoleDriver      Role = "DRIVER"
	RoleCoordinator Role = "COORDINATOR"
	RoleManager     Role = "MANAGER"
	RoleAdmin       Role = "ADMIN"
	RoleConsultant  Role = "CONSULTANT"
)

// ParseRole normalises a role claim; unrecognised values are preserved.
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// Known reports whether r is one of the roles the dashboard defines.
func (r Role) Known() bool {
	switch r {
	case RoleDriver, RoleCoordinator, RoleManager, RoleAdmin, RoleConsultant:
		return true
	}
	return false
}

// SeesDashboard reports whether r gets the alerts/approvals panel.
func (r Role) SeesDashboard() bool {
	return r == RoleCoordinator || r == RoleManager || r == RoleAdmin
}

// Session is the identity the feed is scoped to.
type Session struct {
	UserID   string
	Role     Role
	BranchID string
	// Token is forwarded to the REST collaborators.
	Token string
}

// Valid reports whether the session identifies a user.
func (s Session) Valid() bool {
	return s.UserID != ""
}

// Same reports whether two sessions would produce the same subscriptions and history.
func (s Session) Same(o Session) bool {
	return s.UserID == o.UserID && s.Role == o.Role && s.BranchID == o.BranchID
}

// SessionProvider exposes the current identity. ok is false before authentication.
type SessionProvider interface {
	Current() (Session, bool)
}
