package channel

import (
	"sort"
	"strings"

	"vn.io.arda/notifeed/internal/domain"
)

// Logical channel names. The user channel is parameterised by user id.
const (
	Global     = "notifications"
	Bookings   = "bookings"
	Payments   = "payments"
	Dispatches = "dispatches"

	userPrefix = "user."
)

var broadcastChannels = []string{Global, Bookings, Payments, Dispatches}

// UserChannel returns the channel addressed to a single user.
func UserChannel(userID string) string {
	return userPrefix + userID
}

// IsUserChannel reports whether name is a user-scoped channel.
func IsUserChannel(name string) bool {
	return strings.HasPrefix(name, userPrefix)
}

// ScopeOf maps a channel name to the scope of the traffic it carries.
func ScopeOf(name string) domain.Scope {
	if IsUserChannel(name) {
		return domain.ScopeUser
	}
	return domain.ScopeBroadcast
}

// ChannelsFor computes the subscription set of a session, sorted.
// Drivers and unrecognised roles only get their own channel.
func ChannelsFor(s domain.Session) []string {
	if !s.Valid() {
		return nil
	}
	out := []string{UserChannel(s.UserID)}
	if s.Role.Known() && s.Role != domain.RoleDriver {
		out = append(out, broadcastChannels...)
	}
	sort.Strings(out)
	return out
}
