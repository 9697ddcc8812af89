package application

import "vn.io.arda/notifeed/internal/domain"

// View is the dropdown state of a feed as clients render it.
type View struct {
	Connected     bool                  `json:"connected"`
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
	Badge         int                   `json:"badge"`
}

// LocalInput is the DTO for pushing a client-originated notification.
type LocalInput struct {
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	Category domain.Category `json:"category"`
}
