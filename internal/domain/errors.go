package domain

import "errors"

var (
	// ErrConnection marks a dropped or refused pub/sub connection. Recovered by retry.
	ErrConnection = errors.New("pubsub connection error")
	// ErrHistoryLoad marks a failed history fetch. The feed continues with live data.
	ErrHistoryLoad = errors.New("history load failed")
	// ErrDurability marks a failed remote delete. Local state stays authoritative.
	ErrDurability = errors.New("remote durability call failed")
	// ErrMalformedMessage marks an inbound payload that cannot become a notification.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrNotFound is returned when an identity is not in the feed.
	ErrNotFound = errors.New("notification not found")
)
