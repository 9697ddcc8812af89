package handlers

import (
	"vn.io.arda/notifeed/internal/channel"
	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/messages"
	"vn.io.arda/notifeed/internal/pubsub/kafka/registry"
)

func init() {
	Register(channel.Bookings, "BOOKING_CREATED", handleBookingCreated)
	Register(channel.Bookings, "BOOKING_CONFIRMED", handleBookingConfirmed)
	Register(channel.Bookings, "BOOKING_CANCELLED", handleBookingCancelled)
	Register(channel.Bookings, "DEPOSIT_PENDING", handleDepositPending)
}

type bookingPayload struct {
	BookingID     string  `json:"bookingId"`
	Reference     string  `json:"reference"`
	CustomerName  string  `json:"customerName"`
	Reason        string  `json:"reason"`
	DepositAmount float64 `json:"depositAmount"`
}

func parseBooking(env registry.Envelope) (*bookingPayload, bool) {
	var p bookingPayload
	if !decode(env, &p) || p.Reference == "" {
		return nil, false
	}
	return &p, true
}

func (p *bookingPayload) data() map[string]any {
	return map[string]any{"bookingId": p.BookingID, "reference": p.Reference}
}

func handleBookingCreated(env registry.Envelope) *registry.Notification {
	p, ok := parseBooking(env)
	if !ok {
		return nil
	}
	title, body := messages.BookingCreated(p.Reference, p.CustomerName)
	return notification(domain.CategoryBookingUpdate, title, body, p.data())
}

func handleBookingConfirmed(env registry.Envelope) *registry.Notification {
	p, ok := parseBooking(env)
	if !ok {
		return nil
	}
	title, body := messages.BookingConfirmed(p.Reference)
	return notification(domain.CategoryBookingUpdate, title, body, p.data())
}

func handleBookingCancelled(env registry.Envelope) *registry.Notification {
	p, ok := parseBooking(env)
	if !ok {
		return nil
	}
	title, body := messages.BookingCancelled(p.Reference, p.Reason)
	return notification(domain.CategoryBookingUpdate, title, body, p.data())
}

func handleDepositPending(env registry.Envelope) *registry.Notification {
	p, ok := parseBooking(env)
	if !ok {
		return nil
	}
	title, body := messages.DepositPending(p.Reference, p.DepositAmount)
	data := p.data()
	data["depositAmount"] = p.DepositAmount
	return notification(domain.CategoryDepositPending, title, body, data)
}
