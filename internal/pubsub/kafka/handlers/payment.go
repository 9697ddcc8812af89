package handlers

import (
	"vn.io.arda/notifeed/internal/channel"
	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/messages"
	"vn.io.arda/notifeed/internal/pubsub/kafka/registry"
)

func init() {
	Register(channel.Payments, "PAYMENT_RECEIVED", handlePaymentReceived)
	Register(channel.Payments, "PAYMENT_FAILED", handlePaymentFailed)
}

type paymentPayload struct {
	PaymentID string  `json:"paymentId"`
	Reference string  `json:"reference"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
}

func parsePayment(env registry.Envelope) (*paymentPayload, bool) {
	var p paymentPayload
	if !decode(env, &p) || p.Reference == "" {
		return nil, false
	}
	return &p, true
}

func handlePaymentReceived(env registry.Envelope) *registry.Notification {
	p, ok := parsePayment(env)
	if !ok {
		return nil
	}
	title, body := messages.PaymentReceived(p.Amount, p.Reference)
	return notification(domain.CategoryPaymentUpdate, title, body, map[string]any{"paymentId": p.PaymentID, "amount": p.Amount})
}

func handlePaymentFailed(env registry.Envelope) *registry.Notification {
	p, ok := parsePayment(env)
	if !ok {
		return nil
	}
	title, body := messages.PaymentFailed(p.Reference, p.Reason)
	return notification(domain.CategoryPaymentUpdate, title, body, map[string]any{"paymentId": p.PaymentID})
}
