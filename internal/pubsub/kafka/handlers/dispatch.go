package handlers

import (
	"vn.io.arda/notifeed/internal/channel"
	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/messages"
	"vn.io.arda/notifeed/internal/pubsub/kafka/registry"
)

func init() {
	Register(channel.Dispatches, "DISPATCH_ASSIGNED", handleDispatchAssigned)
	Register(channel.Dispatches, "DISPATCH_DELAYED", handleDispatchDelayed)
}

type dispatchPayload struct {
	DispatchID   string `json:"dispatchId"`
	Reference    string `json:"reference"`
	VehiclePlate string `json:"vehiclePlate"`
	DelayMinutes int    `json:"delayMinutes"`
}

func parseDispatch(env registry.Envelope) (*dispatchPayload, bool) {
	var p dispatchPayload
	if !decode(env, &p) || p.Reference == "" {
		return nil, false
	}
	return &p, true
}

func handleDispatchAssigned(env registry.Envelope) *registry.Notification {
	p, ok := parseDispatch(env)
	if !ok {
		return nil
	}
	title, body := messages.DispatchAssigned(p.Reference, p.VehiclePlate)
	return notification(domain.CategoryDispatchUpdate, title, body, map[string]any{"dispatchId": p.DispatchID})
}

func handleDispatchDelayed(env registry.Envelope) *registry.Notification {
	p, ok := parseDispatch(env)
	if !ok || p.DelayMinutes <= 0 {
		return nil
	}
	title, body := messages.DispatchDelayed(p.Reference, p.DelayMinutes)
	return notification(domain.CategoryDispatchUpdate, title, body, map[string]any{"dispatchId": p.DispatchID, "delayMinutes": p.DelayMinutes})
}
