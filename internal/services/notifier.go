package services

import (
	"context"
)

// Event is a realtime ride notification
type Event struct {
	Type  string                 `json:"type"`
	Title string                 `json:"title,omitempty"`
	Body  string                 `json:"body,omitempty"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// UserNotifier delivers an event to one user. Delivery is best effort.
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID uint, event Event)
}

// MultiNotifier fans an event out to every notifier
type MultiNotifier []UserNotifier

func (m MultiNotifier) NotifyUser(ctx context.Context, userID uint, event Event) {
	for _, n := range m {
		if n != nil {
			n.NotifyUser(ctx, userID, event)
		}
	}
}
