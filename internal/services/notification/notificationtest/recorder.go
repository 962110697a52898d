// Package notificationtest provides an in-memory notification.Notifier
// that records delivered events for assertions.
package notificationtest

import (
	"context"
	"sync"

	"custodia/internal/services/notification"
)

// Recorder captures every event synchronously. Safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	userEvents []notification.Event
	admEvents  []notification.Event
}

func New() *Recorder { return &Recorder{} }

func (r *Recorder) Notify(ctx context.Context, e notification.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userEvents = append(r.userEvents, e)
}

func (r *Recorder) NotifyAdmins(ctx context.Context, e notification.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admEvents = append(r.admEvents, e)
}

// UserEvents returns the events delivered to users.
func (r *Recorder) UserEvents() []notification.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Event(nil), r.userEvents...)
}

// AdminEvents returns the events delivered to the admin channel.
func (r *Recorder) AdminEvents() []notification.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Event(nil), r.admEvents...)
}
