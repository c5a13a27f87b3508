// Package notify delivers session lifecycle events to the notification
// collaborator. Delivery is fire-and-forget: a failed delivery never rolls
// back the transition that produced the event.
package notify

import (
	"context"
	"sync"

	"github.com/korobprog/supermock-matcher/internal/domain/session"
	"github.com/korobprog/supermock-matcher/pkg/logger"
)

// LogNotifier writes lifecycle events to the structured log. It stands in
// for the Telegram delivery pipeline, which consumes the same events.
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier creates a notifier writing to the named logger.
func NewLogNotifier(l logger.Logger) *LogNotifier {
	if l == nil {
		l = logger.Get().Named("notify")
	}
	return &LogNotifier{logger: l}
}

// Notify logs the event.
func (n *LogNotifier) Notify(ctx context.Context, e session.Event) error {
	n.logger.Info(ctx, "session event",
		logger.String("sessionID", e.SessionID),
		logger.String("type", string(e.Type)),
		logger.Any("participants", e.Participants),
	)
	return nil
}

// Recorder captures events in memory. Used by tests and the simulator to
// assert on emitted lifecycle events.
type Recorder struct {
	mu     sync.Mutex
	events []session.Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify records the event.
func (r *Recorder) Notify(ctx context.Context, e session.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []session.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Event(nil), r.events...)
}

// ByType returns recorded events of one type.
func (r *Recorder) ByType(typ session.EventType) []session.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []session.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
