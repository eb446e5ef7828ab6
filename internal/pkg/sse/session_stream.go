package sse

import (
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
)

// SessionStream bridges the generic hub to the typed session push-channel
// contract. The state machine publishes through it, the live sync manager
// subscribes through it.
type SessionStream struct {
	hub *Hub
}

func NewSessionStream(hub *Hub) *SessionStream {
	return &SessionStream{hub: hub}
}

var _ session.EventStream = (*SessionStream)(nil)
var _ session.EventPublisher = (*SessionStream)(nil)

// Publish fans a session change event out to the worker's subscribers.
func (s *SessionStream) Publish(workerID string, event session.Event) {
	s.hub.Publish(workerID, Event{
		WorkerID: workerID,
		Event:    string(event.Type),
		Data:     event,
	})
}

// Subscribe returns a typed event channel for one worker. The returned
// cleanup must be called to release the subscription.
func (s *SessionStream) Subscribe(workerID string) (<-chan session.Event, func(), error) {
	raw, cleanup := s.hub.Subscribe(workerID)

	out := make(chan session.Event, 10)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			select {
			case ev, ok := <-raw:
				if !ok {
					return
				}
				if typed, ok := ev.Data.(session.Event); ok {
					select {
					case out <- typed:
					default:
						// Slow consumer; dropped events are recovered by
						// the next reconciliation read.
					}
				}
			case <-done:
				return
			}
		}
	}()

	return out, func() {
		close(done)
		cleanup()
	}, nil
}
