package session

// Push-channel contract. Delivery is at-most-once and may be delayed or
// dropped; consumers must reconcile against the store rather than trust the
// payload.

type EventType string

const (
	EventCreated EventType = "session_created"
	EventUpdated EventType = "session_updated"
	EventDeleted EventType = "session_deleted"
)

// Event is a session change notification scoped to one worker.
type Event struct {
	Type    EventType
	Session Session
}

// EventStream is the subscription side of the push channel. Subscribe returns
// a receive channel and a cleanup function; the channel is closed by cleanup
// or when the stream itself shuts down.
type EventStream interface {
	Subscribe(workerID string) (<-chan Event, func(), error)
}

// EventPublisher is the emitting side, driven by session mutations.
type EventPublisher interface {
	Publish(workerID string, event Event)
}
