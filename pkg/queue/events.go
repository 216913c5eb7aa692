package queue

import (
	"log/slog"
	"sync"
)

// Event names emitted by the manager after each processing pass.
const (
	EventEntryMerged    = "queue.entry.merged"
	EventEntryFailed    = "queue.entry.failed"
	EventBatchCompleted = "queue.batch.completed"
	EventBatchFailed    = "queue.batch.failed"
	EventRebaseDone     = "queue.rebase.completed"
	EventRebaseFailed   = "queue.rebase.failed"
)

// Event is a named notification plus payload, published after state
// transitions. The manager never waits on subscribers.
type Event struct {
	Name    string
	Payload map[string]any
}

// Publisher receives events. Implementations must not block.
type Publisher interface {
	Publish(ev Event)
}

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ev Event) {
	if p.Logger == nil {
		return
	}
	args := make([]any, 0, len(ev.Payload)*2)
	for k, v := range ev.Payload {
		args = append(args, k, v)
	}
	p.Logger.Info(ev.Name, args...)
}

// CapturePublisher records events in memory.
type CapturePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *CapturePublisher) Publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

// Events returns a copy of everything published so far.
func (p *CapturePublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}
