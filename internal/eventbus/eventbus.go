// Package eventbus implements the workflow event fabric: publish persists
// an event and fans it out to the Hook Engine and any direct in-process
// subscribers without blocking the caller.
package eventbus

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/storage"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// Handler receives a published event. Handlers run in their own goroutine
// per event and a panic or error from one handler never affects another.
type Handler func(ctx context.Context, event *models.Event)

// Distributor fans a persisted event out across process boundaries. The
// in-process Bus always calls local subscribers directly; a Distributor is
// an optional extra hop (NATS, in this codebase) for other processes such
// as cmd/worker to observe the same event stream.
type Distributor interface {
	Distribute(ctx context.Context, event *models.Event) error
}

// Bus is the in-process event bus. It persists every published event via
// EventRepository before notifying anyone, so the event log is always the
// durable source of truth even if every subscriber is down.
type Bus struct {
	events storage.EventRepository

	mu          sync.RWMutex
	subscribers map[models.EventType][]Handler
	wildcard    []Handler

	distributor Distributor
}

// New creates a Bus backed by the given event repository. distributor may
// be nil, in which case events are delivered only to in-process subscribers.
func New(events storage.EventRepository, distributor Distributor) *Bus {
	return &Bus{
		events:      events,
		subscribers: make(map[models.EventType][]Handler),
		distributor: distributor,
	}
}

// Subscribe registers handler for eventType. An empty eventType subscribes
// to every event (used by infrastructure like audit logging or metrics).
func (b *Bus) Subscribe(eventType models.EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if eventType == "" {
		b.wildcard = append(b.wildcard, handler)
		return
	}
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish persists event and asynchronously notifies subscribers and the
// distributor. It returns once the event is durably stored; delivery to
// subscribers is fire-and-forget from the caller's perspective.
func (b *Bus) Publish(ctx context.Context, event *models.Event) error {
	if err := b.events.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to persist event %s: %w", event.EventID, err)
	}

	go b.dispatch(event)

	return nil
}

func (b *Bus) dispatch(event *models.Event) {
	ctx := context.Background()

	b.mu.RLock()
	handlers := append([]Handler{}, b.subscribers[event.EventType]...)
	handlers = append(handlers, b.wildcard...)
	b.mu.RUnlock()

	for _, h := range handlers {
		go b.safeInvoke(ctx, h, event)
	}

	if b.distributor != nil {
		if err := b.distributor.Distribute(ctx, event); err != nil {
			log.Printf("eventbus: failed to distribute event %s: %v", event.EventID, err)
		}
	}
}

func (b *Bus) safeInvoke(ctx context.Context, h Handler, event *models.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("eventbus: handler for event %s panicked: %v", event.EventID, r)
		}
	}()
	h(ctx, event)
}
