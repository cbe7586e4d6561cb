package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// WorkflowEventsStream is the JetStream stream carrying published workflow
// events to other processes (distributed workers, external listeners).
const WorkflowEventsStream = "WORKFLOW_EVENTS"

// workflowEventsSubjectPrefix namespaces subjects by event type so that a
// NATS-side consumer can filter with a wildcard (e.g. "events.APPROVAL_*").
const workflowEventsSubjectPrefix = "events."

// NATSDistributor publishes events onto a JetStream stream, one subject per
// event type, so out-of-process listeners observe the same event stream
// the in-process bus dispatches.
type NATSDistributor struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// NewNATSDistributor connects to natsURL and ensures the workflow events
// stream exists.
func NewNATSDistributor(natsURL string) (*NATSDistributor, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	d := &NATSDistributor{nc: nc, js: js}
	if err := d.initStream(); err != nil {
		nc.Close()
		return nil, err
	}

	return d, nil
}

func (d *NATSDistributor) initStream() error {
	_, err := d.js.AddStream(&nats.StreamConfig{
		Name:      WorkflowEventsStream,
		Subjects:  []string{workflowEventsSubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create workflow events stream: %w", err)
	}
	return nil
}

// Distribute publishes event to its type-scoped subject.
func (d *NATSDistributor) Distribute(ctx context.Context, event *models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := workflowEventsSubjectPrefix + string(event.EventType)
	if _, err := d.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}
	return nil
}

// Subscribe registers a durable queue subscriber so multiple processes
// (e.g. several Hook Engine instances) share delivery without duplication.
func (d *NATSDistributor) Subscribe(eventType models.EventType, durableName string, handler Handler) (*nats.Subscription, error) {
	subject := workflowEventsSubjectPrefix + string(eventType)
	if eventType == "" {
		subject = workflowEventsSubjectPrefix + ">"
	}

	return d.js.QueueSubscribe(subject, durableName, func(msg *nats.Msg) {
		var event models.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			msg.Nak()
			return
		}
		handler(context.Background(), &event)
		msg.Ack()
	}, nats.Durable(durableName), nats.ManualAck())
}

// Close closes the underlying NATS connection.
func (d *NATSDistributor) Close() {
	d.nc.Close()
}
