// Package events fans ticket lifecycle events out to the configured
// brokers without blocking the request that caused them.
package events

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/model"
)

const (
	TicketCreated   = "ticket.created"
	TicketUpdated   = "ticket.updated"
	TicketCommented = "ticket.commented"
)

// Publisher is implemented by the kafka producer and the mqtt publisher.
// Publish is best-effort: failures are logged by the implementation.
type Publisher interface {
	Publish(ctx context.Context, event string, payload map[string]interface{})
}

// TicketPayload is the event body shared by every broker.
func TicketPayload(t *model.Ticket) map[string]interface{} {
	if t == nil {
		return nil
	}
	out := map[string]interface{}{
		"ticket_id":  t.ID,
		"title":      t.Title,
		"category":   t.Category,
		"priority":   string(t.Priority),
		"status":     string(t.Status),
		"department": t.Department,
		"created_by": t.CreatedBy,
		"comments":   len(t.Comments),
		"updated_at": t.UpdatedAt,
	}
	if t.AssignedTo != nil {
		out["assigned_to"] = *t.AssignedTo
	}
	return out
}

// Dispatcher publishes asynchronously with a per-event timeout.
type Dispatcher struct {
	pubs    []Publisher
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, pubs ...Publisher) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{pubs: pubs, timeout: timeout}
}

// Ticket publishes event for t on every publisher. Fire-and-forget: the
// event is sent even if the originating request is cancelled.
func (d *Dispatcher) Ticket(event string, t *model.Ticket) {
	if d == nil || len(d.pubs) == 0 || t == nil {
		return
	}
	payload := TicketPayload(t)
	for _, p := range d.pubs {
		d.wg.Add(1)
		go func(p Publisher) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			p.Publish(ctx, event, payload)
		}(p)
	}
}

// TicketSync publishes on the caller's goroutine; used by the republish command.
func (d *Dispatcher) TicketSync(ctx context.Context, event string, t *model.Ticket) {
	if d == nil || t == nil {
		return
	}
	payload := TicketPayload(t)
	for _, p := range d.pubs {
		p.Publish(ctx, event, payload)
	}
}

// Wait blocks until in-flight events are done.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}

// Close waits for in-flight events and closes publishers that support it.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	d.wg.Wait()
	var first error
	for _, p := range d.pubs {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
