package mqtt

import (
	"context"
	"testing"
)

func TestTopic(t *testing.T) {
	cases := map[string]string{
		"ticket.created":   "helpdesk/tickets/created",
		"ticket.updated":   "helpdesk/tickets/updated",
		"ticket.commented": "helpdesk/tickets/commented",
	}
	for event, want := range cases {
		if got := Topic(event); got != want {
			t.Fatalf("Topic(%q): want %q got %q", event, want, got)
		}
	}
}

func TestDisabledPublisherIsNoop(t *testing.T) {
	p, err := Connect(Config{})
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if p.Enabled() {
		t.Fatalf("publisher without broker should be disabled")
	}
	p.Publish(context.Background(), "ticket.created", map[string]interface{}{"ticket_id": 1})
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}
