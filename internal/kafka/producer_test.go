package kafka

import (
	"context"
	"testing"
)

func TestProducerWithoutBrokersIsNoop(t *testing.T) {
	p := NewProducer(nil, "helpdesk.tickets")
	if p.Enabled() {
		t.Fatalf("producer without brokers should be disabled")
	}
	p.Publish(context.Background(), "ticket.created", map[string]interface{}{"ticket_id": uint64(1)})
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestProducerWithBrokersIsEnabled(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "helpdesk.tickets")
	defer p.Close()
	if !p.Enabled() {
		t.Fatalf("producer with brokers should be enabled")
	}
}
