// Package mqtt publishes ticket notifications for dashboards and pagers.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const TopicPrefix = "helpdesk/tickets/"

// Topic maps an event name such as "ticket.created" to "helpdesk/tickets/created".
func Topic(event string) string {
	return TopicPrefix + strings.TrimPrefix(event, "ticket.")
}

type Config struct {
	BrokerURL string
	ClientID  string
}

type Publisher struct {
	client pahomqtt.Client
	log    *slog.Logger
}

// Connect dials the broker. An empty BrokerURL returns a no-op publisher.
func Connect(cfg Config) (*Publisher, error) {
	log := slog.Default().With("component", "mqtt")
	if cfg.BrokerURL == "" {
		return &Publisher{log: log}, nil
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "helpdesk-service"
	}
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)
	opts.OnConnectionLost = func(_ pahomqtt.Client, err error) {
		log.Warn("connection lost", "error", err)
	}
	opts.OnConnect = func(_ pahomqtt.Client) {
		log.Info("connected", "broker", cfg.BrokerURL, "client_id", cfg.ClientID)
	}
	c := pahomqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(10 * time.Second) {
		return nil, errors.New("mqtt: connect timeout")
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return &Publisher{client: c, log: log}, nil
}

func (p *Publisher) Enabled() bool { return p.client != nil }

// Publish sends payload as JSON with QoS 1. Delivery waits at most until ctx is done.
func (p *Publisher) Publish(ctx context.Context, event string, payload map[string]interface{}) {
	if p.client == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("marshal ticket event", "event", event, "error", err)
		return
	}
	tok := p.client.Publish(Topic(event), 1, false, body)
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			p.log.Warn("publish ticket event", "event", event, "error", err)
		}
	case <-ctx.Done():
		p.log.Warn("publish ticket event", "event", event, "error", ctx.Err())
	}
}

func (p *Publisher) Close() error {
	if p.client != nil {
		p.client.Disconnect(250)
	}
	return nil
}
