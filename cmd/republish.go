package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/helpdesk-service/internal/application"
	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/events"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

const republishBatch = 100

var republishCmd = &cobra.Command{
	Use:   "republish-tickets",
	Short: "Publish ticket.updated for every ticket to Kafka/MQTT so consumers can rebuild their state",
	RunE:  runRepublish,
}

func init() {
	rootCmd.AddCommand(republishCmd)
}

func runRepublish(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.KafkaBrokers) == 0 && cfg.MQTT.BrokerURL == "" {
		return errors.New("republish-tickets: set KAFKA_BROKERS or MQTT_BROKER_URL")
	}
	db, err := application.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	log := slog.Default().With("component", "republish")
	disp := application.NewDispatcher(cfg, log)
	defer disp.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	tickets := service.NewTicketService(db, clock.Real())
	sent := 0
	for offset := 0; ; offset += republishBatch {
		items, total, err := tickets.List(ctx, service.TicketFilter{}, republishBatch, offset)
		if err != nil {
			return fmt.Errorf("list tickets: %w", err)
		}
		for i := range items {
			disp.TicketSync(ctx, events.TicketUpdated, &items[i])
		}
		sent += len(items)
		log.Info("republish-tickets: progress", "sent", sent, "total", total)
		if len(items) < republishBatch || int64(sent) >= total {
			break
		}
	}
	log.Info("republish-tickets: done", "sent", sent)
	return nil
}
