/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/floorvault/apiserver/internal/mq"
	"github.com/floorvault/apiserver/internal/services"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect catalog events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log catalog events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.MQ.Driver == "" || cfg.MQ.Driver == "none" {
			return errors.New("MQ_DRIVER is none; nothing to tail")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.NewFromConfig(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer broker.Close()

		slog.Info("tailing catalog events", "driver", cfg.MQ.Driver, "topic", cfg.MQ.Topic)
		err = broker.Subscribe(ctx, cfg.MQ.Topic, logEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("subscribe: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}

// logEvent acknowledges malformed payloads so they are not redelivered.
func logEvent(ctx context.Context, msg mq.Message) error {
	var event services.CatalogEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Warn("skipping malformed event", "message_id", msg.ID, "error", err)
		return nil
	}
	slog.Info("catalog event",
		"id", event.ID,
		"type", event.Type,
		"category_id", event.CategoryID,
		"image_id", event.ImageID,
		"actor_id", event.ActorID,
		"occurred_at", event.OccurredAt,
	)
	return nil
}
