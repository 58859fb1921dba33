package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campus-events/apiserver/config"
	"github.com/campus-events/apiserver/internal/mq"
	"github.com/campus-events/apiserver/types"
	"github.com/spf13/cobra"
)

// notifyCmd represents the notify command
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Consume registration and payment notifications and log them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		queue, err := mq.Open(cmd.Context(), cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer queue.Close()

		slog.Info("listening for notifications", "backend", cfg.MQ.Backend, "channel", queue.Channel())
		err = queue.Subscribe(cmd.Context(), logNotification)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}

func logNotification(ctx context.Context, msg mq.Message) error {
	var n types.Notification
	if err := json.Unmarshal(msg.Data, &n); err != nil {
		// Undecodable payloads are acknowledged and dropped.
		slog.WarnContext(ctx, "discarding malformed notification", "message_id", msg.ID, "error", err)
		return nil
	}

	switch n.Kind {
	case types.NotificationRegistrationCreated, types.NotificationPaymentCompleted:
	default:
		return fmt.Errorf("unknown notification kind %q", n.Kind)
	}

	slog.InfoContext(ctx, "notification",
		"kind", n.Kind,
		"message_id", msg.ID,
		"registration_id", n.RegistrationID,
		"event_id", n.EventID,
		"user_id", n.UserID,
		"amount", n.Amount,
		"occurred_at", n.OccurredAt,
	)
	return nil
}
