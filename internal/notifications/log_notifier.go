package notifications

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// LogNotifier writes confirmations to the log instead of sending them.
// NOTIFIER_FAIL=1 simulates a provider outage and NOTIFIER_SLEEP_MS a slow one.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendAppointmentConfirmation(ctx context.Context, in AppointmentConfirmationInput) error {
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return errors.New("provider down (simulated)")
	}

	n.log.InfoContext(ctx, "notification.appointment_confirmation",
		"email", in.Email,
		"appointment_id", in.AppointmentID,
		"doctor", in.Doctor,
		"date", in.Date,
		"time", in.Time,
	)
	return nil
}
