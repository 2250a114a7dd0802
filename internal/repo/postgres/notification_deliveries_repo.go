package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const kindAppointmentConfirmation = "appointment.confirmation"

type NotificationDeliveriesRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationDeliveriesRepo(pool *pgxpool.Pool) *NotificationDeliveriesRepo {
	return &NotificationDeliveriesRepo{pool: pool}
}

func (r *NotificationDeliveriesRepo) RecordConfirmationSent(ctx context.Context, appointmentID, recipient string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_deliveries (kind, appointment_id, recipient, status, sent_at, created_at)
		VALUES ($1, $2, $3, 'sent', NOW(), NOW())
	`, kindAppointmentConfirmation, appointmentID, recipient)

	return err
}

func (r *NotificationDeliveriesRepo) RecordConfirmationFailed(ctx context.Context, appointmentID, recipient, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_deliveries (kind, appointment_id, recipient, status, last_error, created_at)
		VALUES ($1, $2, $3, 'failed', $4, NOW())
	`, kindAppointmentConfirmation, appointmentID, recipient, errMsg)

	return err
}
