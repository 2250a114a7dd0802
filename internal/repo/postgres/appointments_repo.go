package postgres

import (
	"context"
	"time"

	"github.com/geocoder89/carebook/internal/domain/appointment"
	"github.com/geocoder89/carebook/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AppointmentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAppointmentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AppointmentsRepo {
	return &AppointmentsRepo{pool: pool, prom: prom}
}

func (repo *AppointmentsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

const appointmentColumns = `id, user_id, patient_name, email, doctor, department,
	to_char(appointment_date, 'YYYY-MM-DD'), to_char(appointment_time, 'HH24:MI'),
	scheduled_at, status, created_at`

func scanAppointment(row pgx.Row) (appointment.Appointment, error) {
	var a appointment.Appointment
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.PatientName,
		&a.Email,
		&a.Doctor,
		&a.Department,
		&a.Date,
		&a.Time,
		&a.ScheduledAt,
		&a.Status,
		&a.CreatedAt,
	)
	return a, err
}

// Create is a single insert; identical doctor/date/time slots are not rejected.
func (repo *AppointmentsRepo) Create(ctx context.Context, req appointment.NewAppointment) (appointment.Appointment, error) {
	a := appointment.NewFromRequest(req)

	var out appointment.Appointment
	err := repo.observe("appointments.create", func() error {
		var e error
		out, e = scanAppointment(repo.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(id, user_id, patient_name, email, doctor, department,
			 appointment_date, appointment_time, scheduled_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8::time, $9, $10, $11)
		RETURNING `+appointmentColumns,
			a.ID, a.UserID, a.PatientName, a.Email, a.Doctor, a.Department,
			a.Date, a.Time, a.ScheduledAt, a.Status, a.CreatedAt))
		return e
	})
	if err != nil {
		return appointment.Appointment{}, err
	}
	return out, nil
}

func (repo *AppointmentsRepo) ListByUser(ctx context.Context, userID string) (items []appointment.Appointment, err error) {
	var rows pgx.Rows

	err = repo.observe("appointments.list_by_user", func() error {
		rows, err = repo.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE user_id = $1
		ORDER BY scheduled_at ASC, id ASC`, userID)
		return err
	})
	if err != nil {
		return
	}
	defer rows.Close()

	items = make([]appointment.Appointment, 0)
	for rows.Next() {
		a, e := scanAppointment(rows)
		if e != nil {
			err = e
			return
		}
		items = append(items, a)
	}

	if e := rows.Err(); e != nil {
		if repo.prom != nil {
			repo.prom.DbErrorsTotal.WithLabelValues("appointments.list_by_user", "rows_err").Inc()
		}
		err = e
		return
	}
	return
}

func (repo *AppointmentsRepo) CountUpcomingByUser(ctx context.Context, userID string, now time.Time) (int, error) {
	var n int
	err := repo.observe("appointments.count_upcoming", func() error {
		return repo.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE user_id = $1 AND scheduled_at > $2`, userID, now).Scan(&n)
	})
	return n, err
}
