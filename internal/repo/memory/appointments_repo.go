package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/carebook/internal/domain/appointment"
)

type AppointmentsRepo struct {
	mu    sync.RWMutex
	items map[string]appointment.Appointment
}

func NewAppointmentsRepo() *AppointmentsRepo {
	return &AppointmentsRepo{
		items: make(map[string]appointment.Appointment),
	}
}

func (r *AppointmentsRepo) Create(_ context.Context, req appointment.NewAppointment) (appointment.Appointment, error) {
	a := appointment.NewFromRequest(req)

	r.mu.Lock()
	r.items[a.ID] = a
	r.mu.Unlock()

	return a, nil
}

func (r *AppointmentsRepo) ListByUser(_ context.Context, userID string) ([]appointment.Appointment, error) {
	r.mu.RLock()
	out := make([]appointment.Appointment, 0)
	for _, a := range r.items {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}

func (r *AppointmentsRepo) CountUpcomingByUser(_ context.Context, userID string, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, a := range r.items {
		if a.UserID == userID && a.ScheduledAt.After(now) {
			n++
		}
	}
	return n, nil
}
