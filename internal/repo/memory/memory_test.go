package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/carebook/internal/domain/appointment"
	"github.com/geocoder89/carebook/internal/domain/contact"
	"github.com/geocoder89/carebook/internal/domain/user"
	"github.com/geocoder89/carebook/internal/repo/memory"
)

func TestUsersRepo_CreateRejectsDuplicateEmail(t *testing.T) {
	repo := memory.NewUsersRepo()
	ctx := context.Background()

	u, err := repo.Create(ctx, "Asha", "asha@example.com", "hash", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Role != user.RolePatient {
		t.Fatalf("expected default role %q, got %q", user.RolePatient, u.Role)
	}

	_, err = repo.Create(ctx, "Other", "asha@example.com", "hash2", "")
	if !errors.Is(err, user.ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}

	got, err := repo.GetByEmail(ctx, "asha@example.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetByEmail = %+v, %v", got, err)
	}

	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppointmentsRepo_ListByUserOrdersBySchedule(t *testing.T) {
	repo := memory.NewAppointmentsRepo()
	ctx := context.Background()
	base := time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC)

	for _, offset := range []time.Duration{48 * time.Hour, 0, 24 * time.Hour} {
		_, err := repo.Create(ctx, appointment.NewAppointment{
			UserID:      "u1",
			Doctor:      "Dr. Manoj Patel",
			ScheduledAt: base.Add(offset),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	_, _ = repo.Create(ctx, appointment.NewAppointment{UserID: "u2", ScheduledAt: base})

	items, err := repo.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].ScheduledAt.Before(items[i-1].ScheduledAt) {
			t.Fatalf("appointments not ordered: %v before %v", items[i-1].ScheduledAt, items[i].ScheduledAt)
		}
	}
	if items[0].Status != appointment.StatusScheduled {
		t.Fatalf("expected status scheduled, got %q", items[0].Status)
	}

	n, _ := repo.CountUpcomingByUser(ctx, "u1", base.Add(time.Hour))
	if n != 2 {
		t.Fatalf("expected 2 upcoming, got %d", n)
	}
}

func TestContactQueriesRepo_UpdateStatus(t *testing.T) {
	repo := memory.NewContactQueriesRepo()
	ctx := context.Background()

	q, err := repo.Create(ctx, contact.CreateQueryRequest{Name: "A", Email: "a@example.com", Message: "hi"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if q.Status != contact.StatusPending {
		t.Fatalf("expected pending, got %q", q.Status)
	}

	if err := repo.UpdateStatus(ctx, q.ID, contact.StatusClosed, time.Now()); err != nil {
		t.Fatalf("update: %v", err)
	}

	items, _ := repo.List(ctx)
	if len(items) != 1 || items[0].Status != contact.StatusClosed || items[0].UpdatedAt == nil {
		t.Fatalf("unexpected list result: %+v", items)
	}

	err = repo.UpdateStatus(ctx, "00000000-0000-0000-0000-000000000000", contact.StatusClosed, time.Now())
	if !errors.Is(err, contact.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
