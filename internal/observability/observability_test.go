package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unique", &pgconn.PgError{Code: "23505"}, "unique_violation"},
		{"check", &pgconn.PgError{Code: "23514"}, "check_violation"},
		{"other_pg", &pgconn.PgError{Code: "42P01"}, "pg_42P01"},
		{"timeout", errors.New("context deadline exceeded"), "timeout"},
		{"connection", errors.New("failed to connect: connection refused"), "connection"},
		{"unknown", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDBErr(tt.err); got != tt.want {
				t.Fatalf("classifyDBErr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObserveDB_NoRowsIsNotAnError(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	err := p.ObserveDB("users.get_by_email", func() error { return pgx.ErrNoRows })
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected ErrNoRows to pass through, got %v", err)
	}

	if n := testutil.CollectAndCount(p.DbErrorsTotal); n != 0 {
		t.Fatalf("expected no db error series, got %d", n)
	}

	_ = p.ObserveDB("users.create", func() error { return &pgconn.PgError{Code: "23505"} })

	if got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.create", "unique_violation")); got != 1 {
		t.Fatalf("expected 1 unique_violation, got %v", got)
	}
}

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	log.InfoContext(ctx, "hello")
	span.End()

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json log: %v (%s)", err, buf.String())
	}

	if rec["trace_id"] == nil || rec["span_id"] == nil {
		t.Fatalf("expected trace ids in record: %v", rec)
	}
}

func TestLogger_DebugOnlyInDev(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "prod").Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be suppressed outside dev")
	}

	newLogger(&buf, "dev").Debug("shown")
	if buf.Len() == 0 {
		t.Fatalf("expected debug output in dev")
	}
}

func TestLogger_ContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	ctx := WithLogAttrs(context.Background(), slog.String("request_id", "req-1"))
	ctx = WithLogAttrs(ctx, slog.String("user_id", "u-1"))
	log.InfoContext(ctx, "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json log: %v", err)
	}

	if rec["request_id"] != "req-1" || rec["user_id"] != "u-1" {
		t.Fatalf("expected context attrs in record: %v", rec)
	}
}
