// Package booking validates appointment requests, persists them and sends a
// best-effort confirmation email.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/geocoder89/carebook/internal/domain/appointment"
	"github.com/geocoder89/carebook/internal/notifications"
	"github.com/geocoder89/carebook/internal/observability"
	"github.com/geocoder89/carebook/internal/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	MessageBooked          = "Appointment booked successfully"
	MessageBookedNoEmail   = "Appointment booked successfully, but email confirmation failed"
	messageFutureDate      = "Please select a future date and time"
	messageInvalidDoctor   = "Please select a valid doctor"
	messageInvalidDateTime = "Please provide a valid date (YYYY-MM-DD) and time (HH:MM)"
)

// ErrPersistence wraps any store failure while inserting the appointment.
var ErrPersistence = errors.New("could not save appointment")

type ValidationError struct {
	Field   string
	Message string

	reason string // metric label
}

func (e *ValidationError) Error() string {
	return e.Message
}

type AppointmentStore interface {
	Create(ctx context.Context, req appointment.NewAppointment) (appointment.Appointment, error)
}

type DeliveryRecorder interface {
	RecordConfirmationSent(ctx context.Context, appointmentID, recipient string) error
	RecordConfirmationFailed(ctx context.Context, appointmentID, recipient, errMsg string) error
}

type Request struct {
	Name       string `json:"name" form:"name"`
	Email      string `json:"email" form:"email"`
	Doctor     string `json:"doctor" form:"doctor"`
	Department string `json:"department" form:"department"`
	Date       string `json:"date" form:"date"`
	Time       string `json:"time" form:"time"`
}

type Result struct {
	Appointment appointment.Appointment
	Message     string
	EmailSent   bool
}

type Config struct {
	DoctorAllowlist []string
	Departments     []string
	Location        *time.Location
}

type Service struct {
	store      AppointmentStore
	notifier   notifications.Notifier
	deliveries DeliveryRecorder
	cfg        Config
	log        *slog.Logger
	prom       *observability.Prom
	now        func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithDeliveryRecorder(r DeliveryRecorder) Option {
	return func(s *Service) { s.deliveries = r }
}

func WithMetrics(p *observability.Prom) Option {
	return func(s *Service) { s.prom = p }
}

func NewService(store AppointmentStore, notifier notifications.Notifier, cfg Config, log *slog.Logger, opts ...Option) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenDoctorMode reports whether any non-empty doctor is accepted, in which
// case a department is required instead.
func (s *Service) OpenDoctorMode() bool {
	return len(s.cfg.DoctorAllowlist) == 0
}

func (s *Service) Doctors() []string {
	return slices.Clone(s.cfg.DoctorAllowlist)
}

func (s *Service) Departments() []string {
	return slices.Clone(s.cfg.Departments)
}

// Book validates req on behalf of who, stores the appointment and then
// attempts the confirmation email. Validation failures return
// *ValidationError; store failures wrap ErrPersistence. A failed email never
// fails the booking.
func (s *Service) Book(ctx context.Context, who session.Identity, req Request) (Result, error) {
	ctx, span := otel.Tracer("carebook/booking").Start(ctx, "booking.Book")
	defer span.End()

	req = normalize(req, who)

	scheduledAt, verr := s.validate(req)
	if verr != nil {
		s.rejectReason(verr.reason)
		span.SetAttributes(attribute.String("booking.rejected_field", verr.Field))
		span.SetStatus(codes.Error, "validation")
		return Result{}, verr
	}

	span.SetAttributes(
		attribute.String("booking.doctor", req.Doctor),
		attribute.String("booking.date", req.Date),
		attribute.String("user.id", who.UserID),
	)

	appt, err := s.store.Create(ctx, appointment.NewAppointment{
		UserID:      who.UserID,
		PatientName: req.Name,
		Email:       req.Email,
		Doctor:      req.Doctor,
		Department:  req.Department,
		Date:        req.Date,
		Time:        req.Time,
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		s.rejectReason("persistence")
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence")
		s.log.ErrorContext(ctx, "appointment_create_failed", "err", err, "user_id", who.UserID)
		return Result{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if s.prom != nil {
		s.prom.AppointmentsBooked.Inc()
	}
	span.SetAttributes(attribute.String("appointment.id", appt.ID))

	res := Result{Appointment: appt, Message: MessageBooked, EmailSent: true}

	if err := s.notify(ctx, appt); err != nil {
		span.AddEvent("confirmation_email_failed")
		res.Message = MessageBookedNoEmail
		res.EmailSent = false
	}

	return res, nil
}

func normalize(req Request, who session.Identity) Request {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Doctor = strings.TrimSpace(req.Doctor)
	req.Department = strings.TrimSpace(req.Department)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)

	if req.Name == "" {
		req.Name = who.Name
	}
	if req.Email == "" {
		req.Email = who.Email
	}
	return req
}

func (s *Service) validate(req Request) (time.Time, *ValidationError) {
	required := []struct{ field, value string }{
		{"name", req.Name},
		{"email", req.Email},
		{"doctor", req.Doctor},
		{"date", req.Date},
		{"time", req.Time},
	}
	for _, r := range required {
		if r.value == "" {
			return time.Time{}, &ValidationError{Field: r.field, Message: capitalize(r.field) + " is required", reason: "missing_field"}
		}
	}

	at, err := time.ParseInLocation(appointment.DateLayout+" "+appointment.TimeLayout, req.Date+" "+req.Time, s.cfg.Location)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: messageInvalidDateTime, reason: "bad_datetime"}
	}

	if !at.After(s.now()) {
		return time.Time{}, &ValidationError{Field: "date", Message: messageFutureDate, reason: "past"}
	}

	if s.OpenDoctorMode() {
		if req.Department == "" {
			return time.Time{}, &ValidationError{Field: "department", Message: "Department is required", reason: "department"}
		}
	} else if !slices.Contains(s.cfg.DoctorAllowlist, req.Doctor) {
		return time.Time{}, &ValidationError{Field: "doctor", Message: messageInvalidDoctor, reason: "doctor"}
	}

	if req.Department != "" && !slices.Contains(s.cfg.Departments, req.Department) {
		return time.Time{}, &ValidationError{Field: "department", Message: "Please select a valid department", reason: "department"}
	}

	return at, nil
}

func (s *Service) notify(ctx context.Context, appt appointment.Appointment) error {
	err := s.notifier.SendAppointmentConfirmation(ctx, notifications.AppointmentConfirmationInput{
		AppointmentID: appt.ID,
		Email:         appt.Email,
		Name:          appt.PatientName,
		Doctor:        appt.Doctor,
		Department:    appt.Department,
		Date:          appt.Date,
		Time:          appt.Time,
	})

	result := "sent"
	switch {
	case errors.Is(err, notifications.ErrCircuitOpen):
		result = "circuit_open"
	case err != nil:
		result = "failed"
	}
	if s.prom != nil {
		s.prom.NotificationResults.WithLabelValues(result).Inc()
	}

	if err != nil {
		s.log.WarnContext(ctx, "confirmation_email_failed", "appointment_id", appt.ID, "err", err)
	}

	if s.deliveries != nil {
		var recErr error
		if err != nil {
			recErr = s.deliveries.RecordConfirmationFailed(ctx, appt.ID, appt.Email, err.Error())
		} else {
			recErr = s.deliveries.RecordConfirmationSent(ctx, appt.ID, appt.Email)
		}
		if recErr != nil {
			s.log.WarnContext(ctx, "delivery_record_failed", "appointment_id", appt.ID, "err", recErr)
		}
	}

	return err
}

func (s *Service) rejectReason(reason string) {
	if s.prom != nil {
		s.prom.BookingRejections.WithLabelValues(reason).Inc()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
