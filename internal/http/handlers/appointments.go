package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/carebook/internal/booking"
	"github.com/geocoder89/carebook/internal/domain/appointment"
	"github.com/geocoder89/carebook/internal/http/middlewares"
	"github.com/geocoder89/carebook/internal/session"
	"github.com/gin-gonic/gin"
)

type Booker interface {
	Book(ctx context.Context, who session.Identity, req booking.Request) (booking.Result, error)
	Doctors() []string
	Departments() []string
	OpenDoctorMode() bool
}

type AppointmentLister interface {
	ListByUser(ctx context.Context, userID string) ([]appointment.Appointment, error)
}

type AppointmentsHandler struct {
	booker Booker
	repo   AppointmentLister
}

func NewAppointmentsHandler(booker Booker, repo AppointmentLister) *AppointmentsHandler {
	return &AppointmentsHandler{booker: booker, repo: repo}
}

func (h *AppointmentsHandler) BookingForm(ctx *gin.Context) {
	who, _ := middlewares.IdentityFromContext(ctx)

	RespondOK(ctx, http.StatusOK, gin.H{
		"doctors":        h.booker.Doctors(),
		"departments":    h.booker.Departments(),
		"openDoctorMode": h.booker.OpenDoctorMode(),
		"name":           who.Name,
		"email":          who.Email,
	})
}

func (h *AppointmentsHandler) Book(ctx *gin.Context) {
	who, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Please log in to book an appointment")
		return
	}

	var req booking.Request
	if !Bind(ctx, &req) {
		return
	}

	res, err := h.booker.Book(ctx.Request.Context(), who, req)
	if err != nil {
		var verr *booking.ValidationError
		if errors.As(err, &verr) {
			RespondError(ctx, http.StatusBadRequest, "validation_failed", verr.Message, gin.H{"field": verr.Field})
			return
		}
		RespondInternal(ctx, "Could not book appointment. Please try again.")
		return
	}

	RespondOK(ctx, http.StatusOK, gin.H{
		"message":        res.Message,
		"appointment_id": res.Appointment.ID,
		"appointment":    res.Appointment,
	})
}

func (h *AppointmentsHandler) ListMine(ctx *gin.Context) {
	who, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Please log in to continue")
		return
	}

	items, err := h.repo.ListByUser(ctx.Request.Context(), who.UserID)
	if err != nil {
		RespondInternal(ctx, "Could not list appointments")
		return
	}

	RespondOK(ctx, http.StatusOK, gin.H{
		"appointments": items,
		"count":        len(items),
	})
}
