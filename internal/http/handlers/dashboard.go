package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/carebook/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type UpcomingCounter interface {
	CountUpcomingByUser(ctx context.Context, userID string, now time.Time) (int, error)
}

type DashboardHandler struct {
	appointments UpcomingCounter
	now          func() time.Time
}

func NewDashboardHandler(appointments UpcomingCounter) *DashboardHandler {
	return &DashboardHandler{appointments: appointments, now: time.Now}
}

func (h *DashboardHandler) Show(ctx *gin.Context) {
	who, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Please log in to continue")
		return
	}

	payload := gin.H{
		"user": gin.H{
			"id":    who.UserID,
			"name":  who.Name,
			"email": who.Email,
			"role":  who.Role,
		},
	}

	upcoming, err := h.appointments.CountUpcomingByUser(ctx.Request.Context(), who.UserID, h.now())
	if err != nil {
		// the page still renders without the summary
		slog.Default().WarnContext(ctx.Request.Context(), "dashboard_count_failed", "err", err)
	} else {
		payload["upcomingAppointments"] = upcoming
	}

	RespondOK(ctx, http.StatusOK, payload)
}
