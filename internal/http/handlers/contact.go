package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/carebook/internal/domain/contact"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ContactStore interface {
	Create(ctx context.Context, req contact.CreateQueryRequest) (contact.Query, error)
	List(ctx context.Context) ([]contact.Query, error)
	UpdateStatus(ctx context.Context, id string, status contact.Status, at time.Time) error
}

type ContactHandler struct {
	repo ContactStore
	now  func() time.Time
}

func NewContactHandler(repo ContactStore) *ContactHandler {
	RegisterValidators()
	return &ContactHandler{repo: repo, now: time.Now}
}

const submittedAtLayout = "2006-01-02 15:04:05"

type contactQueryView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Message     string  `json:"message"`
	Status      string  `json:"status"`
	SubmittedAt string  `json:"submitted_at"`
	UpdatedAt   *string `json:"updated_at,omitempty"`
}

func toView(q contact.Query) contactQueryView {
	v := contactQueryView{
		ID:          q.ID,
		Name:        q.Name,
		Email:       q.Email,
		Message:     q.Message,
		Status:      string(q.Status),
		SubmittedAt: q.SubmittedAt.Format(submittedAtLayout),
	}
	if q.UpdatedAt != nil {
		s := q.UpdatedAt.Format(submittedAtLayout)
		v.UpdatedAt = &s
	}
	return v
}

func (h *ContactHandler) Submit(ctx *gin.Context) {
	var req contact.CreateQueryRequest

	if err := ctx.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondBind(ctx, err, &req)
			return
		}

		details := parseBindError(err, &req)
		msg := "All fields are required (name, email, message)"
		if fe, ok := firstFieldError(details); ok && fe.Rule == "contact_email" {
			msg = "Please enter a valid email address"
		}
		RespondBadRequest(ctx, msg, details)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || strings.TrimSpace(req.Message) == "" {
		RespondBadRequest(ctx, "All fields are required (name, email, message)", nil)
		return
	}

	q, err := h.repo.Create(ctx.Request.Context(), req)
	if err != nil {
		RespondInternal(ctx, "An error occurred while submitting your query. Please try again.")
		return
	}

	RespondOK(ctx, http.StatusOK, gin.H{
		"message":  "Thank you for your query! We will get back to you soon.",
		"query_id": q.ID,
	})
}

func (h *ContactHandler) List(ctx *gin.Context) {
	items, err := h.repo.List(ctx.Request.Context())
	if err != nil {
		RespondInternal(ctx, "Could not list contact queries")
		return
	}

	views := make([]contactQueryView, 0, len(items))
	for _, q := range items {
		views = append(views, toView(q))
	}

	RespondOK(ctx, http.StatusOK, gin.H{"queries": views})
}

func (h *ContactHandler) UpdateStatus(ctx *gin.Context) {
	id := ctx.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		RespondError(ctx, http.StatusBadRequest, "invalid_id", "Invalid query id", nil)
		return
	}

	var req contact.UpdateStatusRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if !req.Status.IsValid() {
		RespondBadRequest(ctx, "Invalid status. Must be pending, responded, or closed", nil)
		return
	}

	err := h.repo.UpdateStatus(ctx.Request.Context(), id, req.Status, h.now().UTC())
	if err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			RespondNotFound(ctx, "Query not found")
			return
		}
		RespondInternal(ctx, "Could not update query status")
		return
	}

	RespondOK(ctx, http.StatusOK, gin.H{"message": "Query status updated successfully"})
}
