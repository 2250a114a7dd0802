package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/carebook/internal/domain/user"
	"github.com/geocoder89/carebook/internal/observability"
	"github.com/geocoder89/carebook/internal/security"
	"github.com/geocoder89/carebook/internal/session"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, name, email, passwordHash, role string) (user.User, error)
	RecordLogin(ctx context.Context, userID string, at time.Time) error
}

type SessionIssuer interface {
	Establish(ctx context.Context, w http.ResponseWriter, r *http.Request, u user.User) (session.Identity, error)
	Terminate(ctx context.Context, w http.ResponseWriter, r *http.Request)
}

type AuthHandler struct {
	users    UserStore
	sessions SessionIssuer
	prom     *observability.Prom
	now      func() time.Time
}

func NewAuthHandler(users UserStore, sessions SessionIssuer, prom *observability.Prom) *AuthHandler {
	RegisterValidators()

	return &AuthHandler{
		users:    users,
		sessions: sessions,
		prom:     prom,
		now:      time.Now,
	}
}

const (
	msgInvalidCredentials = "Invalid email or password"
	msgEmailTaken         = "Email already registered"
)

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,max=254"`
	Password string `json:"password" form:"password" binding:"required,max=72"`
}

type SignUpRequest struct {
	Name     string `json:"name" form:"name" binding:"required,notblank,max=120"`
	Email    string `json:"email" form:"email" binding:"required,email,max=254"`
	Password string `json:"password" form:"password" binding:"required,min=8,max_bytes=72"`
}

func (h *AuthHandler) LoginForm(ctx *gin.Context) {
	RespondOK(ctx, http.StatusOK, gin.H{
		"page":   "login",
		"fields": []string{"email", "password"},
		"action": "/login",
	})
}

func (h *AuthHandler) SignUpForm(ctx *gin.Context) {
	RespondOK(ctx, http.StatusOK, gin.H{
		"page":   "signup",
		"fields": []string{"name", "email", "password"},
		"action": ctx.FullPath(),
	})
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !Bind(ctx, &req) {
		return
	}

	req.Email = user.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	// advisory only; the unique constraint below is authoritative
	_, err := h.users.GetByEmail(cctx, req.Email)
	switch {
	case err == nil:
		RespondConflict(ctx, "email_taken", msgEmailTaken)
		return
	case !errors.Is(err, user.ErrNotFound):
		slog.Default().ErrorContext(cctx, "signup_lookup_failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.users.Create(cctx, req.Name, req.Email, hash, user.RolePatient)
	if err != nil {
		if errors.Is(err, user.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "email_taken", msgEmailTaken)
			return
		}
		slog.Default().ErrorContext(cctx, "signup_create_failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	if _, err := h.sessions.Establish(cctx, ctx.Writer, ctx.Request, u); err != nil {
		// the account exists; a retry would only hit the duplicate check
		slog.Default().ErrorContext(cctx, "session_establish_failed", "err", err, "user_id", u.ID)
		RespondError(ctx, http.StatusInternalServerError, "session_failed",
			"Your account was created, but we could not sign you in. Please log in.",
			gin.H{"redirect": "/login"})
		return
	}
	h.countSession("signup")

	RespondOK(ctx, http.StatusCreated, gin.H{
		"message":  "Registration successful",
		"redirect": "/dashboard",
	})
}

// Login reports unknown email and wrong password identically.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !Bind(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, user.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnauthorized(ctx, "invalid_credentials", msgInvalidCredentials)
			return
		}
		slog.Default().ErrorContext(cctx, "login_lookup_failed", "err", err)
		RespondInternal(ctx, "Could not log in")
		return
	}

	if !security.VerifyPassword(u.PasswordHash, req.Password) {
		RespondUnauthorized(ctx, "invalid_credentials", msgInvalidCredentials)
		return
	}

	who, err := h.sessions.Establish(cctx, ctx.Writer, ctx.Request, u)
	if err != nil {
		slog.Default().ErrorContext(cctx, "session_establish_failed", "err", err, "user_id", u.ID)
		RespondInternal(ctx, "Could not create session")
		return
	}
	h.countSession("login")

	if err := h.users.RecordLogin(cctx, u.ID, h.now().UTC()); err != nil {
		slog.Default().WarnContext(cctx, "record_login_failed", "err", err, "user_id", u.ID)
	}

	redirect := "/dashboard"
	if who.IsAdmin() {
		redirect = "/admin/contact-queries"
	}

	RespondOK(ctx, http.StatusOK, gin.H{"redirect": redirect})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.sessions.Terminate(ctx.Request.Context(), ctx.Writer, ctx.Request)
	ctx.Redirect(http.StatusFound, "/login")
}

func (h *AuthHandler) countSession(via string) {
	if h.prom != nil {
		h.prom.SessionsEstablished.WithLabelValues(via).Inc()
	}
}
