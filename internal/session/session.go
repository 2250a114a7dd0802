package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/carebook/internal/auth"
	"github.com/geocoder89/carebook/internal/domain/user"
	"github.com/google/uuid"
)

const CookieName = "carebook_session"

var ErrNoSession = errors.New("no active session")

// Identity is the attribute set recovered for an authenticated request.
type Identity struct {
	SessionID string `json:"-"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == user.RoleAdmin
}

// Store keeps session records server-side. Load returns ErrNoSession for
// unknown or expired ids.
type Store interface {
	Save(ctx context.Context, sessionID string, id Identity, ttl time.Duration) error
	Load(ctx context.Context, sessionID string) (Identity, error)
	Delete(ctx context.Context, sessionID string) error
}

type Manager struct {
	store  Store
	tokens *auth.Manager
	secure bool
}

func NewManager(store Store, tokens *auth.Manager, secureCookie bool) *Manager {
	return &Manager{store: store, tokens: tokens, secure: secureCookie}
}

// Establish issues a fresh session for u, replacing any session the request
// already carried.
func (m *Manager) Establish(ctx context.Context, w http.ResponseWriter, r *http.Request, u user.User) (Identity, error) {
	if prev, ok := m.sessionIDFrom(r); ok {
		if err := m.store.Delete(ctx, prev); err != nil {
			slog.Default().WarnContext(ctx, "session_rotate_delete_failed", "err", err)
		}
	}

	id := Identity{
		SessionID: uuid.NewString(),
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
	}

	raw, expiresAt, err := m.tokens.GenerateSessionToken(id.SessionID, id.UserID)
	if err != nil {
		return Identity{}, err
	}

	if err := m.store.Save(ctx, id.SessionID, id, m.tokens.TTL()); err != nil {
		return Identity{}, err
	}

	m.setCookie(w, raw, expiresAt)
	return id, nil
}

// Current recovers the identity bound to the request's session cookie.
func (m *Manager) Current(r *http.Request) (Identity, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return Identity{}, ErrNoSession
	}

	claims, err := m.tokens.VerifySessionToken(c.Value)
	if err != nil {
		return Identity{}, ErrNoSession
	}

	id, err := m.store.Load(r.Context(), claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return Identity{}, ErrNoSession
		}
		return Identity{}, err
	}

	if id.UserID != claims.Subject {
		return Identity{}, ErrNoSession
	}

	id.SessionID = claims.SessionID
	return id, nil
}

// Terminate drops the server-side record and clears the cookie. It always
// clears the cookie, even when the session is already gone.
func (m *Manager) Terminate(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if sid, ok := m.sessionIDFrom(r); ok {
		if err := m.store.Delete(ctx, sid); err != nil {
			slog.Default().WarnContext(ctx, "session_delete_failed", "err", err)
		}
	}

	m.clearCookie(w)
}

func (m *Manager) sessionIDFrom(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}

	claims, err := m.tokens.VerifySessionToken(c.Value)
	if err != nil {
		return "", false
	}
	return claims.SessionID, true
}

func (m *Manager) setCookie(w http.ResponseWriter, raw string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    raw,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
