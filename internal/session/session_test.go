package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/carebook/internal/auth"
	"github.com/geocoder89/carebook/internal/domain/user"
	"github.com/geocoder89/carebook/internal/redisclient"
	"github.com/geocoder89/carebook/internal/session"
)

func newManager(store session.Store) *session.Manager {
	return session.NewManager(store, auth.NewManager("test-secret-key", time.Hour), false)
}

func testUser() user.User {
	return user.User{ID: "u-1", Name: "Asha", Email: "asha@example.com", Role: user.RolePatient}
}

// requestWithCookies copies the Set-Cookie headers of a recorder onto a new request.
func requestWithCookies(w *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge >= 0 && c.Value != "" {
			r.AddCookie(c)
		}
	}
	return r
}

func TestEstablishThenCurrent(t *testing.T) {
	m := newManager(session.NewMemoryStore(time.Hour))

	w := httptest.NewRecorder()
	id, err := m.Establish(context.Background(), w, httptest.NewRequest(http.MethodPost, "/login", nil), testUser())
	if err != nil {
		t.Fatalf("Establish error: %v", err)
	}

	got, err := m.Current(requestWithCookies(w))
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}

	if got.UserID != "u-1" || got.Email != "asha@example.com" || got.Role != user.RolePatient {
		t.Fatalf("unexpected identity: %+v", got)
	}
	if got.SessionID != id.SessionID {
		t.Fatalf("session id mismatch: %s vs %s", got.SessionID, id.SessionID)
	}
}

func TestCurrent_NoCookie(t *testing.T) {
	m := newManager(session.NewMemoryStore(time.Hour))

	_, err := m.Current(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != session.ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestCurrent_TamperedCookie(t *testing.T) {
	m := newManager(session.NewMemoryStore(time.Hour))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: "not.a.jwt"})

	if _, err := m.Current(r); err != session.ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestTerminate_InvalidatesServerSide(t *testing.T) {
	m := newManager(session.NewMemoryStore(time.Hour))

	w := httptest.NewRecorder()
	if _, err := m.Establish(context.Background(), w, httptest.NewRequest(http.MethodPost, "/login", nil), testUser()); err != nil {
		t.Fatalf("Establish error: %v", err)
	}
	r := requestWithCookies(w)

	out := httptest.NewRecorder()
	m.Terminate(context.Background(), out, r)

	// the old cookie still carries a valid signature but the record is gone
	if _, err := m.Current(r); err != session.ErrNoSession {
		t.Fatalf("expected ErrNoSession after terminate, got %v", err)
	}

	cleared := false
	for _, c := range out.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected session cookie to be cleared")
	}
}

func TestTerminate_WithoutSessionStillClearsCookie(t *testing.T) {
	m := newManager(session.NewMemoryStore(time.Hour))

	w := httptest.NewRecorder()
	m.Terminate(context.Background(), w, httptest.NewRequest(http.MethodGet, "/logout", nil))

	if len(w.Result().Cookies()) == 0 {
		t.Fatalf("expected a clearing cookie")
	}
}

func TestEstablish_RotatesPreviousSession(t *testing.T) {
	m := newManager(session.NewMemoryStore(time.Hour))

	first := httptest.NewRecorder()
	if _, err := m.Establish(context.Background(), first, httptest.NewRequest(http.MethodPost, "/login", nil), testUser()); err != nil {
		t.Fatalf("Establish error: %v", err)
	}
	oldReq := requestWithCookies(first)

	second := httptest.NewRecorder()
	if _, err := m.Establish(context.Background(), second, oldReq, testUser()); err != nil {
		t.Fatalf("Establish error: %v", err)
	}

	if _, err := m.Current(oldReq); err != session.ErrNoSession {
		t.Fatalf("expected previous session to be revoked, got %v", err)
	}
	if _, err := m.Current(requestWithCookies(second)); err != nil {
		t.Fatalf("expected new session to be valid: %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redisclient.New(redisclient.Config{Addr: addr})
	defer client.Close()

	store := session.NewRedisStore(client)
	ctx := context.Background()

	id := session.Identity{UserID: "u-9", Email: "r@example.com", Name: "R", Role: user.RoleAdmin}
	if err := store.Save(ctx, "sid-redis-test", id, time.Minute); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := store.Load(ctx, "sid-redis-test")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.UserID != id.UserID || got.Role != id.Role {
		t.Fatalf("unexpected identity: %+v", got)
	}

	if err := store.Delete(ctx, "sid-redis-test"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := store.Load(ctx, "sid-redis-test"); err != session.ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}
