package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/carebook/internal/auth"
	"github.com/geocoder89/carebook/internal/booking"
	"github.com/geocoder89/carebook/internal/config"
	"github.com/geocoder89/carebook/internal/db"
	"github.com/geocoder89/carebook/internal/domain/user"
	apphttp "github.com/geocoder89/carebook/internal/http"
	"github.com/geocoder89/carebook/internal/notifications"
	"github.com/geocoder89/carebook/internal/observability"
	"github.com/geocoder89/carebook/internal/repo/memory"
	"github.com/geocoder89/carebook/internal/security"
	"github.com/geocoder89/carebook/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.AppointmentConfirmationInput
	fail bool
}

func (n *recordingNotifier) SendAppointmentConfirmation(_ context.Context, in notifications.AppointmentConfirmationInput) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, in)
	return nil
}

type testApp struct {
	server       *httptest.Server
	users        *memory.UsersRepo
	appointments *memory.AppointmentsRepo
	contacts     *memory.ContactQueriesRepo
	deliveries   *memory.NotificationDeliveriesRepo
	notifier     *recordingNotifier
}

func testConfig() config.Config {
	return config.Config{
		Env:             "test",
		SecretKey:       "test-secret-key",
		SessionTTL:      time.Hour,
		DoctorAllowlist: []string{"Dr. Naveen Reddy", "Dr. Manoj Patel", "Dr. Shalini Desai"},
		Departments:     []string{"Cardiology", "Neurology", "Orthopedics"},
		Location:        time.UTC,
		AdminEmail:      "admin@example.com",
		AdminPassword:   "admin-password",
		AdminName:       "Test Admin",
		MaxBodyBytes:    1 << 20,
		FormRateLimit:   1000,
	}
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	security.Cost = bcrypt.MinCost

	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app := &testApp{
		users:        memory.NewUsersRepo(),
		appointments: memory.NewAppointmentsRepo(),
		contacts:     memory.NewContactQueriesRepo(),
		deliveries:   memory.NewNotificationDeliveriesRepo(),
		notifier:     &recordingNotifier{},
	}

	if err := db.EnsureAdminUser(context.Background(), app.users, cfg); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	sessions := session.NewManager(session.NewMemoryStore(cfg.SessionTTL), auth.NewManager(cfg.SecretKey, cfg.SessionTTL), false)

	svc := booking.NewService(app.appointments, app.notifier, booking.Config{
		DoctorAllowlist: cfg.DoctorAllowlist,
		Departments:     cfg.Departments,
		Location:        cfg.Location,
	}, logger, booking.WithMetrics(prom), booking.WithDeliveryRecorder(app.deliveries))

	router := apphttp.NewRouter(logger, apphttp.Deps{
		Users:        app.users,
		Appointments: app.appointments,
		Doctors:      memory.NewDoctorsRepo(memory.DefaultDoctors()...),
		Contacts:     app.contacts,
		Booking:      svc,
		Sessions:     sessions,
		Prom:         prom,
		Gatherer:     reg,
	}, cfg)

	app.server = httptest.NewServer(router)
	t.Cleanup(app.server.Close)

	return app
}

// newClient keeps cookies and does not follow redirects.
func (a *testApp) newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *testApp) do(t *testing.T, c *http.Client, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, a.server.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func (a *testApp) signUp(t *testing.T, c *http.Client, email string) {
	t.Helper()
	resp, body := a.do(t, c, http.MethodPost, "/signup", map[string]string{
		"name": "Asha Rao", "email": email, "password": "longenough",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d %v", resp.StatusCode, body)
	}
}

func futureDate() string {
	return time.Now().UTC().Add(72 * time.Hour).Format("2006-01-02")
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	app := setupApp(t)

	app.signUp(t, app.newClient(t), "asha@example.com")

	resp, body := app.do(t, app.newClient(t), http.MethodPost, "/register", map[string]string{
		"name": "Someone Else", "email": "asha@example.com", "password": "different1",
	})
	if resp.StatusCode != http.StatusConflict || body["message"] != "Email already registered" {
		t.Fatalf("expected 409 conflict, got %d %v", resp.StatusCode, body)
	}

	if _, err := app.users.GetByEmail(context.Background(), "asha@example.com"); err != nil {
		t.Fatalf("original account missing: %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	app := setupApp(t)
	app.signUp(t, app.newClient(t), "asha@example.com")

	c := app.newClient(t)
	r1, b1 := app.do(t, c, http.MethodPost, "/login", map[string]string{"email": "asha@example.com", "password": "wrong-pass"})
	r2, b2 := app.do(t, c, http.MethodPost, "/login", map[string]string{"email": "ghost@example.com", "password": "wrong-pass"})

	if r1.StatusCode != r2.StatusCode || b1["message"] != b2["message"] || b1["code"] != b2["code"] {
		t.Fatalf("responses differ: %d %v / %d %v", r1.StatusCode, b1, r2.StatusCode, b2)
	}

	resp, _ := app.do(t, c, http.MethodGet, "/dashboard", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected no session after failed logins, got %d", resp.StatusCode)
	}
}

func TestLoginRecordsLastLogin(t *testing.T) {
	app := setupApp(t)
	app.signUp(t, app.newClient(t), "asha@example.com")

	c := app.newClient(t)
	resp, body := app.do(t, c, http.MethodPost, "/login", map[string]string{"email": "asha@example.com", "password": "longenough"})
	if resp.StatusCode != http.StatusOK || body["redirect"] != "/dashboard" {
		t.Fatalf("login: %d %v", resp.StatusCode, body)
	}

	u, _ := app.users.GetByEmail(context.Background(), "asha@example.com")
	if u.LastLoginAt == nil {
		t.Fatal("expected last login to be recorded")
	}
}

func TestBookingFlow(t *testing.T) {
	app := setupApp(t)
	c := app.newClient(t)
	app.signUp(t, c, "asha@example.com")

	t.Run("past date rejected", func(t *testing.T) {
		resp, body := app.do(t, c, http.MethodPost, "/book-appointment", map[string]string{
			"doctor": "Dr. Naveen Reddy", "date": "2000-01-01", "time": "10:00",
		})
		if resp.StatusCode != http.StatusBadRequest || body["message"] != "Please select a future date and time" {
			t.Fatalf("expected 400 past-date, got %d %v", resp.StatusCode, body)
		}
	})

	t.Run("unknown doctor rejected", func(t *testing.T) {
		resp, body := app.do(t, c, http.MethodPost, "/book_appointment", map[string]string{
			"doctor": "Dr. Who", "date": futureDate(), "time": "10:00",
		})
		if resp.StatusCode != http.StatusBadRequest || body["message"] != "Please select a valid doctor" {
			t.Fatalf("expected 400 invalid doctor, got %d %v", resp.StatusCode, body)
		}
	})

	t.Run("valid booking sends confirmation", func(t *testing.T) {
		resp, body := app.do(t, c, http.MethodPost, "/book-appointment", map[string]string{
			"doctor": "Dr. Manoj Patel", "date": futureDate(), "time": "10:00",
		})
		if resp.StatusCode != http.StatusOK || body["message"] != booking.MessageBooked {
			t.Fatalf("expected booked, got %d %v", resp.StatusCode, body)
		}
		if len(app.notifier.sent) != 1 || app.notifier.sent[0].Name != "Asha Rao" {
			t.Fatalf("expected confirmation with session name, got %+v", app.notifier.sent)
		}
	})

	t.Run("email failure still books", func(t *testing.T) {
		app.notifier.mu.Lock()
		app.notifier.fail = true
		app.notifier.mu.Unlock()

		resp, body := app.do(t, c, http.MethodPost, "/book-appointment", map[string]string{
			"doctor": "Dr. Shalini Desai", "date": futureDate(), "time": "11:00",
		})
		if resp.StatusCode != http.StatusOK || body["message"] != booking.MessageBookedNoEmail {
			t.Fatalf("expected booked without email, got %d %v", resp.StatusCode, body)
		}
	})

	resp, body := app.do(t, c, http.MethodGet, "/my_appointments", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: %d", resp.StatusCode)
	}
	if items, _ := body["appointments"].([]any); len(items) != 2 {
		t.Fatalf("expected exactly the 2 accepted bookings, got %v", body["appointments"])
	}

	if ds := app.deliveries.All(); len(ds) != 2 || ds[0].Status != "sent" || ds[1].Status != "failed" {
		t.Fatalf("unexpected deliveries: %+v", ds)
	}
}

func TestConcurrentSameSlotBookingsBothSucceed(t *testing.T) {
	app := setupApp(t)
	c := app.newClient(t)
	app.signUp(t, c, "asha@example.com")

	payload := map[string]string{"doctor": "Dr. Naveen Reddy", "date": futureDate(), "time": "09:00"}

	var wg sync.WaitGroup
	codes := make(chan int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, _ := json.Marshal(payload)
			req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/book-appointment", bytes.NewReader(b))
			req.Header.Set("Content-Type", "application/json")
			resp, err := c.Do(req)
			if err != nil {
				codes <- 0
				return
			}
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		if code != http.StatusOK {
			t.Fatalf("expected both bookings to succeed, got %d", code)
		}
	}

	u, _ := app.users.GetByEmail(context.Background(), "asha@example.com")
	items, _ := app.appointments.ListByUser(context.Background(), u.ID)
	if len(items) != 2 || items[0].ID == items[1].ID {
		t.Fatalf("expected two distinct rows, got %+v", items)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app := setupApp(t)
	c := app.newClient(t)

	req, _ := http.NewRequest(http.MethodGet, app.server.URL+"/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("expected redirect to login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	r2, _ := app.do(t, c, http.MethodPost, "/book-appointment", map[string]string{"doctor": "Dr. Naveen Reddy"})
	if r2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", r2.StatusCode)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	app := setupApp(t)
	c := app.newClient(t)
	app.signUp(t, c, "asha@example.com")

	if resp, _ := app.do(t, c, http.MethodGet, "/dashboard", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected dashboard access, got %d", resp.StatusCode)
	}

	resp, _ := app.do(t, c, http.MethodGet, "/logout", nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}

	if resp, _ := app.do(t, c, http.MethodGet, "/dashboard", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestContactIntakeAndAdmin(t *testing.T) {
	app := setupApp(t)
	public := app.newClient(t)

	resp, body := app.do(t, public, http.MethodPost, "/contact", map[string]string{"name": "A", "email": "a@b", "message": "hi"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a@b, got %d %v", resp.StatusCode, body)
	}
	if items, _ := app.contacts.List(context.Background()); len(items) != 0 {
		t.Fatalf("expected no rows, got %d", len(items))
	}

	resp, body = app.do(t, public, http.MethodPost, "/contact", map[string]string{"name": "A", "email": "a@b.com", "message": "hi"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", resp.StatusCode, body)
	}
	queryID, _ := body["query_id"].(string)
	if queryID == "" {
		t.Fatalf("expected query_id, got %v", body)
	}
	items, _ := app.contacts.List(context.Background())
	if len(items) != 1 || items[0].Status != "pending" {
		t.Fatalf("expected one pending row, got %+v", items)
	}

	// patients are not admins
	patient := app.newClient(t)
	app.signUp(t, patient, "asha@example.com")
	if resp, _ := app.do(t, patient, http.MethodGet, "/admin/contact-queries", nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for patient, got %d", resp.StatusCode)
	}

	admin := app.newClient(t)
	resp, body = app.do(t, admin, http.MethodPost, "/login", map[string]string{"email": "admin@example.com", "password": "admin-password"})
	if resp.StatusCode != http.StatusOK || body["redirect"] != "/admin/contact-queries" {
		t.Fatalf("admin login: %d %v", resp.StatusCode, body)
	}

	resp, body = app.do(t, admin, http.MethodGet, "/admin/contact-queries", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin list: %d", resp.StatusCode)
	}
	if qs, _ := body["queries"].([]any); len(qs) != 1 {
		t.Fatalf("expected 1 query, got %v", body["queries"])
	}

	tests := []struct {
		name string
		id   string
		body map[string]string
		want int
	}{
		{"bad status", queryID, map[string]string{"status": "archived"}, http.StatusBadRequest},
		{"unknown id", "9b2f1c1e-0000-4000-8000-000000000000", map[string]string{"status": "closed"}, http.StatusNotFound},
		{"ok", queryID, map[string]string{"status": "responded"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := app.do(t, admin, http.MethodPut, "/admin/contact-queries/"+tt.id+"/status", tt.body)
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d %v", tt.want, resp.StatusCode, body)
			}
		})
	}

	items, _ = app.contacts.List(context.Background())
	if items[0].Status != "responded" || items[0].UpdatedAt == nil {
		t.Fatalf("expected responded with updated_at, got %+v", items[0])
	}
}

func TestAdminSeedIsIdempotent(t *testing.T) {
	app := setupApp(t)
	if err := db.EnsureAdminUser(context.Background(), app.users, testConfig()); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	u, err := app.users.GetByEmail(context.Background(), "admin@example.com")
	if err != nil || u.Role != user.RoleAdmin {
		t.Fatalf("expected admin user, got %+v %v", u, err)
	}
}

func TestSeededAdminWithMixedCaseEmailCanLogIn(t *testing.T) {
	app := setupApp(t)

	cfg := testConfig()
	cfg.AdminEmail = " Boss@Example.com"
	if err := db.EnsureAdminUser(context.Background(), app.users, cfg); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp, body := app.do(t, app.newClient(t), http.MethodPost, "/login", map[string]string{
		"email": "Boss@Example.com", "password": cfg.AdminPassword,
	})
	if resp.StatusCode != http.StatusOK || body["redirect"] != "/admin/contact-queries" {
		t.Fatalf("expected admin login, got %d %v", resp.StatusCode, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupApp(t)
	resp, err := app.newClient(t).Get(app.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
