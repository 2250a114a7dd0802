package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSecretKey is the insecure development fallback for SECRET_KEY.
const DefaultSecretKey = "hospital_management_secret_key"

type Config struct {
	Env           string
	Port          int
	DBURL         string
	DBAutoMigrate bool
	Storage       string // "postgres" | "memory"

	SecretKey    string
	SessionTTL   time.Duration
	SessionStore string // "redis" | "memory"
	CookieSecure bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DoctorAllowlist []string
	Departments     []string
	Location        *time.Location

	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPFrom       string
	MailRatePerSec float64
	NotifyTimeout  time.Duration

	AdminEmail    string
	AdminPassword string
	AdminName     string

	OTLPEndpoint   string
	AllowedOrigins []string
	MaxBodyBytes   int64
	FormRateLimit  int // requests per minute per client on login/signup/contact
}

func Load() Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	return Config{
		Env:           env,
		Port:          getEnvInt("PORT", 5000),
		DBURL:         buildDBURL(),
		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),
		Storage:       getEnv("STORAGE", "postgres"),

		SecretKey:    getEnv("SECRET_KEY", DefaultSecretKey),
		SessionTTL:   getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionStore: getEnv("SESSION_STORE", "redis"),
		CookieSecure: getEnvBool("COOKIE_SECURE", env == "prod"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DoctorAllowlist: getEnvList("DOCTOR_ALLOWLIST", []string{"Dr. Naveen Reddy", "Dr. Manoj Patel", "Dr. Shalini Desai"}),
		Departments:     getEnvList("DEPARTMENTS", []string{"Cardiology", "Neurology", "Orthopedics", "Pediatrics", "General Medicine"}),
		Location:        loadLocation(getEnv("APP_TIMEZONE", "")),

		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnvInt("SMTP_PORT", 587),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:       getEnv("SMTP_FROM", "no-reply@carebook.local"),
		MailRatePerSec: getEnvFloat("MAIL_RATE_PER_SEC", 2),
		NotifyTimeout:  getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),

		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),
		MaxBodyBytes:   int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		FormRateLimit:  getEnvInt("FORM_RATE_LIMIT", 20),
	}
}

// OpenDoctorMode reports whether any non-empty doctor name is accepted.
func (c Config) OpenDoctorMode() bool {
	return len(c.DoctorAllowlist) == 0
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "root")
	pass := getEnv("DB_PASSWORD", "3006")
	name := getEnv("DB_NAME", "hospital_management")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		fmt.Println("APP_TIMEZONE:", err)
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			fmt.Println(key+":", err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fmt.Println(key+":", err)
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fmt.Println(key+":", err)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			fmt.Println(key+":", err)
			return fallback
		}
		return d
	}
	return fallback
}

// getEnvList splits a comma separated value. An explicitly empty variable
// ("KEY=") yields an empty list rather than the fallback.
func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
