package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. Values come from the
// environment so main stays lean; development defaults keep a bare
// `go run ./cmd/server` working.
type Config struct {
	Addr string

	// DatabaseURL selects the Postgres-backed stores when set. Empty means
	// in-memory stores, which is the development and test default.
	DatabaseURL string

	// RedisURL selects the Redis token revocation list when set.
	RedisURL string

	JWTSigningKey string
	TokenTTL      time.Duration

	UploadDir        string
	AllowedFileTypes []string

	ShopifyAPIKey        string
	ShopifyAPISecret     string
	ShopifyWebhookSecret string
	FrontendURL          string

	// AuditKafkaBrokers enables the Kafka audit sink when non-empty.
	AuditKafkaBrokers []string
	AuditKafkaTopic   string

	// AuthRateLimit caps login and registration attempts per client IP
	// within AuthRateWindow. Zero disables throttling.
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	addr := os.Getenv("SIGNET_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	tokenTTL := 7 * 24 * time.Hour
	if raw := os.Getenv("TOKEN_TTL_HOURS"); raw != "" {
		if hours, err := strconv.Atoi(raw); err == nil && hours > 0 {
			tokenTTL = time.Duration(hours) * time.Hour
		}
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}

	allowedTypes := splitList(os.Getenv("ALLOWED_FILE_TYPES"))
	if len(allowedTypes) == 0 {
		allowedTypes = []string{"application/pdf", "image/png", "image/jpeg"}
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	auditTopic := os.Getenv("AUDIT_KAFKA_TOPIC")
	if auditTopic == "" {
		auditTopic = "signet.audit"
	}

	authRateLimit := 20
	if raw := os.Getenv("AUTH_RATE_LIMIT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			authRateLimit = n
		}
	}
	authRateWindow := time.Minute
	if raw := os.Getenv("AUTH_RATE_WINDOW_SECONDS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			authRateWindow = time.Duration(n) * time.Second
		}
	}

	return Config{
		Addr:                 addr,
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		JWTSigningKey:        jwtSigningKey,
		TokenTTL:             tokenTTL,
		UploadDir:            uploadDir,
		AllowedFileTypes:     allowedTypes,
		ShopifyAPIKey:        os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret:     os.Getenv("SHOPIFY_API_SECRET"),
		ShopifyWebhookSecret: os.Getenv("SHOPIFY_WEBHOOK_SECRET"),
		FrontendURL:          frontendURL,
		AuditKafkaBrokers:    splitList(os.Getenv("AUDIT_KAFKA_BROKERS")),
		AuditKafkaTopic:      auditTopic,
		AuthRateLimit:        authRateLimit,
		AuthRateWindow:       authRateWindow,
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
