package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Values come from environment
// variables so main stays lean; empty backing-service URLs select the
// in-memory implementations.
type Server struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL selects the postgres stores when set. Empty keeps the
	// in-memory stores, which is what tests and local demos use.
	DatabaseURL string

	Redis RedisConfig

	ZaloPay ZaloPayConfig

	// UploadDir is where multipart document uploads land; PublicBaseURL
	// prefixes the stored retrieval URLs handed back to clients.
	UploadDir     string
	PublicBaseURL string

	// KafkaBrokers enables the Kafka audit publisher when non-empty;
	// otherwise override audit events only go to the log.
	KafkaBrokers []string
	AuditTopic   string

	// Rate limit for the public payment endpoints.
	PaymentRateLimit  int
	PaymentRateWindow time.Duration

	// Connection timeouts for the HTTP server.
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
}

// RedisConfig carries connection settings for the optional redis backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ZaloPayConfig carries the payment gateway credentials and endpoints. The
// defaults are the gateway's published sandbox values.
type ZaloPayConfig struct {
	AppID          string
	Key1           string
	Key2           string
	CreateEndpoint string
	QueryEndpoint  string
	AppUser        string
	CallTimeout    time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:          envOr("COVERGATE_ADDR", ":8080"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		ZaloPay: ZaloPayConfig{
			AppID:          envOr("ZALOPAY_APP_ID", "2553"),
			Key1:           envOr("ZALOPAY_KEY1", "PcY4iZIKFCIdgZvA6ueMcMHHUbRLYjPL"),
			Key2:           envOr("ZALOPAY_KEY2", "kLtgPl8HHhfvMuDHPwKfgfsY4Ydm9eIz"),
			CreateEndpoint: envOr("ZALOPAY_ENDPOINT", "https://sb-openapi.zalopay.vn/v2/create"),
			QueryEndpoint:  envOr("ZALOPAY_QUERY_ENDPOINT", "https://sb-openapi.zalopay.vn/v2/query"),
			AppUser:        envOr("ZALOPAY_APP_USER", "test_demo"),
			CallTimeout:    15 * time.Second,
		},
		UploadDir:         envOr("UPLOAD_DIR", "uploads"),
		PublicBaseURL:     envOr("PUBLIC_BASE_URL", "http://localhost:8080"),
		AuditTopic:        envOr("AUDIT_TOPIC", "covergate.audit"),
		PaymentRateLimit:  envIntOr("PAYMENT_RATE_LIMIT", 60),
		PaymentRateWindow: time.Minute,
		ReadHeaderTimeout: envDurationOr("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		IdleTimeout:       envDurationOr("HTTP_IDLE_TIMEOUT", 60*time.Second),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

