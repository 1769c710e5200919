package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"muster/internal/event"
)

// Server captures service level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL selects the postgres event store; empty means the
	// in-memory store (dev mode).
	DatabaseURL string

	Redis    RedisConfig
	CacheTTL time.Duration

	// KafkaBrokers enables the event stream sink when non-empty.
	KafkaBrokers []string
	EventTopic   string

	// PageLimit is the server-side cap on scan page size. Client limits
	// above it (or absent) are clamped to it.
	PageLimit int

	Recorder RecorderConfig

	Build BuildInfo
}

// RecorderConfig tunes the event recorder's buffering and backoff.
type RecorderConfig struct {
	// BufferSize bounds the retry buffer; a full buffer makes Record fail
	// rather than block the orchestration path.
	BufferSize int
	// AppendTimeout bounds one synchronous store append.
	AppendTimeout time.Duration
	// MinLevel drops events below this severity before persistence.
	MinLevel event.Level
}

// RedisConfig tunes the optional Redis cache connection.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// BuildInfo is the static metadata served by /v1/build-info.
type BuildInfo struct {
	APIRevision    string
	EngineRevision string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:          envOr("MUSTER_ADDR", ":8777"),
		JWTSigningKey: envOr("MUSTER_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		DatabaseURL:   os.Getenv("MUSTER_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("MUSTER_REDIS_URL"),
			PoolSize:     envInt("MUSTER_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("MUSTER_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("MUSTER_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("MUSTER_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("MUSTER_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		CacheTTL:   envDuration("MUSTER_EVENT_CACHE_TTL", time.Hour),
		EventTopic: envOr("MUSTER_EVENT_TOPIC", "muster-events"),
		PageLimit:  envInt("MUSTER_PAGE_LIMIT", 100),
		Recorder: RecorderConfig{
			BufferSize:    envInt("MUSTER_RECORDER_BUFFER", 1000),
			AppendTimeout: envDuration("MUSTER_RECORDER_APPEND_TIMEOUT", 2*time.Second),
			MinLevel:      envLevel("MUSTER_RECORDER_MIN_LEVEL", event.LevelInfo),
		},
		Build: BuildInfo{
			APIRevision:    envOr("MUSTER_API_REVISION", "1.0"),
			EngineRevision: envOr("MUSTER_ENGINE_REVISION", "1.0"),
		},
	}

	if brokers := os.Getenv("MUSTER_KAFKA_BROKERS"); brokers != "" {
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

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback event.Level) event.Level {
	if v := os.Getenv(key); v != "" {
		if l, err := event.ParseLevel(v); err == nil {
			return l
		}
	}
	return fallback
}
