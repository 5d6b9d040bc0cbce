package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "scolaris/pkg/platform/strings"
)

// Config captures everything the server needs from its environment.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string
	Redis         RedisConfig
	Kafka         KafkaConfig
	Scan          ScanConfig
}

// RedisConfig drives the optional dossier-count cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CountTTL     time.Duration
}

// KafkaConfig drives the optional audit publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ScanConfig tunes the duplicate scanner. The defaults match the behaviour
// the operator UI was built against: 20-group commit batches with a short
// pause between them, progress refresh every 50 students, and scan jobs kept
// around for a day after they finish.
type ScanConfig struct {
	PageSize      int
	BatchSize     int
	BatchPause    time.Duration
	ProgressEvery int
	JobTTL        time.Duration
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("SCOLARIS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("SCOLARIS_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("SCOLARIS_KAFKA_BROKERS"); raw != "" {
		brokers = pstrings.DedupeAndTrim(strings.Split(raw, ","))
	}
	topic := os.Getenv("SCOLARIS_KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "scolaris.audit"
	}

	return Config{
		Addr:          addr,
		DatabaseURL:   os.Getenv("SCOLARIS_DATABASE_URL"),
		JWTSigningKey: jwtSigningKey,
		Redis: RedisConfig{
			URL:          os.Getenv("SCOLARIS_REDIS_URL"),
			PoolSize:     envInt("SCOLARIS_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("SCOLARIS_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("SCOLARIS_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("SCOLARIS_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("SCOLARIS_REDIS_WRITE_TIMEOUT", 3*time.Second),
			CountTTL:     envDuration("SCOLARIS_DOSSIER_COUNT_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		Scan: ScanConfig{
			PageSize:      envInt("SCOLARIS_SCAN_PAGE_SIZE", 500),
			BatchSize:     envInt("SCOLARIS_SCAN_BATCH_SIZE", 20),
			BatchPause:    envDuration("SCOLARIS_SCAN_BATCH_PAUSE", 50*time.Millisecond),
			ProgressEvery: envInt("SCOLARIS_SCAN_PROGRESS_EVERY", 50),
			JobTTL:        envDuration("SCOLARIS_SCAN_JOB_TTL", 24*time.Hour),
		},
	}
}

func envInt(name string, fallback int) int {
	if raw := os.Getenv(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(name); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
