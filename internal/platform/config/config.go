// Package config builds runtime configuration from the environment so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string

	// PostgresURL selects the durable verdict store; empty falls back to
	// the in-memory store.
	PostgresURL string

	// KafkaBrokers selects the Kafka dispatcher; empty falls back to the
	// log dispatcher.
	KafkaBrokers []string

	Redis RedisConfig

	Policy PolicyOverrides
}

// PolicyOverrides carries optional overrides for the standing check
// policy. Nil fields keep the defaults.
type PolicyOverrides struct {
	PassConfidence  *float64
	FailConfidence  *float64
	CarbonTolerance *float64
}

// RedisConfig configures the distributed project lock. An empty URL
// falls back to the in-process locker.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("VERITERRA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	var brokers []string
	if raw := os.Getenv("VERITERRA_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: os.Getenv("VERITERRA_JWT_SIGNING_KEY"),
		PostgresURL:   os.Getenv("VERITERRA_POSTGRES_URL"),
		KafkaBrokers:  brokers,
		Redis: RedisConfig{
			URL:          os.Getenv("VERITERRA_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Policy: PolicyOverrides{
			PassConfidence:  envFloat("VERITERRA_PASS_CONFIDENCE"),
			FailConfidence:  envFloat("VERITERRA_FAIL_CONFIDENCE"),
			CarbonTolerance: envFloat("VERITERRA_CARBON_TOLERANCE"),
		},
	}
}

// envFloat parses an optional float override; malformed values are
// ignored in favor of the default.
func envFloat(name string) *float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
