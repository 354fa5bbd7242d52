package config

import (
	"os"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	RegistryBaseURL string
	RegistryTimeout time.Duration
	DatabaseURL     string
	KafkaBrokers    string
	AuditTopic      string
}

// DefaultRegistryTimeout bounds the single outbound attempt per pipeline run.
var DefaultRegistryTimeout = 10 * time.Second

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("BRIDGE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	baseURL := os.Getenv("REGISTRY_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3001"
	}

	timeout := DefaultRegistryTimeout
	if raw := os.Getenv("REGISTRY_TIMEOUT"); raw != "" {
		if duration, err := time.ParseDuration(raw); err == nil {
			timeout = duration
		}
	}

	topic := os.Getenv("AUDIT_TOPIC")
	if topic == "" {
		topic = "patient-bridge.audit"
	}

	return Server{
		Addr:            addr,
		RegistryBaseURL: baseURL,
		RegistryTimeout: timeout,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		AuditTopic:      topic,
	}
}
