package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

type Config struct {
	DatabaseURL     string
	TemporalAddress string
	HTTPListenAddr  string
	// MetricsAddr, when set, gives the worker a standalone /metrics
	// listener. The API serves /metrics on its main listener instead.
	MetricsAddr string
	LogLevel    string
	ServiceName string
	// SecretsKey is the base64-encoded 32-byte key used to encrypt stored
	// storage-provider credentials. Required by every role that touches
	// storage configurations.
	SecretsKey string
	// AgentTaskQueue is the Temporal task queue the artifact-producing
	// agent activities are registered on.
	AgentTaskQueue string
	// AgentDataDir is the root under which the agent finds project and
	// server data. AgentWorkDir is where it stages artifacts before upload.
	AgentDataDir string
	AgentWorkDir string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		TemporalAddress: getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		HTTPListenAddr:  getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ServiceName:     getEnv("SERVICE_NAME", ""),
		SecretsKey:      getEnv("SECRETS_KEY", ""),
		AgentTaskQueue:  getEnv("AGENT_TASK_QUEUE", "backup-agent"),
		AgentDataDir:    getEnv("AGENT_DATA_DIR", "/var/lib/backhaul"),
		AgentWorkDir:    getEnv("AGENT_WORK_DIR", "/var/tmp/backhaul"),
	}

	return cfg, nil
}

// Validate checks that every field the given role needs is set.
func (c *Config) Validate(role string) error {
	var missing []string
	need := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch role {
	case "backup-api":
		need("DATABASE_URL", c.DatabaseURL)
		need("TEMPORAL_ADDRESS", c.TemporalAddress)
		need("HTTP_LISTEN_ADDR", c.HTTPListenAddr)
		need("SECRETS_KEY", c.SecretsKey)
	case "worker":
		need("DATABASE_URL", c.DatabaseURL)
		need("TEMPORAL_ADDRESS", c.TemporalAddress)
		need("SECRETS_KEY", c.SecretsKey)
	case "backup-agent":
		need("TEMPORAL_ADDRESS", c.TemporalAddress)
		need("AGENT_TASK_QUEUE", c.AgentTaskQueue)
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config for %s: %s", role, strings.Join(missing, ", "))
	}

	if c.SecretsKey != "" {
		if _, err := c.SecretsKeyBytes(); err != nil {
			return err
		}
	}

	return nil
}

// SecretsKeyBytes decodes the credential-encryption key.
func (c *Config) SecretsKeyBytes() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.SecretsKey)
	if err != nil {
		return nil, fmt.Errorf("SECRETS_KEY is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("SECRETS_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
