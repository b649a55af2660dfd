package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server    ServerConfig
	Assistant AssistantConfig
	Records   RecordsConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	assistant, err := loadAssistantConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Assistant: assistant,
		Records:   loadRecordsConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AssistantConfig describes the conversational backend webhook and its
// timeout budgets. Greeting and FAQ lookups hit the assistant's cold-start
// path, hence the separate extended budget.
type AssistantConfig struct {
	URL          string
	Timeout      time.Duration
	GreetTimeout time.Duration
	RetryExtra   time.Duration
}

func loadAssistantConfig() (AssistantConfig, error) {
	timeout, err := parseOptionalSecondsEnv("ASSISTANT_TIMEOUT")
	if err != nil {
		return AssistantConfig{}, err
	}
	greetTimeout, err := parseOptionalSecondsEnv("ASSISTANT_GREET_TIMEOUT")
	if err != nil {
		return AssistantConfig{}, err
	}
	retryExtra, err := parseOptionalSecondsEnv("ASSISTANT_RETRY_EXTRA")
	if err != nil {
		return AssistantConfig{}, err
	}

	cfg := AssistantConfig{
		// localhost can resolve differently on some setups; 127.0.0.1 is the
		// safer default for a local assistant.
		URL:          getEnvOrDefault("ASSISTANT_URL", "http://127.0.0.1:5005/webhooks/rest/webhook"),
		Timeout:      15 * time.Second,
		GreetTimeout: 25 * time.Second,
		RetryExtra:   10 * time.Second,
	}
	if timeout != nil {
		cfg.Timeout = *timeout
	}
	if greetTimeout != nil {
		cfg.GreetTimeout = *greetTimeout
	}
	if retryExtra != nil {
		cfg.RetryExtra = *retryExtra
	}
	return cfg, nil
}

// RecordsConfig describes the municipal records API base URL (the proxy
// layer that fronts citizens, departments, procedures and turnos).
type RecordsConfig struct {
	BaseURL string
}

func loadRecordsConfig() RecordsConfig {
	return RecordsConfig{
		BaseURL: getEnvOrDefault("RECORDS_API_URL", "http://localhost:8000/api/v1"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalSecondsEnv(key string) (*time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return nil, fmt.Errorf("invalid %s value %q: expected positive seconds", key, value)
	}
	d := time.Duration(seconds) * time.Second
	return &d, nil
}
