package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	envVar        = "ENV"
	backendURLVar = "BACKEND_URL"
)

type EnvVars struct {
	port    string
	appName string
	env     string
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.port
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.appName
}

func (e EnvVars) GetEnv() string {
	if e.env == "" {
		return "DEV"
	}
	return e.env
}

type Backend struct {
	backendURL     string
	requestTimeout time.Duration
}

var _ BackendConfig = Backend{}

// GetBackendURL returns the base URL of the attendance backend API (e.g. "https://api.example.com")
func (b Backend) GetBackendURL() string {
	return b.backendURL
}

// GetRequestTimeout bounds every backend call, including login and the profile refresh.
func (b Backend) GetRequestTimeout() time.Duration {
	return b.requestTimeout
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// envInt parses integer env vars with fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
