package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/hr-console/internal/utils"
	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	BackendConfig
	SessionConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type BackendConfig interface {
	GetBackendURL() string
	GetRequestTimeout() time.Duration
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Backend
	Session
	Cors
}

// configFile mirrors the YAML schema of hrconsole.yaml.
type configFile struct {
	Service struct {
		Name string `yaml:"name"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"service"`
	Backend struct {
		BaseURL               string `yaml:"base_url"`
		RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	} `yaml:"backend"`
	Session struct {
		AllowedRoles         []string `yaml:"allowed_roles"`
		TokenStore           string   `yaml:"token_store"`
		RedisURL             string   `yaml:"redis_url"`
		File                 string   `yaml:"file"`
		TTLHours             int      `yaml:"ttl_hours"`
		RefreshLeewaySeconds int      `yaml:"refresh_leeway_seconds"`
		CookieSecure         *bool    `yaml:"cookie_secure"`
	} `yaml:"session"`
	Cors struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

// New returns the default configuration with environment overrides applied.
func New() Config {
	cfg := defaults()
	cfg.applyEnv()
	return cfg
}

// Load resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			var f configFile
			if err := yaml.Unmarshal(raw, &f); err != nil {
				return nil, fmt.Errorf("[config Load] parse %s: %w", path, err)
			}
			cfg.applyFile(f)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("[config Load] read %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if cfg.backendURL == "" {
		return nil, fmt.Errorf("[config Load] missing BACKEND_URL")
	}
	if len(cfg.allowedRoles) == 0 {
		return nil, fmt.Errorf("[config Load] allowed roles must not be empty")
	}
	return cfg, nil
}

func defaults() *mainConfig {
	return &mainConfig{
		EnvVars: EnvVars{
			port:    "8080",
			appName: "HR Console",
			env:     "DEV",
		},
		Backend: Backend{
			backendURL:     "http://localhost:8081",
			requestTimeout: 10 * time.Second,
		},
		Session: Session{
			allowedRoles:  []string{"admin", "hr"},
			tokenStore:    TokenStoreMemory,
			sessionFile:   defaultSessionFile(),
			sessionTTL:    24 * time.Hour,
			refreshLeeway: 60 * time.Second,
		},
		Cors: Cors{
			allowedOrigins: AllowedOrigins{"http://localhost:3000": nullValue{}},
		},
	}
}

func (c *mainConfig) applyFile(f configFile) {
	if f.Service.Name != "" {
		c.appName = f.Service.Name
	}
	if f.Service.Port > 0 {
		c.port = fmt.Sprintf("%d", f.Service.Port)
	}
	if f.Service.Env != "" {
		c.env = f.Service.Env
	}
	if f.Backend.BaseURL != "" {
		c.backendURL = f.Backend.BaseURL
	}
	if f.Backend.RequestTimeoutSeconds > 0 {
		c.requestTimeout = time.Duration(f.Backend.RequestTimeoutSeconds) * time.Second
	}
	if len(f.Session.AllowedRoles) > 0 {
		c.allowedRoles = f.Session.AllowedRoles
	}
	if f.Session.TokenStore != "" {
		c.tokenStore = strings.ToLower(f.Session.TokenStore)
	}
	if f.Session.RedisURL != "" {
		c.redisURL = f.Session.RedisURL
	}
	if f.Session.File != "" {
		c.sessionFile = f.Session.File
	}
	if f.Session.TTLHours > 0 {
		c.sessionTTL = time.Duration(f.Session.TTLHours) * time.Hour
	}
	if f.Session.RefreshLeewaySeconds > 0 {
		c.refreshLeeway = time.Duration(f.Session.RefreshLeewaySeconds) * time.Second
	}
	c.cookieSecure = utils.ValueOr(f.Session.CookieSecure, c.cookieSecure)
	if len(f.Cors.AllowedOrigins) > 0 {
		c.allowedOrigins = newAllowedOrigins(f.Cors.AllowedOrigins)
	}
}

func (c *mainConfig) applyEnv() {
	c.port = GetEnv(portEnvVar, c.port)
	c.appName = GetEnv(appNameVar, c.appName)
	c.env = GetEnv(envVar, c.env)
	c.backendURL = strings.TrimRight(GetEnv(backendURLVar, c.backendURL), "/")
	c.requestTimeout = time.Duration(envInt("REQUEST_TIMEOUT_SECONDS", int(c.requestTimeout.Seconds()))) * time.Second
	c.allowedRoles = envCSV("ALLOWED_ROLES", c.allowedRoles)
	c.tokenStore = strings.ToLower(GetEnv("TOKEN_STORE", c.tokenStore))
	c.redisURL = GetEnv("REDIS_URL", c.redisURL)
	c.sessionFile = GetEnv("SESSION_FILE", c.sessionFile)
	c.sessionTTL = time.Duration(envInt("SESSION_TTL_HOURS", int(c.sessionTTL.Hours()))) * time.Hour
	c.refreshLeeway = time.Duration(envInt("REFRESH_LEEWAY_SECONDS", int(c.refreshLeeway.Seconds()))) * time.Second
	c.cookieSecure = envBool("COOKIE_SECURE", c.cookieSecure)
	if origins := envCSV("ALLOWED_ORIGINS", nil); len(origins) > 0 {
		c.allowedOrigins = newAllowedOrigins(origins)
	}
}
