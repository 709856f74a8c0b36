package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	ListenAddr string               `json:"listen_addr" yaml:"listen_addr"`
	Database   DatabaseConfig       `json:"database" yaml:"database"`
	Auth       AuthConfig           `json:"auth" yaml:"auth"`
	Security   SecurityConfig       `json:"security" yaml:"security"`
	Gemini     GeminiConfig         `json:"gemini" yaml:"gemini"`
	Runner     RunnerConfig         `json:"runner" yaml:"runner"`
	Probes     ProbeDefaultsConfig  `json:"probes" yaml:"probes"`
	Observer   ObservabilityConfig  `json:"observability" yaml:"observability"`
	Limits     UserQuickLimitConfig `json:"limits" yaml:"limits"`
}

type DatabaseConfig struct {
	DSN            string `json:"dsn" yaml:"dsn"`
	MaxConns       int32  `json:"max_conns" yaml:"max_conns"`
	MigrationsPath string `json:"migrations_path" yaml:"migrations_path"`
}

type AuthConfig struct {
	SessionTTL string `json:"session_ttl" yaml:"session_ttl"`
	CookieName string `json:"cookie_name" yaml:"cookie_name"`
}

type SecurityConfig struct {
	AdminToken string `json:"admin_token" yaml:"admin_token"`
}

// GeminiConfig bounds model usage so a burst of runs cannot burn through
// the provider quota for the whole day.
type GeminiConfig struct {
	Model          string `json:"model" yaml:"model"`
	CallsPerMinute int    `json:"calls_per_minute" yaml:"calls_per_minute"`
	DailyCallLimit int    `json:"daily_call_limit" yaml:"daily_call_limit"`
}

type RunnerConfig struct {
	MaxParallelRuns int `json:"max_parallel_runs" yaml:"max_parallel_runs"`
}

type ProbeDefaultsConfig struct {
	TargetHosts   []string `json:"target_hosts" yaml:"target_hosts"`
	DNSServers    []string `json:"dns_servers" yaml:"dns_servers"`
	PacketCount   int      `json:"packet_count" yaml:"packet_count"`
	MaxRetries    int      `json:"max_retries" yaml:"max_retries"`
	RetryDelaySec int      `json:"retry_delay_sec" yaml:"retry_delay_sec"`
}

type ObservabilityConfig struct {
	OTLPEndpoint string  `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	ServiceName  string  `json:"service_name" yaml:"service_name"`
	SampleRatio  float64 `json:"sample_ratio" yaml:"sample_ratio"`
}

type UserQuickLimitConfig struct {
	QuickCheckRPM int `json:"quick_check_rpm" yaml:"quick_check_rpm"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr: ":8080",
		Database: DatabaseConfig{
			MaxConns:       10,
			MigrationsPath: "./migrations",
		},
		Auth: AuthConfig{
			SessionTTL: "8h",
			CookieName: "netsight_session",
		},
		Gemini: GeminiConfig{
			Model:          "gemini-1.5-flash",
			CallsPerMinute: 12,
			DailyCallLimit: 1000,
		},
		Runner: RunnerConfig{
			MaxParallelRuns: 2,
		},
		Probes: ProbeDefaultsConfig{
			TargetHosts:   []string{"8.8.8.8", "1.1.1.1"},
			DNSServers:    []string{"8.8.8.8", "1.1.1.1", "208.67.222.222"},
			PacketCount:   100,
			MaxRetries:    2,
			RetryDelaySec: 2,
		},
		Observer: ObservabilityConfig{
			ServiceName: "netsight-api",
			SampleRatio: 1,
		},
		Limits: UserQuickLimitConfig{
			QuickCheckRPM: 6,
		},
	}
}

func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json config: %w", err)
		}
	default:
		var yamlErr error
		if yamlErr = yaml.Unmarshal(data, &cfg); yamlErr == nil {
			break
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.New("config format not recognized (expected yaml/json)")
		}
	}
	normalizeConfig(&cfg)
	return cfg, nil
}

func normalizeConfig(cfg *ServerConfig) {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if strings.TrimSpace(cfg.Database.MigrationsPath) == "" {
		cfg.Database.MigrationsPath = "./migrations"
	}
	if strings.TrimSpace(cfg.Auth.CookieName) == "" {
		cfg.Auth.CookieName = "netsight_session"
	}
	if strings.TrimSpace(cfg.Auth.SessionTTL) == "" {
		cfg.Auth.SessionTTL = "8h"
	}
	if strings.TrimSpace(cfg.Gemini.Model) == "" {
		cfg.Gemini.Model = "gemini-1.5-flash"
	}
	if cfg.Gemini.CallsPerMinute <= 0 {
		cfg.Gemini.CallsPerMinute = 12
	}
	if cfg.Gemini.DailyCallLimit <= 0 {
		cfg.Gemini.DailyCallLimit = 1000
	}
	if cfg.Runner.MaxParallelRuns <= 0 {
		cfg.Runner.MaxParallelRuns = 2
	}
	if len(cfg.Probes.TargetHosts) == 0 {
		cfg.Probes.TargetHosts = []string{"8.8.8.8", "1.1.1.1"}
	}
	if len(cfg.Probes.DNSServers) == 0 {
		cfg.Probes.DNSServers = []string{"8.8.8.8", "1.1.1.1", "208.67.222.222"}
	}
	if cfg.Probes.PacketCount <= 0 {
		cfg.Probes.PacketCount = 100
	}
	if cfg.Probes.MaxRetries < 0 {
		cfg.Probes.MaxRetries = 2
	}
	if cfg.Probes.RetryDelaySec <= 0 {
		cfg.Probes.RetryDelaySec = 2
	}
	if cfg.Observer.SampleRatio <= 0 || cfg.Observer.SampleRatio > 1 {
		cfg.Observer.SampleRatio = 1
	}
	if strings.TrimSpace(cfg.Observer.ServiceName) == "" {
		cfg.Observer.ServiceName = "netsight-api"
	}
	if cfg.Limits.QuickCheckRPM <= 0 {
		cfg.Limits.QuickCheckRPM = 6
	}
}
