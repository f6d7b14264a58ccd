// Package config loads the explicit runtime configuration. The struct is
// constructed once at startup and passed by reference into the components
// that need it; there is no global mutable state.
package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	Port         string `json:"port"`
	DebugEnabled bool   `json:"debug_enabled"`
	DebugLogSSE  bool   `json:"debug_log_sse"`

	// Upstream endpoint
	UpstreamURL   string `json:"upstream_url"`
	UpstreamToken string `json:"upstream_token"`
	UpstreamModel string `json:"upstream_model"`

	// Envelope behavior
	DefaultModel    string `json:"default_model"`
	StreamChunkSize int    `json:"stream_chunk_size"`

	// Environment block sent upstream
	WorkingDirectory string `json:"working_directory"`

	// Host protection
	RequestTimeout     int  `json:"request_timeout"`
	ConcurrencyLimit   int  `json:"concurrency_limit"`
	ConcurrencyTimeout int  `json:"concurrency_timeout"`
	AdaptiveTimeout    bool `json:"adaptive_timeout"`

	// Proxy configuration for the outbound upstream call
	ProxyHTTP   string   `json:"proxy_http"`
	ProxyHTTPS  string   `json:"proxy_https"`
	ProxyUser   string   `json:"proxy_user"`
	ProxyPass   string   `json:"proxy_pass"`
	ProxyBypass []string `json:"proxy_bypass"`
}

func Load(path string) (*Config, string, error) {
	resolvedPath, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(resolvedPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Config{}
	ext := strings.ToLower(filepath.Ext(resolvedPath))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, "", fmt.Errorf("failed to parse config json: %w", err)
		}
	case ".yaml", ".yml":
		m, err := parseYAMLFlat(data)
		if err != nil {
			return nil, "", err
		}
		raw, err := json.Marshal(m)
		if err != nil {
			return nil, "", fmt.Errorf("failed to normalize yaml: %w", err)
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, "", fmt.Errorf("failed to parse config yaml: %w", err)
		}
	default:
		return nil, "", fmt.Errorf("unsupported config extension: %s", ext)
	}

	ApplyDefaults(&cfg)
	return &cfg, resolvedPath, nil
}

func resolveConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return path, nil
	}

	candidates := []string{"config.json", "config.yaml", "config.yml"}
	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	return "", errors.New("config.json/config.yaml/config.yml not found")
}

func ApplyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = "https://nimbus-agent.internal.example.com/agent/chat"
	}
	if cfg.UpstreamModel == "" {
		cfg.UpstreamModel = "nimbus-coder-v1"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-3.5-turbo"
	}
	if cfg.StreamChunkSize == 0 {
		cfg.StreamChunkSize = 500
	}
	if cfg.WorkingDirectory == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.WorkingDirectory = wd
		}
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 600
	}
	if cfg.ConcurrencyLimit == 0 {
		cfg.ConcurrencyLimit = 100
	}
	if cfg.ConcurrencyTimeout == 0 {
		cfg.ConcurrencyTimeout = 300
	}
}

func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func parseYAMLFlat(data []byte) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Only strip inline comments where # is preceded by whitespace,
		// to avoid corrupting values containing # (URLs, tokens, etc.)
		if idx := strings.Index(line, " #"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		} else if idx := strings.Index(line, "\t#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid yaml line: %q", line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		// Quoted values stay strings; only bare scalars get type inference.
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			out[key] = value[1 : len(value)-1]
			continue
		}
		if value == "" {
			out[key] = ""
			continue
		}
		if value == "true" || value == "false" {
			out[key] = value == "true"
			continue
		}
		if num, err := strconv.Atoi(value); err == nil {
			out[key] = num
			continue
		}
		out[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
