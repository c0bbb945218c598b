package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMailRatePerMinute bounds outgoing SMTP sends
	DefaultMailRatePerMinute = 10
	// DefaultNetworkTimeout bounds a single network operation such as an SMTP session
	DefaultNetworkTimeout = 30 * time.Second
	// DefaultMaxInputBytes bounds a single request line
	DefaultMaxInputBytes = 16 * 1024 * 1024
)

// SMTP holds outgoing mail settings used by send_email when the call does not supply its own
type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	StartTLS bool   `yaml:"starttls"`
}

// Config is the server configuration
type Config struct {
	OutputDir         string        `yaml:"output_dir"`
	DisabledTools     []string      `yaml:"disabled_tools"`
	PolicyPath        string        `yaml:"policy_path"`
	SMTP              SMTP          `yaml:"smtp"`
	MailRatePerMinute int           `yaml:"mail_rate_per_minute"`
	NetworkTimeout    time.Duration `yaml:"network_timeout"`
	MaxInputBytes     int           `yaml:"max_input_bytes"`
	LogToolErrors     bool          `yaml:"log_tool_errors"`
}

// HomeDir returns the per-user state directory (~/.mcp-office), overridable with MCP_OFFICE_HOME
func HomeDir() string {
	if dir := os.Getenv("MCP_OFFICE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mcp-office"
	}
	return filepath.Join(home, ".mcp-office")
}

// Default returns the built-in configuration
func Default() *Config {
	cwd, _ := os.Getwd()
	return &Config{
		OutputDir:         cwd,
		PolicyPath:        filepath.Join(HomeDir(), "policy.yaml"),
		SMTP:              SMTP{Port: 587, StartTLS: true},
		MailRatePerMinute: DefaultMailRatePerMinute,
		NetworkTimeout:    DefaultNetworkTimeout,
		MaxInputBytes:     DefaultMaxInputBytes,
	}
}

// DefaultPath is where Load looks for a config file when none is given
func DefaultPath() string {
	return filepath.Join(HomeDir(), "config.yaml")
}

// Load builds the configuration from defaults, then the YAML file at path (if it
// exists), then environment variables. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// optional
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.OutputDir = expandHome(cfg.OutputDir)
	cfg.PolicyPath = expandHome(cfg.PolicyPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = b
		return nil
	}

	str("MCP_OFFICE_OUTPUT_DIR", &c.OutputDir)
	str("MCP_OFFICE_POLICY", &c.PolicyPath)
	str("SMTP_HOST", &c.SMTP.Host)
	str("SMTP_USERNAME", &c.SMTP.Username)
	str("SMTP_PASSWORD", &c.SMTP.Password)
	str("SMTP_FROM", &c.SMTP.From)

	if v, ok := lookup("DISABLED_TOOLS"); ok && v != "" {
		c.DisabledTools = nil
		for name := range strings.SplitSeq(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				c.DisabledTools = append(c.DisabledTools, name)
			}
		}
	}

	if err := integer("SMTP_PORT", &c.SMTP.Port); err != nil {
		return err
	}
	if err := integer("MCP_OFFICE_MAIL_RATE", &c.MailRatePerMinute); err != nil {
		return err
	}
	if err := integer("MCP_OFFICE_MAX_INPUT_BYTES", &c.MaxInputBytes); err != nil {
		return err
	}
	if err := boolean("SMTP_STARTTLS", &c.SMTP.StartTLS); err != nil {
		return err
	}
	if err := boolean("LOG_TOOL_ERRORS", &c.LogToolErrors); err != nil {
		return err
	}

	if v, ok := lookup("MCP_OFFICE_NETWORK_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MCP_OFFICE_NETWORK_TIMEOUT %q: %w", v, err)
		}
		c.NetworkTimeout = d
	}
	return nil
}

// Validate rejects settings that cannot work
func (c *Config) Validate() error {
	if c.MailRatePerMinute < 0 {
		return fmt.Errorf("mail_rate_per_minute must not be negative, got %d", c.MailRatePerMinute)
	}
	if c.NetworkTimeout < 0 {
		return fmt.Errorf("network_timeout must not be negative, got %s", c.NetworkTimeout)
	}
	if c.MaxInputBytes < 0 {
		return fmt.Errorf("max_input_bytes must not be negative, got %d", c.MaxInputBytes)
	}
	if c.SMTP.Port != 0 && (c.SMTP.Port < 1 || c.SMTP.Port > 65535) {
		return fmt.Errorf("smtp.port must be between 1 and 65535, got %d", c.SMTP.Port)
	}
	return nil
}

// LogDir is where the server log and the tool error log live
func LogDir() string {
	return filepath.Join(HomeDir(), "logs")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
