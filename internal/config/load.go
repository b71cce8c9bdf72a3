package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location
const PathEnvVar = "KEYQUEST_CONFIG"

// DefaultPaths are searched in order when PathEnvVar is unset
var DefaultPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/keyquest/config.yaml",
}

// envMappings maps environment variable names (lower case) to config paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"keyquest_host":             "server.host",
	"keyquest_port":             "server.port",
	"keyquest_read_timeout":     "server.read_timeout",
	"keyquest_write_timeout":    "server.write_timeout",
	"keyquest_shutdown_timeout": "server.shutdown_timeout",

	"keyquest_log_level":  "log.level",
	"keyquest_log_format": "log.format",

	"keyquest_store_type":        "store.type",
	"keyquest_redis_url":         "store.redis_url",
	"keyquest_store_table":       "store.table",
	"keyquest_sheets_base_url":   "store.sheets.base_url",
	"keyquest_sheets_token":      "store.sheets.token",
	"keyquest_sheets_rps":        "store.sheets.requests_per_second",
	"keyquest_sheets_timeout":    "store.sheets.timeout",
	"keyquest_retry_attempts":    "retry.max_attempts",
	"keyquest_rate_limit_wait":   "retry.rate_limit_wait",
	"keyquest_base_backoff":      "retry.base_backoff",
	"keyquest_max_backoff":       "retry.max_backoff",
	"keyquest_breaker_failures":  "breaker.consecutive_failures",
	"keyquest_breaker_open_time": "breaker.open_timeout",

	"keyquest_self_registration": "identity.self_registration",
	"keyquest_offline_mode":      "identity.offline_mode",
	"keyquest_redeem_secret":     "identity.redeem_secret",

	"keyquest_mission":          "mission",
	"keyquest_attack_redirect":  "security.attack_redirect",
	"keyquest_required_keys":    "game.required_keys",
	"keyquest_session_idle_ttl": "game.session_idle_ttl",
}

// sliceKeys are parsed from comma separated strings when set from the environment
var sliceKeys = []string{
	"game.required_keys",
}

// Load reads configuration from defaults, the config file and the environment
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file path; "" skips the file layer
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSlices(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Mission = strings.ToUpper(strings.TrimSpace(cfg.Mission))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

func splitSlices(k *koanf.Koanf) error {
	for _, path := range sliceKeys {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Store.Type == StoreSheets && c.Store.Sheets.BaseURL == "" {
		return errors.New("store.sheets.base_url is required when store.type is sheets")
	}
	return nil
}
