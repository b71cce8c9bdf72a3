// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in increasing order of precedence.
package config

import (
	"net"
	"strconv"
	"time"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSheets = "sheets"
)

// Mission toggles
const (
	MissionEnable  = "ENABLE"
	MissionDisable = "DISABLE"
)

// Config is the complete service configuration
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Store    StoreConfig    `koanf:"store"`
	Retry    RetryConfig    `koanf:"retry"`
	Breaker  BreakerConfig  `koanf:"breaker"`
	Identity IdentityConfig `koanf:"identity"`
	Security SecurityConfig `koanf:"security"`
	Game     GameConfig     `koanf:"game"`

	// Mission is read by clients; DISABLE short-circuits every mutating route
	Mission string `koanf:"mission" validate:"oneof=ENABLE DISABLE"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=0,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

type StoreConfig struct {
	Type     string       `koanf:"type" validate:"oneof=memory redis sheets"`
	RedisURL string       `koanf:"redis_url" validate:"required_if=Type redis"`
	Table    string       `koanf:"table" validate:"required"`
	Sheets   SheetsConfig `koanf:"sheets"`
}

type SheetsConfig struct {
	BaseURL           string        `koanf:"base_url" validate:"omitempty,url"`
	Token             string        `koanf:"token"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
}

type RetryConfig struct {
	MaxAttempts   int           `koanf:"max_attempts" validate:"min=1,max=10"`
	RateLimitWait time.Duration `koanf:"rate_limit_wait" validate:"gte=0"`
	BaseBackoff   time.Duration `koanf:"base_backoff" validate:"gte=0"`
	MaxBackoff    time.Duration `koanf:"max_backoff" validate:"gtefield=BaseBackoff"`
}

type BreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutive_failures"`
	OpenTimeout         time.Duration `koanf:"open_timeout" validate:"gt=0"`
}

type IdentityConfig struct {
	SelfRegistration bool   `koanf:"self_registration"`
	OfflineMode      bool   `koanf:"offline_mode"`
	RedeemSecret     string `koanf:"redeem_secret"`
}

type SecurityConfig struct {
	AttackRedirect string `koanf:"attack_redirect" validate:"required,startswith=/"`
}

type GameConfig struct {
	RequiredKeys   []string      `koanf:"required_keys" validate:"min=1,unique,dive,required"`
	SessionIdleTTL time.Duration `koanf:"session_idle_ttl" validate:"gte=0"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MissionEnabled reports whether mutating routes are open
func (c *Config) MissionEnabled() bool {
	return c.Mission == MissionEnable
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Type:  StoreMemory,
			Table: "attendees",
			Sheets: SheetsConfig{
				RequestsPerSecond: 5,
				Timeout:           10 * time.Second,
			},
		},
		Retry: RetryConfig{
			MaxAttempts:   3,
			RateLimitWait: 30 * time.Second,
			BaseBackoff:   500 * time.Millisecond,
			MaxBackoff:    8 * time.Second,
		},
		Breaker: BreakerConfig{
			ConsecutiveFailures: 5,
			OpenTimeout:         30 * time.Second,
		},
		Identity: IdentityConfig{
			SelfRegistration: true,
		},
		Security: SecurityConfig{
			AttackRedirect: "/attack-detected",
		},
		Game: GameConfig{
			RequiredKeys: []string{"key1", "key2", "key3", "key4"},
		},
		Mission: MissionEnable,
	}
}
