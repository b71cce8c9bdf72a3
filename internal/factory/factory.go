package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/keyquest/internal/api"
	"github.com/mcoot/keyquest/internal/config"
	"github.com/mcoot/keyquest/internal/dependencies/clock"
	"github.com/mcoot/keyquest/internal/dependencies/random"
	"github.com/mcoot/keyquest/internal/identitylock"
	"github.com/mcoot/keyquest/internal/resilience"
	"github.com/mcoot/keyquest/internal/security"
	"github.com/mcoot/keyquest/internal/services/identity"
	"github.com/mcoot/keyquest/internal/services/records"
	"github.com/mcoot/keyquest/internal/services/session"
	"github.com/mcoot/keyquest/internal/storage"
	"github.com/mcoot/keyquest/internal/storage/memory"
	redisstorage "github.com/mcoot/keyquest/internal/storage/redis"
	"github.com/mcoot/keyquest/internal/storage/sheets"
)

// redeemSecretBytes is the entropy of a generated redeem secret
const redeemSecretBytes = 32

// App contains all wired application components
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Storage
	Table storage.Table

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Retrier   *resilience.Retrier
	Locks     *identitylock.Locker
	Records   *records.Service
	Identity  *identity.Service
	Sessions  *session.RegistryStore
	Inspector *security.Inspector

	closer io.Closer
}

// New creates a new application with all dependencies wired
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	// Use no-op logger if not provided
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	table, closer, err := newTable(cfg.Store)
	if err != nil {
		return nil, err
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	app := newWithDependencies(cfg, table, clk, rnd, logger)
	app.closer = closer
	return app, nil
}

// newTable creates the record table selected by the store config
func newTable(cfg config.StoreConfig) (storage.Table, io.Closer, error) {
	switch cfg.Type {
	case "", config.StoreMemory:
		return memory.New(), nil, nil
	case config.StoreRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.Table = cfg.Table
		t, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return t, t, nil
	case config.StoreSheets:
		sheetsCfg := sheets.DefaultConfig()
		sheetsCfg.BaseURL = cfg.Sheets.BaseURL
		sheetsCfg.Token = cfg.Sheets.Token
		sheetsCfg.Table = cfg.Table
		sheetsCfg.RequestsPerSecond = cfg.Sheets.RequestsPerSecond
		sheetsCfg.Timeout = cfg.Sheets.Timeout
		c, err := sheets.New(sheetsCfg)
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	default:
		return nil, nil, fmt.Errorf("invalid store type %q: must be one of memory, redis, sheets", cfg.Type)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(cfg *config.Config, table storage.Table, clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	retrier := resilience.New(
		resilience.Policy{
			MaxAttempts:   cfg.Retry.MaxAttempts,
			RateLimitWait: cfg.Retry.RateLimitWait,
			BaseBackoff:   cfg.Retry.BaseBackoff,
			MaxBackoff:    cfg.Retry.MaxBackoff,
		},
		resilience.BreakerConfig{
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			OpenTimeout:         cfg.Breaker.OpenTimeout,
		},
		clk,
		logger,
	)

	secret := cfg.Identity.RedeemSecret
	if secret == "" {
		logger.Warn("no redeem secret configured, generated one for this process; redeem codes will change on restart")
		secret = rnd.Token(redeemSecretBytes)
	}

	locks := identitylock.New()
	recordService := records.New(table, retrier, clk, logger)
	identityService := identity.New(recordService, locks, identity.Config{
		SelfRegistration: cfg.Identity.SelfRegistration,
		RedeemSecret:     secret,
	}, logger)
	sessions := session.NewRegistryStore(session.Config{
		RequiredKeys: cfg.Game.RequiredKeys,
		IdleTTL:      cfg.Game.SessionIdleTTL,
	}, clk, rnd, logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Table:     table,
		Clock:     clk,
		Random:    rnd,
		Retrier:   retrier,
		Locks:     locks,
		Records:   recordService,
		Identity:  identityService,
		Sessions:  sessions,
		Inspector: security.NewInspector(),
	}
}

// Router builds the HTTP API for the app
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:         a.Logger,
		Identity:       a.Identity,
		Sessions:       a.Sessions,
		Records:        a.Records,
		Inspector:      a.Inspector,
		Mission:        a.Config.Mission,
		OfflineMode:    a.Config.Identity.OfflineMode,
		AttackRedirect: a.Config.Security.AttackRedirect,
		StoreType:      a.Config.Store.Type,
	})
}

// Close releases store connections
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
