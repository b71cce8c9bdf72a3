package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/keyquest/internal/api/handler"
	"github.com/mcoot/keyquest/internal/api/middleware"
	"github.com/mcoot/keyquest/internal/config"
	sharedmw "github.com/mcoot/keyquest/internal/middleware"
	"github.com/mcoot/keyquest/internal/security"
	"github.com/mcoot/keyquest/internal/services/identity"
	"github.com/mcoot/keyquest/internal/services/records"
	"github.com/mcoot/keyquest/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger    *slog.Logger
	Identity  *identity.Service
	Sessions  *session.RegistryStore
	Records   *records.Service
	Inspector *security.Inspector

	// Mission is the configured mission toggle (ENABLE or DISABLE)
	Mission        string
	OfflineMode    bool
	AttackRedirect string
	StoreType      string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handler.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handler.MethodNotAllowed)

	// Create handlers
	sessionHandler := handler.NewSessionHandler(cfg.Sessions)
	identityHandler := handler.NewIdentityHandler(cfg.Identity, cfg.OfflineMode, cfg.Logger)
	systemHandler := handler.NewSystemHandler(cfg.Mission, cfg.StoreType, cfg.Records, cfg.Sessions)

	// Create middleware
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	loggingMiddleware := sharedmw.Logging(cfg.Logger)
	gatewayMiddleware := middleware.Gateway(cfg.Inspector, cfg.AttackRedirect, cfg.Logger)
	missionMiddleware := middleware.MissionGuard(func() bool { return cfg.Mission == config.MissionEnable })

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	// System routes (no user input, not inspected)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", systemHandler.Health).Methods(http.MethodGet)
	r.HandleFunc("/config", systemHandler.Config).Methods(http.MethodGet)
	r.HandleFunc("/admin/stats", systemHandler.Stats).Methods(http.MethodGet)
	r.HandleFunc(cfg.AttackRedirect, systemHandler.AttackDetected).Methods(http.MethodGet)

	// Everything carrying user input passes the validation gateway
	guarded := r.NewRoute().Subrouter()
	guarded.Use(gatewayMiddleware)
	guarded.HandleFunc("/session/{id}/validate", sessionHandler.Validate).Methods(http.MethodGet)
	guarded.HandleFunc("/session/{id}/progress", sessionHandler.Progress).Methods(http.MethodGet)
	guarded.HandleFunc("/identity/{email}", identityHandler.Get).Methods(http.MethodGet)

	// Mutating routes are additionally closed while the mission is disabled
	mutating := guarded.NewRoute().Subrouter()
	mutating.Use(missionMiddleware)
	mutating.HandleFunc("/session/create", sessionHandler.Create).Methods(http.MethodPost)
	mutating.HandleFunc("/session/{id}/collect-key", sessionHandler.CollectKey).Methods(http.MethodPost)
	mutating.HandleFunc("/session/{id}/interaction", sessionHandler.Interaction).Methods(http.MethodPost)
	mutating.HandleFunc("/identity/submit", identityHandler.Submit).Methods(http.MethodPost)
	mutating.HandleFunc("/identity/update-key", identityHandler.UpdateKey).Methods(http.MethodPost)
	mutating.HandleFunc("/identity/redeem", identityHandler.Redeem).Methods(http.MethodPost)

	return r
}
