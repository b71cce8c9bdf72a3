package handler

import (
	"net/http"

	"github.com/mcoot/keyquest/internal/api/apierr"
	"github.com/mcoot/keyquest/internal/api/response"
	"github.com/mcoot/keyquest/internal/config"
	"github.com/mcoot/keyquest/internal/services/records"
	"github.com/mcoot/keyquest/internal/services/session"
)

// SystemHandler serves configuration, health and admin endpoints
type SystemHandler struct {
	mission   string
	storeType string
	records   *records.Service
	sessions  *session.RegistryStore
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(mission, storeType string, records *records.Service, sessions *session.RegistryStore) *SystemHandler {
	return &SystemHandler{
		mission:   mission,
		storeType: storeType,
		records:   records,
		sessions:  sessions,
	}
}

// Config handles GET /config
func (h *SystemHandler) Config(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Config{
		Mission: h.mission,
		Features: response.Features{
			DataSubmission: h.mission == config.MissionEnable,
		},
	})
}

// Health handles GET /health. An open circuit reports degraded.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	breaker := h.records.BreakerState()
	status := "ok"
	if breaker == "open" {
		status = "degraded"
	}

	response.JSON(w, http.StatusOK, response.Health{
		Status:  status,
		Store:   h.storeType,
		Breaker: breaker,
	})
}

// Stats handles GET /admin/stats
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.StatsFromRegistry(h.sessions.Stats()))
}

// AttackDetected handles GET /attack-detected, the validation gateway's redirect target
func (h *SystemHandler) AttackDetected(w http.ResponseWriter, r *http.Request) {
	WriteError(w, apierr.NewAttackDetectedError())
}

// NotFound handles unmatched routes
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, apierr.NewNotFoundError())
}

// MethodNotAllowed handles routes matched with the wrong method
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, apierr.NewMethodNotAllowedError())
}
