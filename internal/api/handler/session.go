package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/keyquest/internal/api/request"
	"github.com/mcoot/keyquest/internal/api/response"
	"github.com/mcoot/keyquest/internal/model"
	"github.com/mcoot/keyquest/internal/services/session"
)

// SessionHandler handles game session endpoints
type SessionHandler struct {
	sessions *session.RegistryStore
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.RegistryStore) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
	}
}

func sessionID(r *http.Request) model.SessionID {
	return model.SessionID(mux.Vars(r)["id"])
}

// Create handles POST /session/create
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	response.JSON(w, http.StatusCreated, response.SessionCreatedFromModel(s))
}

// Validate handles GET /session/{id}/validate
func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(sessionID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionValidationFromModel(s))
}

// CollectKey handles POST /session/{id}/collect-key
func (h *SessionHandler) CollectKey(w http.ResponseWriter, r *http.Request) {
	var req request.CollectKeyRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.sessions.CollectKey(sessionID(r), req.KeyName, req.TargetType, req.Method)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CollectKeyFromResult(result))
}

// Interaction handles POST /session/{id}/interaction
func (h *SessionHandler) Interaction(w http.ResponseWriter, r *http.Request) {
	var req request.InteractionRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	in, err := h.sessions.RecordInteraction(sessionID(r), req.Type, req.Data)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Interaction{
		Success:       true,
		InteractionID: in.ID,
		Timestamp:     in.Timestamp,
	})
}

// Progress handles GET /session/{id}/progress
func (h *SessionHandler) Progress(w http.ResponseWriter, r *http.Request) {
	p, err := h.sessions.Progress(sessionID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ProgressFromModel(p))
}
