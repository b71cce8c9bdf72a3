package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/keyquest/internal/api/request"
	"github.com/mcoot/keyquest/internal/api/response"
	"github.com/mcoot/keyquest/internal/model"
	"github.com/mcoot/keyquest/internal/services/identity"
)

// IdentityHandler handles check-in and key progress endpoints
type IdentityHandler struct {
	identity    *identity.Service
	offlineMode bool
	logger      *slog.Logger
}

// NewIdentityHandler creates a new identity handler. With offlineMode set,
// submissions that fail because the store is unreachable are acknowledged
// as non-durable instead of failing.
func NewIdentityHandler(identity *identity.Service, offlineMode bool, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{
		identity:    identity,
		offlineMode: offlineMode,
		logger:      logger,
	}
}

// Submit handles POST /identity/submit
func (h *IdentityHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.identity.Submit(r.Context(), req.Fields.Email, req.Fields.LastName)
	if err != nil {
		if h.offlineMode && errors.Is(err, model.ErrRemoteUnavailable) {
			h.logger.Warn("submission acknowledged offline",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("error", err.Error()),
			)
			response.JSON(w, http.StatusAccepted, response.OfflineAck{
				Success: true,
				Offline: true,
				Durable: false,
				Message: "Saved offline; your check-in has not been recorded yet",
			})
			return
		}
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SubmitFromResult(result))
}

// UpdateKey handles POST /identity/update-key
func (h *IdentityHandler) UpdateKey(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateKeyRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Status == "" {
		req.Status = string(model.KeyScanned)
	}

	result, err := h.identity.UpdateKey(r.Context(), model.RecordID(req.RecordID), req.KeyField, req.Status)
	if err != nil {
		WriteError(w, err)
		return
	}

	msg := fmt.Sprintf("%s updated", req.KeyField)
	if !result.Changed {
		msg = fmt.Sprintf("%s unchanged", req.KeyField)
	}
	response.JSON(w, http.StatusOK, response.UpdateKey{
		Success:       true,
		Message:       msg,
		RedeemEnabled: result.Record.RedeemEnabled,
	})
}

// Get handles GET /identity/{email}
func (h *IdentityHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.identity.Lookup(r.Context(), mux.Vars(r)["email"])
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RecordFromModel(rec))
}

// Redeem handles POST /identity/redeem
func (h *IdentityHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req request.RedeemRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	code, err := h.identity.IssueRedeemCode(r.Context(), req.Email)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Redeem{
		Success:    true,
		RedeemCode: code,
	})
}
