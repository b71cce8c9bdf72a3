package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/keyquest/internal/model"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ErrEmailAlreadyUsed, http.StatusConflict},
		{model.ErrUserNotRegistered, http.StatusForbidden},
		{model.ErrRecordNotFound, http.StatusNotFound},
		{model.ErrInvalidKeyField, http.StatusBadRequest},
		{model.ErrKeyAlreadyScanned, http.StatusBadRequest},
		{model.ErrRedeemNotEnabled, http.StatusConflict},
		{model.ErrSessionNotFound, http.StatusNotFound},
		{model.ErrUnknownKey, http.StatusBadRequest},
		{model.ErrKeyAlreadyCollected, http.StatusBadRequest},
		{fmt.Errorf("scan: %w", model.ErrRateLimited), http.StatusTooManyRequests},
		{fmt.Errorf("scan: %w", model.ErrRemoteUnavailable), http.StatusServiceUnavailable},
		{model.ErrRemoteRejected, http.StatusInternalServerError},
		{NewInvalidRequestError("bad"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestWriteErrorBody(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteError(rr, model.ErrEmailAlreadyUsed)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Empty(t, rr.Header().Get("Retry-After"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, CodeEmailAlreadyUsed, resp.Error.Code)
}

func TestWriteErrorRetryHint(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteError(rr, fmt.Errorf("submit: %w", model.ErrRateLimited))

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "30", rr.Header().Get("Retry-After"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, CodeRateLimited, resp.Error.Code)
	assert.Equal(t, 30, resp.RetryAfterSeconds)
}
