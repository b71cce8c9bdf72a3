package request

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/keyquest/internal/api/apierr"
)

func newRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/identity/submit", strings.NewReader(body))
}

func TestDecodeSubmit(t *testing.T) {
	var req SubmitRequest

	err := Decode(newRequest(`{"fields":{"email":"a@x.com","lastname":"Lee"}}`), &req)
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", req.Fields.Email)
	assert.Equal(t, "Lee", req.Fields.LastName)
}

func TestDecodeReportsJSONFieldNames(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"fields":{"lastname":"Lee"}}`, "fields.email is required"},
		{`{"fields":{"email":"not-an-email","lastname":"Lee"}}`, "fields.email must be a valid email address"},
		{`{"fields":{"email":"a@x.com"}}`, "fields.lastname is required"},
		{`{}`, "fields.email is required"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var req SubmitRequest
			err := Decode(newRequest(tt.body), &req)

			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, apierr.Status(err))
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	var req UpdateKeyRequest

	err := Decode(newRequest(`{"recordId":`), &req)

	require.Error(t, err)
	assert.Equal(t, "invalid request body", err.Error())
}
