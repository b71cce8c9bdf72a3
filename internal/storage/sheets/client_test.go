package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/keyquest/internal/storage"
)

// fakeAPI is a minimal in-memory spreadsheet API
type fakeAPI struct {
	mu       sync.Mutex
	records  []record
	nextID   int
	pageSize int
	authSeen []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authSeen = append(f.authSeen, r.Header.Get("Authorization"))

	path := strings.TrimPrefix(r.URL.Path, "/v0/attendees")
	id := strings.TrimPrefix(path, "/")

	switch {
	case r.Method == http.MethodGet && id == "":
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		end := min(offset+f.pageSize, len(f.records))
		resp := listResponse{Records: f.records[offset:end]}
		if end < len(f.records) {
			resp.Offset = strconv.Itoa(end)
		}
		_ = json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodGet:
		for _, rec := range f.records {
			if rec.ID == id {
				_ = json.NewEncoder(w).Encode(rec)
				return
			}
		}
		http.Error(w, `{"error":"NOT_FOUND"}`, http.StatusNotFound)
	case r.Method == http.MethodPost:
		var rec record
		_ = json.NewDecoder(r.Body).Decode(&rec)
		f.nextID++
		rec.ID = fmt.Sprintf("rec%03d", f.nextID)
		f.records = append(f.records, rec)
		_ = json.NewEncoder(w).Encode(rec)
	case r.Method == http.MethodPatch:
		var patch record
		_ = json.NewDecoder(r.Body).Decode(&patch)
		for i := range f.records {
			if f.records[i].ID == id {
				for k, v := range patch.Fields {
					f.records[i].Fields[k] = v
				}
				_ = json.NewEncoder(w).Encode(f.records[i])
				return
			}
		}
		http.Error(w, `{"error":"NOT_FOUND"}`, http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL + "/v0"
	cfg.Token = "secret"
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 100
	client, err := New(cfg)
	require.NoError(t, err)
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{Table: "attendees"})
	assert.Error(t, err)
}

func TestAppendGetAndUpdate(t *testing.T) {
	api := &fakeAPI{pageSize: 10}
	client := newTestClient(t, api)
	ctx := context.Background()

	loc, err := client.Append(ctx, map[storage.Column]string{
		storage.ColEmail:    "a@x.com",
		storage.ColLastName: "Lee",
	})
	require.NoError(t, err)
	assert.Equal(t, storage.Locator("rec001"), loc)

	err = client.UpdateCells(ctx, loc, map[storage.Column]string{storage.ColKey1: "scanned"})
	require.NoError(t, err)

	row, err := client.Get(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", row.Get(storage.ColEmail))
	assert.Equal(t, "scanned", row.Get(storage.ColKey1))
	assert.Equal(t, "Bearer secret", api.authSeen[0])
}

func TestScanFollowsPagination(t *testing.T) {
	api := &fakeAPI{pageSize: 2}
	client := newTestClient(t, api)
	ctx := context.Background()

	for i := range 5 {
		_, err := client.Append(ctx, map[storage.Column]string{storage.ColEmail: fmt.Sprintf("u%d@x.com", i)})
		require.NoError(t, err)
	}

	rows, err := client.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "u0@x.com", rows[0].Get(storage.ColEmail))
	assert.Equal(t, "u4@x.com", rows[4].Get(storage.ColEmail))
}

func TestGetMissingRecord(t *testing.T) {
	client := newTestClient(t, &fakeAPI{pageSize: 10})

	_, err := client.Get(context.Background(), "rec999")
	assert.ErrorIs(t, err, storage.ErrRowNotFound)
}

func TestBooleanFieldsAreFlattened(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"rec1","fields":{"Redeem":true,"Key4":false,"Count":3}}`))
	}))

	row, err := client.Get(context.Background(), "rec1")
	require.NoError(t, err)
	assert.Equal(t, storage.True, row.Get(storage.ColRedeem))
	assert.Equal(t, storage.False, row.Get(storage.ColKey4))
	assert.Equal(t, "3", row.Get("Count"))
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, storage.ErrRateLimited},
		{http.StatusUnauthorized, storage.ErrUnauthorized},
		{http.StatusForbidden, storage.ErrUnauthorized},
		{http.StatusUnprocessableEntity, storage.ErrMalformedRequest},
		{http.StatusBadRequest, storage.ErrMalformedRequest},
		{http.StatusBadGateway, storage.ErrTransient},
		{http.StatusServiceUnavailable, storage.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := client.Scan(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.RequestsPerSecond = 1000
	client, err := New(cfg)
	require.NoError(t, err)

	_, err = client.Scan(context.Background())
	assert.ErrorIs(t, err, storage.ErrTransient)
}
