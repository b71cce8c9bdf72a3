package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/keyquest/internal/metrics"
	"github.com/mcoot/keyquest/internal/security"
)

// maxInspectedBody bounds how much of a request body the gateway reads
const maxInspectedBody = 1 << 20

// Gateway rejects requests whose path variables, query parameters or JSON
// body match an attack signature. Offending requests are redirected to
// redirectTo and never reach the handler.
func Gateway(inspector *security.Inspector, redirectTo string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			finding, source, found := inspect(inspector, r)
			if found {
				logger.Warn("attack detected",
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("source", source),
					slog.String("field", finding.Field),
					slog.String("value", finding.Value),
					slog.String("rule", finding.Rule.Name),
					slog.String("category", string(finding.Rule.Category)),
				)
				metrics.AttacksDetected.WithLabelValues(string(finding.Rule.Category)).Inc()
				http.Redirect(w, r, redirectTo, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func inspect(inspector *security.Inspector, r *http.Request) (security.Finding, string, bool) {
	if vars := mux.Vars(r); len(vars) > 0 {
		fields := make(map[string]any, len(vars))
		for k, v := range vars {
			fields[k] = v
		}
		if f, ok := inspector.Inspect(fields); ok {
			return f, "path", true
		}
	}

	if query := r.URL.Query(); len(query) > 0 {
		fields := make(map[string]any, len(query))
		for k, v := range query {
			fields[k] = v
		}
		if f, ok := inspector.Inspect(fields); ok {
			return f, "query", true
		}
	}

	body := readBody(r)
	if len(body) == 0 {
		return security.Finding{}, "", false
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		// Not a JSON object: inspect the raw text so it cannot slip past
		if rule, ok := inspector.Check(string(body)); ok {
			return security.Finding{Field: "body", Value: string(body), Rule: rule}, "body", true
		}
		return security.Finding{}, "", false
	}
	if f, ok := inspector.Inspect(fields); ok {
		return f, "body", true
	}
	return security.Finding{}, "", false
}

// readBody drains the request body and replaces it so handlers can decode it again
func readBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInspectedBody))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	return body
}
