package middleware

import (
	"net/http"

	"github.com/mcoot/keyquest/internal/api/response"
)

// MissionClosedMessage is returned on mutating routes while the mission is disabled
const MissionClosedMessage = "The mission is currently closed"

// MissionGuard short-circuits requests with a 200 success=false response
// while enabled reports false.
func MissionGuard(enabled func() bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled() {
				response.JSON(w, http.StatusOK, response.Status{
					Success: false,
					Message: MissionClosedMessage,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
