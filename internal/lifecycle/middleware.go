package lifecycle

import (
	"encoding/json"
	"net/http"
)

// Middleware gates next behind the coordinator. Rejected requests get 503
// immediately; admitted requests are released when next returns or panics.
// Responses from next pass through untouched.
func (c *Coordinator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ticket, ok := c.Admit()
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Connection", "close")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "service is shutting down"})
			return
		}
		defer ticket.Release()
		next.ServeHTTP(w, r)
	})
}
