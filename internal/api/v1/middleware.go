package v1

import "net/http"

// requireProtection wraps a handler and returns 503 if the protection
// calculator is not configured.
func (s *Server) requireProtection(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.guard == nil || s.protStore == nil {
			writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Protection not configured")
			return
		}
		next(w, r)
	}
}

// requireRedownload wraps a handler and returns 503 if the redownload
// scheduler is not configured.
func (s *Server) requireRedownload(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.redownload == nil {
			writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Redownload not configured")
			return
		}
		next(w, r)
	}
}
