package middlewares

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/bmakarand2009/studiomedia/internal/logging"
)

// LoggingMiddleware logs request start and end. Upload requests can run
// for minutes, so the duration is logged explicitly.
func LoggingMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logging.Logger.Infof("API Request: %s %s", r.Method, r.URL.Path)
			start := time.Now()

			next.ServeHTTP(w, r)

			logging.Logger.Infof("API Request done: %s %s (%s)", r.Method, r.URL.Path, time.Since(start))
		})
	}
}
