package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/chittyos/registry-sync/internal/pkg/errors"
	"github.com/chittyos/registry-sync/internal/pkg/logger"
	"github.com/chittyos/registry-sync/internal/pkg/utils"
)

// Recovery returns a middleware that recovers from panics
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(map[string]interface{}{
						"panic":      rec,
						"stack":      string(debug.Stack()),
						"path":       r.URL.Path,
						"request_id": GetRequestID(r),
					}).Error("panic recovered")

					utils.WriteError(w, errors.Internal("internal server error", nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
