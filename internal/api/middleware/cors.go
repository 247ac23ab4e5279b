package middleware

import (
	"net/http"

	"github.com/chittyos/registry-sync/internal/webhook"
	"github.com/go-chi/cors"
)

// CORS returns a CORS middleware with the given allowed origins
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-API-Key",
			"X-Request-ID",
			webhook.SignatureHeader,
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		MaxAge: 300, // 5 minutes
	})
}

// DefaultCORS returns a CORS middleware for a single allowed origin. An
// empty origin allows none beyond same-origin requests.
func DefaultCORS(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return CORS([]string{origin})
}
