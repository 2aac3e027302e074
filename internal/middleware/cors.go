package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS answers cross-origin requests for the configured origins. "*" allows
// any origin. It wraps the whole router so preflights never reach gin.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader, "X-User-Id", "X-User-Name"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
