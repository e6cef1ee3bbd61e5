package middleware

import (
	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins admits any browser extension plus a local dev UI.
var DefaultAllowedOrigins = []string{"chrome-extension://*", "http://localhost:3000"}

// CORS returns cors.Options for the given allowed origins, which may use one
// "*" wildcard each. A bare "*" disables credentials, since browsers reject
// credentials with a wildcard origin.
func CORS(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	allowCreds := true
	for _, o := range allowedOrigins {
		if o == "*" {
			allowCreds = false
			break
		}
	}

	return cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: allowCreds,
		MaxAge:           300,
	}
}
