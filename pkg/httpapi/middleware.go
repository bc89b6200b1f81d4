package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/cors"

	"github.com/synvya/nostrmarket/pkg/errmodel"
)

// bearerAuth guards the /api/ routes and the mounted MCP endpoint with a
// static bearer token. The MCP handler carries the admin grant, so it must
// not be reachable unauthenticated when a token is configured. An empty
// token disables the check. Root and health stay open for probes.
func bearerAuth(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") && !strings.HasPrefix(r.URL.Path, "/mcp") {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		got, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			errmodel.WriteHTTP(w, r, errmodel.Policy("unauthorized", "missing or invalid bearer token", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func corsHandler(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(next)
}
