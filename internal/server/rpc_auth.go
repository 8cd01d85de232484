package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// tokenQueryParam carries the token for browser WebSocket clients, which
// cannot set an Authorization header on the upgrade request.
const tokenQueryParam = "access_token"

// requireToken wraps an http.Handler with Bearer token authentication.
// Returns JSON-RPC 2.0 error response on auth failure (not plain HTTP error).
// Uses subtle.ConstantTimeCompare to prevent timing attacks on the secret.
//
// If secret is empty, all requests are rejected -- RPC requires explicit opt-in.
func requireToken(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !validToken(secret, bearer(r)) {
			writeRPCError(w, http.StatusUnauthorized, -32600, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearer returns the Authorization header, or a Bearer value built from
// the access_token query parameter on WebSocket upgrades.
func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return h
	}
	if r.URL.Path == PathRPCWS {
		if tok := r.URL.Query().Get(tokenQueryParam); tok != "" {
			return "Bearer " + tok
		}
	}
	return ""
}

// validToken checks whether the provided Authorization header value matches the secret.
// Requires "Bearer " prefix. Uses constant-time comparison to prevent timing attacks.
// Returns false if secret is empty (RPC requires a secret to be set).
func validToken(secret, authHeader string) bool {
	if secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

func writeRPCError(w http.ResponseWriter, status, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
		"id": nil,
	})
}
