package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"net/http"
	"strings"
)

// tokenAuth guards the API with a single shared bearer token. An empty token
// disables the check.
type tokenAuth struct {
	digest []byte
}

func newTokenAuth(token string) *tokenAuth {
	token = strings.TrimSpace(token)
	if token == "" {
		return &tokenAuth{}
	}
	return &tokenAuth{digest: hashToken(token)}
}

func (a *tokenAuth) enabled() bool {
	return len(a.digest) > 0
}

func hashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

func (a *tokenAuth) verify(r *http.Request) bool {
	if !a.enabled() {
		return true
	}

	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}

	return hmac.Equal(hashToken(token), a.digest)
}

func (a *tokenAuth) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.verify(r) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="sweetcost"`)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
