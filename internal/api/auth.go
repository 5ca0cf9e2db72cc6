package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// Authenticator is the capability provided by the external session layer:
// whether the caller is authenticated, and as whom. User management itself
// lives outside this service.
type Authenticator interface {
	Authenticate(r *http.Request) (user string, ok bool)
}

// TokenAuthenticator authenticates by a static bearer token. The user
// identity is fixed; real deployments swap in the session-backed
// implementation.
type TokenAuthenticator struct {
	Token string
	User  string
}

func (a TokenAuthenticator) Authenticate(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(a.Token)) != 1 {
		return "", false
	}
	return a.User, true
}

type contextKey string

const userKey contextKey = "user"

// SessionAuth rejects unauthenticated requests and stores the verified
// identity in the request context.
func SessionAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := a.Authenticate(r)
			if !ok {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing credentials")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

// UserFrom returns the authenticated identity stored by SessionAuth.
func UserFrom(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}
