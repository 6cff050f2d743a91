package middleware

import (
	"context"
	"net/http"
	"strings"
)

// UserIDHeader carries the caller identity set by the upstream auth proxy.
const UserIDHeader = "X-User-ID"

type userKey struct{}

// UserID copies the caller identity from the request header into the
// context. Requests without the header are anonymous.
func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if id != "" {
			r = r.WithContext(WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID returns a context carrying id.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// UserIDFrom returns the caller identity, empty for anonymous callers.
func UserIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}
