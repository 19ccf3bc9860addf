package pennant

import (
	"context"
	"net/http"

	"github.com/OrlandoBitencourt/pennant/internal/server"
)

// Request headers read by Middleware.
const (
	HeaderUserID      = server.HeaderUserID
	HeaderUserEmail   = server.HeaderUserEmail
	HeaderUserCountry = server.HeaderUserCountry
)

// Middleware builds a User from each request's headers and the user_id
// cookie and stores it in the request context. Read it back with
// UserFromContext. Anonymous requests pass through unchanged.
//
// Example:
//
//	mux.Handle("/", pennant.Middleware(handler))
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    user, _ := pennant.UserFromContext(r.Context())
//	    if client.Bool(r.Context(), "new-checkout", false, user) {
//	        // ...
//	    }
//	}
func Middleware(next http.Handler) http.Handler {
	return server.UserMiddleware(next)
}

// UserFromContext returns the user stored by Middleware or ContextWithUser.
func UserFromContext(ctx context.Context) (*User, bool) {
	return server.UserFromContext(ctx)
}

// ContextWithUser returns a copy of ctx carrying user.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return server.WithUser(ctx, user)
}
