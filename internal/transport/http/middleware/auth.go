package httpmw

import (
	"context"
	"net/http"
	"strings"

	"github.com/cwrk-planet/presence-service/internal/security"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

type Authenticator interface {
	Authenticate(token string) (security.Identity, error)
}

// AuthMiddleware проверяет Bearer-токен и кладёт Identity в контекст.
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") || len(header) <= 7 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"missing bearer token"}`))
				return
			}

			ident, err := auth.Authenticate(strings.TrimSpace(header[7:]))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid token"}`))
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyIdentity, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFromCtx(ctx context.Context) (security.Identity, bool) {
	v := ctx.Value(ctxKeyIdentity)
	if v == nil {
		return security.Identity{}, false
	}
	ident, ok := v.(security.Identity)
	return ident, ok
}
