package interceptors

import (
	"context"
	"net/http"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

type contextKey string

const (
	// HandshakeContextKey is the key used to store/retrieve the Handshake from context.
	HandshakeContextKey contextKey = "handshake"

	HeaderPhoneNumber = "phoneNumber"
	QueryPhoneNumber  = "phoneNumber"
	QueryIdentity     = "identity"
)

// ExtractHandshake resolves the caller identity from the upgrade request:
// the phoneNumber header, then the phoneNumber query parameter, then identity.
// The first non-empty source wins even if it turns out malformed.
func ExtractHandshake(r *http.Request) model.Handshake {
	if v := r.Header.Get(HeaderPhoneNumber); v != "" {
		return model.NewHandshake(v)
	}
	q := r.URL.Query()
	if v := q.Get(QueryPhoneNumber); v != "" {
		return model.NewHandshake(v)
	}
	return model.NewHandshake(q.Get(QueryIdentity))
}

// NewHandshakeInterceptor stores the extraction result in the request
// context. It never rejects: an unresolved handshake still gets a socket,
// it just stays untracked.
func NewHandshakeInterceptor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), HandshakeContextKey, ExtractHandshake(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetHandshake is a helper to extract the handshake from context safely.
func GetHandshake(ctx context.Context) (model.Handshake, bool) {
	hs, ok := ctx.Value(HandshakeContextKey).(model.Handshake)
	return hs, ok
}
