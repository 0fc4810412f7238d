package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Middleware checks the bearer token against the route's permission and
// stores the caller's Identity on the request context.
type Middleware struct {
	Secret []byte
	Policy Policy
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{Secret: secret, Policy: policy}
}

// Wrap applies the middleware to next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		required, ok := m.Policy.RequiredPermission(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		id, err := m.authorize(r, required)
		if err != nil {
			status, message := HTTPStatus(err)
			http.Error(w, message, status)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id.TenantID, id.Role, id.Subject)))
	})
}

func (m *Middleware) authorize(r *http.Request, required Permission) (Identity, error) {
	token := bearerToken(r)
	if token == "" {
		return Identity{}, ErrUnauthorized
	}
	claims, err := ParseJWT(token, m.Secret)
	if err != nil {
		return Identity{}, err
	}
	role, ok := ParseRole(claims.Role)
	if !ok {
		return Identity{}, fmt.Errorf("%w: role %q", ErrInvalidToken, claims.Role)
	}
	if !role.Allows(required) {
		return Identity{}, fmt.Errorf("%w: %s lacks %s", ErrForbidden, role, required)
	}
	return Identity{TenantID: claims.TenantID, Role: role, Subject: claims.Subject}, nil
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
