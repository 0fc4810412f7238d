package auth

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthorized means the request carried no bearer token.
	ErrUnauthorized = errors.New("auth: unauthorized")
	// ErrInvalidToken means the bearer token failed verification or has bad claims.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrForbidden means the caller's role lacks the route's permission.
	ErrForbidden = errors.New("auth: forbidden")
)

// HTTPStatus maps an auth failure to its response code and public message.
// Details wrapped around the sentinels stay out of the response body.
func HTTPStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, ErrForbidden.Error()
	case errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized, ErrInvalidToken.Error()
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, ErrUnauthorized.Error()
	default:
		return http.StatusInternalServerError, "auth: internal error"
	}
}
