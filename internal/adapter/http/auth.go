package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// NewJWTMiddleware returns middleware that requires an HS256 bearer token
// signed with secret and carrying the given issuer and audience.
func NewJWTMiddleware(secret, issuer, audience string, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	keyFunc := func(context.Context) (interface{}, error) {
		return []byte(secret), nil
	}
	v, err := validator.New(keyFunc, validator.HS256, issuer, []string{audience})
	if err != nil {
		return nil, fmt.Errorf("create jwt validator: %w", err)
	}

	mw := jwtmiddleware.New(v.ValidateToken,
		jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
				writeAPIError(w, newAPIError(http.StatusUnauthorized, codeUnauthorized, "bearer token required"))
				return
			}
			logger.Warn("rejected bearer token", "path", r.URL.Path, "error", err)
			writeAPIError(w, newAPIError(http.StatusUnauthorized, codeInvalidToken, "invalid bearer token"))
		}),
	)
	return mw.CheckJWT, nil
}

// subject returns the token subject of an authenticated request.
func subject(r *http.Request) string {
	claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok {
		return ""
	}
	return claims.RegisteredClaims.Subject
}
