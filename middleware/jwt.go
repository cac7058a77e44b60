package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/demoapi/service"
	"github.com/padraicbc/demoapi/token"
)

// TokenHeader carries the auth token on requests and on the registration response.
const TokenHeader = "x-auth-token"

const claimsKey = "claims"

// TokenVerifier checks a token and returns its claims.
type TokenVerifier interface {
	Verify(tokenString string) (token.Claims, error)
}

// ClaimsChecker compares token claims with the stored user.
type ClaimsChecker interface {
	CheckClaims(ctx context.Context, claims token.Claims) error
}

// JWT returns an Echo middleware that validates the request token and
// rejects tokens whose claims no longer match the stored user.
// The token is read from the x-auth-token header, falling back to
// Authorization with or without a Bearer prefix.
func JWT(tokens TokenVerifier, users ClaimsChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c.Request())
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "error_no_token")
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "error_invalid_token").SetInternal(err)
			}

			if err := users.CheckClaims(c.Request().Context(), claims); err != nil {
				switch {
				case errors.Is(err, service.ErrUserNotFound):
					return echo.NewHTTPError(http.StatusBadRequest, "error_invalid_token").SetInternal(err)
				case errors.Is(err, service.ErrStaleCredentials):
					return echo.NewHTTPError(http.StatusUnauthorized, "error_modified_user").SetInternal(err)
				}
				return err
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// Admin lets admins and superadmins through. It must run after JWT.
func Admin() echo.MiddlewareFunc {
	return requireRole(func(cl token.Claims) bool { return cl.Admin || cl.Superadmin })
}

// Superadmin lets only superadmins through. It must run after JWT.
func Superadmin() echo.MiddlewareFunc {
	return requireRole(func(cl token.Claims) bool { return cl.Superadmin })
}

func requireRole(allowed func(token.Claims) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "error_no_token")
			}
			if !allowed(claims) {
				return echo.NewHTTPError(http.StatusForbidden, "error_access_denied")
			}
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims stored by JWT.
func ClaimsFrom(c echo.Context) (token.Claims, bool) {
	claims, ok := c.Get(claimsKey).(token.Claims)
	return claims, ok
}

func tokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(TokenHeader)); t != "" {
		return t
	}
	t := strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization))
	if len(t) > 7 && strings.EqualFold(t[:7], "bearer ") {
		t = strings.TrimSpace(t[7:])
	}
	return t
}
