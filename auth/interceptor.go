package auth

import (
	"community-pulse/errors"

	"github.com/labstack/echo/v4"
)

const claimsKey = "claims"

// RequireRole authenticates the bearer token and checks role before reaching the handler.
// An empty role only requires a valid token.
func RequireRole(tokens *Tokens, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := BearerToken(c.Request())
			if err != nil {
				return err
			}
			claims, err := tokens.ValidateToken(raw)
			if err != nil {
				return err
			}
			if role != "" && !claims.HasRole(role) {
				return errors.ErrForbidden
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims stored by RequireRole, nil outside of it.
func ClaimsFrom(c echo.Context) *CustomClaims {
	claims, _ := c.Get(claimsKey).(*CustomClaims)
	return claims
}
