// Package middleware provides the middleware for the Echo instance
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/financeapi/internal/auth"
	"github.com/nsvirk/financeapi/pkg/utils/response"
)

const claimsContextKey = "claims"

// AuthMiddleware verifies the bearer token and stores its claims on the request context
func AuthMiddleware(tokens *auth.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return response.ErrorResponse(c, http.StatusUnauthorized, "AuthorizationException", "Missing Authorization header")
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return response.ErrorResponse(c, http.StatusUnauthorized, "AuthorizationException", "Invalid Authorization header format")
			}

			claims, err := tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				return response.ErrorResponse(c, http.StatusForbidden, "AuthorizationException", "Invalid or expired token")
			}

			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims stored by AuthMiddleware, nil outside a protected route
func ClaimsFrom(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsContextKey).(*auth.Claims)
	return claims
}

// RequireOwnerUser allows the request only when the path parameter equals the caller's user id
func RequireOwnerUser(param string) echo.MiddlewareFunc {
	return requireOwner(param, func(claims *auth.Claims) string { return claims.UserID })
}

// RequireOwnerAccount allows the request only when the path parameter equals the caller's bank account
func RequireOwnerAccount(param string) echo.MiddlewareFunc {
	return requireOwner(param, func(claims *auth.Claims) string { return claims.BankAccount })
}

func requireOwner(param string, owned func(*auth.Claims) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return response.ErrorResponse(c, http.StatusUnauthorized, "AuthorizationException", "Missing Authorization header")
			}
			value := owned(claims)
			if value == "" || c.Param(param) != value {
				return response.ErrorResponse(c, http.StatusForbidden, "AuthorizationException", "Access to this resource is not allowed")
			}
			return next(c)
		}
	}
}
