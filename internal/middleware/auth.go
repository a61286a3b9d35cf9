package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	AdminRole = "admin"

	// context key holding the verified *AdminClaims
	ContextKeyAdmin = "admin_claims"
)

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth requires an HS256 bearer token signed with secret and carrying role=admin.
// Issuing tokens happens outside this service.
func AdminAuth(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			claims := &AdminClaims{}
			_, err = parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
				return key, nil
			})
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.Role != AdminRole {
				return echo.NewHTTPError(http.StatusForbidden, "admin role required")
			}

			c.Set(ContextKeyAdmin, claims)
			return next(c)
		}
	}
}

// AdminSubject returns the subject of the verified admin token, or "" outside
// an AdminAuth group.
func AdminSubject(c echo.Context) string {
	claims, ok := c.Get(ContextKeyAdmin).(*AdminClaims)
	if !ok {
		return ""
	}
	return claims.Subject
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}

// SignAdminToken is used by storectl and tests to mint tokens for local use.
func SignAdminToken(secret, subject string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = subject
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &AdminClaims{
		Role:             AdminRole,
		RegisteredClaims: claims,
	})
	return token.SignedString([]byte(secret))
}
