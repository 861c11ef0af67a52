package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/webmemo/schemad/internal/present/rest/presenter"
)

var tracer = otel.Tracer("auth")

// AuthMiddleware gates the sync endpoints behind the administrative
// capability. The capability itself is an opaque token issued by the hosting
// environment; the middleware only checks that it is presented.
type AuthMiddleware struct {
	adminToken string
}

func NewAuthMiddleware(adminToken string) *AuthMiddleware {
	return &AuthMiddleware{
		adminToken: adminToken,
	}
}

func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.RequireAdmin")
		defer span.End()

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			span.RecordError(errors.New("missing authorization header"))
			return presenter.Unauthorized(c, "administrative access required")
		}

		split := strings.SplitN(authHeader, " ", 2)
		if len(split) != 2 || split[0] != "Bearer" {
			span.RecordError(errors.New("only Bearer is acceptable"))
			return presenter.Unauthorized(c, "administrative access required")
		}

		if subtle.ConstantTimeCompare([]byte(split[1]), []byte(m.adminToken)) != 1 {
			span.RecordError(errors.New("token mismatch"))
			return presenter.Unauthorized(c, "administrative access required")
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
