package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
// Admin always passes.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// RequirePatientIdentity returns middleware that rejects patient-role tokens
// missing a linked patient record ID. Clinician and admin tokens pass through.
func RequirePatientIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			for _, role := range RolesFromContext(ctx) {
				if role == RoleClinician || role == RoleAdmin {
					return next(c)
				}
			}
			if PatientIDFromContext(ctx) == "" {
				return echo.NewHTTPError(http.StatusForbidden, "token is not linked to a patient record")
			}
			return next(c)
		}
	}
}
