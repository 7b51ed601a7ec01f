package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/cloudbook/internal/apperror"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/suteetoe/cloudbook/pkg/jwtutil"
	"github.com/suteetoe/cloudbook/pkg/logger"
	"github.com/suteetoe/cloudbook/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const claimsKey = "user"

// Auth validates bearer tokens and enforces per-role module permissions.
// When Required is false, requests without a token pass through untouched.
type Auth struct {
	jwt      *jwtutil.JWTUtil
	db       *gorm.DB
	Required bool
}

func NewAuth(jwt *jwtutil.JWTUtil, db *gorm.DB, required bool) *Auth {
	return &Auth{jwt: jwt, db: db, Required: required}
}

// Authenticate parses the Authorization header and stores the claims in the context.
func (a *Auth) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			if a.Required {
				log.Warn("Missing Authorization header")
				prometheus.RecordAuthError("missing_token")
				return apperror.Unauthorized("Missing authorization token")
			}
			return next(c)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warn("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_token_format")
			if a.Required {
				return apperror.Unauthorized("Invalid authorization format, expected Bearer token")
			}
			return next(c)
		}

		claims, err := a.jwt.ValidateToken(parts[1])
		if err != nil {
			log.Warn("Invalid or expired token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			if a.Required {
				return apperror.Unauthorized("Invalid or expired token")
			}
			return next(c)
		}

		c.Set(claimsKey, claims)
		log.Debug("Token validated",
			zap.Uint("user_id", claims.ID),
			zap.String("role", claims.Role))

		return next(c)
	}
}

// RequireModule rejects roles the tenant has not granted access to module.
func (a *Auth) RequireModule(module string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !a.Required {
				return next(c)
			}

			claims, ok := ClaimsFromContext(c)
			if !ok {
				return apperror.Unauthorized("Missing authorization token")
			}
			if model.IsAdminRole(claims.Role) {
				return next(c)
			}

			var perm model.Permission
			err := a.db.WithContext(c.Request().Context()).Where("user_id = ?", claims.ID).First(&perm).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Internal("Failed to load permissions", err)
			}

			if !perm.Allows(claims.Role, module) {
				logger.FromContext(c).Warn("Module access denied",
					zap.Uint("user_id", claims.ID),
					zap.String("role", claims.Role),
					zap.String("module", module))
				return apperror.Forbidden("You do not have access to " + module)
			}

			return next(c)
		}
	}
}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(c echo.Context) (*jwtutil.UserClaims, bool) {
	claims, ok := c.Get(claimsKey).(*jwtutil.UserClaims)
	return claims, ok
}
