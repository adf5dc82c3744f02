package middleware

import (
	"net/http"

	"talentdesk/internal/common"
	"talentdesk/internal/services"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const claimsContextKey = "token_claims"

// JWTConfig authenticates bearer tokens through the auth service, so revoked
// tokens are refused as well as forged or expired ones. The decoded actor is
// stored in the request context.
func JWTConfig(auth services.AuthService, logger *zap.Logger) echojwt.Config {
	return echojwt.Config{
		ContextKey: claimsContextKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			ctx := c.Request().Context()
			claims, err := auth.ValidateToken(ctx, token)
			if err != nil {
				return nil, err
			}
			actor, err := claims.Actor()
			if err != nil {
				return nil, err
			}
			c.SetRequest(c.Request().WithContext(common.WithActor(ctx, actor)))
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logger.Debug("token authentication failed", zap.String("path", c.Path()), zap.Error(err))
			return c.JSON(http.StatusUnauthorized, common.CreateErrorResponse("UNAUTHORIZED", "missing or invalid bearer token", nil))
		},
	}
}

// JWT returns the authentication middleware.
func JWT(auth services.AuthService, logger *zap.Logger) echo.MiddlewareFunc {
	return echojwt.WithConfig(JWTConfig(auth, logger))
}

// ActorFrom returns the authenticated actor of the request.
func ActorFrom(c echo.Context) (common.Actor, bool) {
	return common.GetActorFromContext(c.Request().Context())
}
