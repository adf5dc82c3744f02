package handlers

import (
	"strconv"

	"talentdesk/internal/common"
	"talentdesk/internal/middleware"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListParams represents pagination query parameters
type ListParams struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

func requireActor(c echo.Context) (common.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return common.Actor{}, common.ErrInvalidCredentials
	}
	return actor, nil
}

// respondError maps err onto the error envelope. Anything that is not a
// domain error is logged here because the client only sees an opaque 500.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	if _, _, domain := common.ClassifyError(err); !domain {
		logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("route", c.Path()),
			zap.Error(err),
		)
	}
	return common.SendError(c, err)
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	return common.ValidateUUID(c.Param(name), name)
}

func optionalQueryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := common.ValidateUUID(raw, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func bindList(c echo.Context) (ListParams, error) {
	var params ListParams
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &params); err != nil {
		return params, common.NewValidationError("", "invalid pagination parameters")
	}
	return params, nil
}

func bindBody(c echo.Context, dst interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return common.NewValidationError("", "invalid request body")
	}
	return nil
}

func pathIndex(c echo.Context, name string) (int, error) {
	index, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, common.NewValidationError(name, "must be an integer")
	}
	return index, nil
}
