package middleware

import (
	"net/http"
	"strings"
	"time"

	"talentdesk/internal/common"

	"github.com/labstack/echo/v4"
)

// APIVersion represents API version information
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // "active", "deprecated"
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// VersionMiddleware tags responses with the API version serving them.
type VersionMiddleware struct {
	supportedVersions map[string]APIVersion
}

func NewVersionMiddleware() *VersionMiddleware {
	return &VersionMiddleware{
		supportedVersions: map[string]APIVersion{
			"v1": {Version: "v1", Status: "active", Message: "Current stable API version"},
		},
	}
}

// VersionRoute creates a version-specific route group
func (vm *VersionMiddleware) VersionRoute(e *echo.Echo, version string) *echo.Group {
	group := e.Group("/" + version)
	group.Use(vm.versionHeader(version))
	return group
}

func (vm *VersionMiddleware) versionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Response().Header()
			header.Set("X-API-Version", version)
			if ver, ok := vm.supportedVersions[version]; ok && ver.Status == "deprecated" && ver.SunsetDate != nil {
				header.Set("X-API-Deprecated", "true")
				header.Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
			}
			return next(c)
		}
	}
}

// RejectUnknownVersion answers 404 for /vN paths that are not served.
func (vm *VersionMiddleware) RejectUnknownVersion() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			segment := strings.SplitN(strings.TrimPrefix(c.Request().URL.Path, "/"), "/", 2)[0]
			if len(segment) > 1 && segment[0] == 'v' && isDigits(segment[1:]) {
				if _, ok := vm.supportedVersions[segment]; !ok {
					return c.JSON(http.StatusNotFound, common.CreateErrorResponse("UNSUPPORTED_VERSION", "unsupported API version "+segment, nil))
				}
			}
			return next(c)
		}
	}
}

// Deprecate marks a served version as deprecated from now until sunset.
func (vm *VersionMiddleware) Deprecate(version string, sunset time.Time) {
	if ver, ok := vm.supportedVersions[version]; ok {
		ver.Status = "deprecated"
		ver.SunsetDate = &sunset
		vm.supportedVersions[version] = ver
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
