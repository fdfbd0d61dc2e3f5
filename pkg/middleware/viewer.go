package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	utils "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

const viewerKey = "viewer"

// ProfileLoader loads the profile behind an authenticated user id
type ProfileLoader interface {
	Get(ctx context.Context, id string) (*models.IdentityRecord, error)
}

// Viewer loads the authenticated profile once per request so handlers can
// read its account type. Requests without a user id pass through anonymous.
func Viewer(profiles ProfileLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID := utils.GetUserID(ctx)
			if userID == "" {
				return next(c)
			}

			profile, err := profiles.Get(ctx, userID)
			if errors.Is(err, database.ErrNotFound) {
				return httperror.NewHTTPError(http.StatusUnauthorized, "unknown profile").AddMetaValue("reason", "unauthenticated")
			}
			if err != nil {
				return err
			}

			ctx = utils.SetAccountType(ctx, string(profile.AccountType))
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(viewerKey, profile)

			return next(c)
		}
	}
}

// GetViewer returns the profile loaded by Viewer, or nil for anonymous requests
func GetViewer(c echo.Context) *models.IdentityRecord {
	profile, _ := c.Get(viewerKey).(*models.IdentityRecord)
	return profile
}

// SetViewer stores a profile as the request's viewer
func SetViewer(c echo.Context, profile *models.IdentityRecord) {
	c.Set(viewerKey, profile)
}
