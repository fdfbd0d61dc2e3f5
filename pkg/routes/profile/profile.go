package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/profiles"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// Signups creates accounts behind the duplicate checker
type Signups interface {
	Signup(ctx context.Context, candidate models.SignupCandidate) (*profiles.SignupResult, error)
}

type Handler struct {
	signups Signups
}

func NewHandler(signups Signups) *Handler {
	return &Handler{signups: signups}
}

// Register registers profile routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("/me", h.Me)
}

// Create signs up a new business or customer. A blocked email is a 409 with
// reason duplicate_email; a soft duplicate is created and its verdict
// returned alongside the profile.
func (h *Handler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "profile_handler.Create")
	defer span.End()

	candidate, err := utils.BindRequest[models.SignupCandidate](c)
	if err != nil {
		return err
	}

	result, err := h.signups.Signup(ctx, candidate)
	if errors.Is(err, profiles.ErrEmailTaken) {
		return httperror.NewHTTPError(http.StatusConflict, "an account with this email already exists").
			AddMetaValue("reason", "duplicate_email").
			AddMetaValue("duplicate_type", result.Verdict.DuplicateType).
			AddMetaValue("existing_email", result.Verdict.ExistingEmail).
			AddMetaValue("allow_continue", false)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, result)
}

// Me returns the authenticated profile
func (h *Handler) Me(c echo.Context) error {
	viewer := middleware.GetViewer(c)
	if viewer == nil {
		return httperror.NewHTTPError(http.StatusUnauthorized, "authentication required").AddMetaValue("reason", "unauthenticated")
	}
	return c.JSON(http.StatusOK, viewer)
}
