package duplicatecheck

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// Checker produces a verdict without creating anything
type Checker interface {
	Check(ctx context.Context, candidate models.SignupCandidate) (*models.DuplicateCheckResult, error)
}

type Handler struct {
	checker Checker
}

func NewHandler(checker Checker) *Handler {
	return &Handler{checker: checker}
}

// Register registers duplicate check routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/check", h.Check)
}

// Check runs the duplicate rules against a prospective signup. Store
// failures surface as 503, never as a passing verdict.
func (h *Handler) Check(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "duplicatecheck_handler.Check")
	defer span.End()

	candidate, err := utils.BindRequest[models.SignupCandidate](c)
	if err != nil {
		return err
	}

	verdict, err := h.checker.Check(ctx, candidate)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, verdict)
}
