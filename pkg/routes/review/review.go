package review

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/claims"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/reviews"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// HeaderIdempotencyKey lets a client retry a claim and get the first answer
const HeaderIdempotencyKey = "Idempotency-Key"

// Claimer runs the claim lifecycle
type Claimer interface {
	Claim(ctx context.Context, req claims.ClaimRequest) (*claims.ClaimOutcome, error)
}

// IdempotencyStore remembers claim responses by client key
type IdempotencyStore interface {
	Recall(ctx context.Context, scope, key string) ([]byte, bool, error)
	Remember(ctx context.Context, scope, key string, outcome []byte) error
}

type Handler struct {
	reviews     *reviews.Service
	claimer     Claimer
	idempotency IdempotencyStore
	logger      ectologger.Logger
}

// NewHandler creates a review handler. idempotency may be nil, in which case
// Idempotency-Key headers are ignored.
func NewHandler(logger ectologger.Logger, svc *reviews.Service, claimer Claimer, idempotency IdempotencyStore) *Handler {
	return &Handler{
		reviews:     svc,
		claimer:     claimer,
		idempotency: idempotency,
		logger:      logger,
	}
}

// Register registers review routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.Submit)
	g.POST("/self-check", h.SelfCheck)
	g.GET("/matches", h.Matches)
	g.GET("/:id/match", h.Match)
	g.POST("/:id/claim", h.Claim)
	g.POST("/:id/associations", h.CreateAssociation)
}

// SelfCheckRequest is the body of a self-review probe
type SelfCheckRequest struct {
	CustomerPhone string `json:"customer_phone" validate:"max=32"`
}

// SelfCheckResponse answers a self-review probe
type SelfCheckResponse struct {
	IsSelfReview bool `json:"is_self_review"`
}

// ClaimBody is the body of a claim request
type ClaimBody struct {
	Confirmed bool `json:"confirmed"`
}

// Submit stores a review written by the authenticated business
func (h *Handler) Submit(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "review_handler.Submit")
	defer span.End()

	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.CreateReviewRequest](c)
	if err != nil {
		return err
	}

	review, err := h.reviews.Submit(ctx, viewer, req)
	switch {
	case errors.Is(err, reviews.ErrSelfReview):
		return refused(http.StatusUnprocessableEntity, "you cannot review yourself", "self_review")
	case errors.Is(err, reviews.ErrNotBusiness):
		return refused(http.StatusForbidden, err.Error(), "not_business")
	case err != nil:
		return err
	}

	return c.JSON(http.StatusCreated, review)
}

// SelfCheck tells the submission form whether a phone is the author's own
func (h *Handler) SelfCheck(c echo.Context) error {
	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[SelfCheckRequest](c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, SelfCheckResponse{IsSelfReview: h.reviews.SelfCheck(viewer, req.CustomerPhone)})
}

// Matches lists the reviews that look like they are about the viewer
func (h *Handler) Matches(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "review_handler.Matches")
	defer span.End()

	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}

	list, err := h.reviews.MatchesFor(ctx, viewer)
	if errors.Is(err, reviews.ErrNotCustomer) {
		return refused(http.StatusForbidden, err.Error(), "not_customer")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, list)
}

// Match scores one review against the viewer
func (h *Handler) Match(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "review_handler.Match")
	defer span.End()

	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}

	match, err := h.reviews.MatchOne(ctx, c.Param("id"), viewer)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, match)
}

// Claim attaches the review to the authenticated customer. With an
// Idempotency-Key the first successful response is replayed on retries of the
// same review by the same customer.
func (h *Handler) Claim(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "review_handler.Claim")
	defer span.End()

	viewer := middleware.GetViewer(c)
	var body ClaimBody
	if err := c.Bind(&body); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	reviewID := c.Param("id")
	log := h.logger.WithContext(ctx).WithField("review_id", reviewID)
	key := c.Request().Header.Get(HeaderIdempotencyKey)
	// a key only replays the claim it was first used for
	scope := ""
	if viewer != nil {
		scope = viewer.ID + ":" + reviewID
	}

	if key != "" && h.idempotency != nil && viewer != nil {
		stored, ok, err := h.idempotency.Recall(ctx, scope, key)
		if err != nil {
			log.WithError(err).Warn("Idempotency lookup failed, running claim")
		}
		if ok {
			return c.JSONBlob(http.StatusOK, stored)
		}
	}

	outcome, err := h.claimer.Claim(ctx, claims.ClaimRequest{
		ReviewID:  reviewID,
		Customer:  viewer,
		Confirmed: body.Confirmed,
	})
	if ce, ok := claims.AsClaimError(err); ok {
		return refused(claimStatus(ce.Reason), ce.Error(), string(ce.Reason))
	}
	if err != nil {
		return err
	}

	raw, err := json.Marshal(outcome)
	if err != nil {
		return err
	}

	if key != "" && h.idempotency != nil {
		if err := h.idempotency.Remember(ctx, scope, key, raw); err != nil {
			log.WithError(err).Warn("Failed to remember claim outcome")
		}
	}

	return c.JSONBlob(http.StatusOK, raw)
}

// CreateAssociation records that the customer purchased from or responded to
// the review's author
func (h *Handler) CreateAssociation(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "review_handler.CreateAssociation")
	defer span.End()

	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.CreateAssociationRequest](c)
	if err != nil {
		return err
	}

	assoc, err := h.reviews.RecordAssociation(ctx, viewer, c.Param("id"), req.AssociationType)
	if errors.Is(err, reviews.ErrNotCustomer) {
		return refused(http.StatusForbidden, err.Error(), "not_customer")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, assoc)
}

func requireViewer(c echo.Context) (*models.IdentityRecord, error) {
	viewer := middleware.GetViewer(c)
	if viewer == nil {
		return nil, refused(http.StatusUnauthorized, "authentication required", "unauthenticated")
	}
	return viewer, nil
}

func refused(code int, message, reason string) error {
	return httperror.NewHTTPError(code, message).AddMetaValue("reason", reason)
}

func claimStatus(reason claims.FailureReason) int {
	switch reason {
	case claims.ReasonUnauthenticated:
		return http.StatusUnauthorized
	case claims.ReasonNotFound:
		return http.StatusNotFound
	case claims.ReasonAlreadyClaimed:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}
