// Package claims lets a customer take ownership of a review written about them.
package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// FailureReason names why a claim was refused
type FailureReason string

const (
	ReasonUnauthenticated FailureReason = "unauthenticated"
	ReasonNotFound        FailureReason = "not_found"
	ReasonAlreadyClaimed  FailureReason = "already_claimed"
	ReasonMatchTooWeak    FailureReason = "match_too_weak"
)

// ClaimError is a business-rule refusal. Infrastructure failures are
// returned as plain errors wrapping database.ErrStoreUnavailable instead.
type ClaimError struct {
	Reason FailureReason
}

func (e *ClaimError) Error() string {
	return fmt.Sprintf("claim refused: %s", e.Reason)
}

// AsClaimError extracts a ClaimError from err
func AsClaimError(err error) (*ClaimError, bool) {
	var ce *ClaimError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// ReviewStore is the review persistence the manager needs
type ReviewStore interface {
	GetByID(ctx context.Context, id string) (*models.Review, error)
	ClaimIfUnclaimed(ctx context.Context, reviewID, customerID string, at time.Time) (bool, error)
}

// AssociationStore appends customer/review associations
type AssociationStore interface {
	Append(ctx context.Context, customerID, reviewID string, kind models.AssociationType) (*models.Association, error)
}

// NotificationStore marks reviews as seen
type NotificationStore interface {
	MarkShown(ctx context.Context, customerID, reviewID string) error
}

// ClaimEmitter publishes claim events
type ClaimEmitter interface {
	EmitReviewClaimed(ctx context.Context, review *models.Review, customerID string, match models.MatchResult) error
}

// ClaimLinker mirrors claims into the identity graph
type ClaimLinker interface {
	LinkClaim(ctx context.Context, customerID, reviewID string, at time.Time) error
}

// ClaimRequest asks to attach ReviewID to Customer. Confirmed is the
// customer's explicit "this is me" for potential matches.
type ClaimRequest struct {
	ReviewID  string
	Customer  *models.IdentityRecord
	Confirmed bool
}

// ClaimOutcome is a successful claim. AlreadyHeld is true when the customer
// held the review before this call and nothing was written.
type ClaimOutcome struct {
	Review      *models.Review     `json:"review"`
	Match       models.MatchResult `json:"match"`
	AlreadyHeld bool               `json:"already_held"`
}

// Manager runs the claim lifecycle
type Manager struct {
	reviews       ReviewStore
	associations  AssociationStore
	notifications NotificationStore
	emitter       ClaimEmitter
	linker        ClaimLinker
	matcher       *matching.Matcher
	logger        ectologger.Logger
	now           func() time.Time
}

// NewManager creates a new claim manager. emitter and linker may be nil.
func NewManager(
	logger ectologger.Logger,
	reviews ReviewStore,
	associations AssociationStore,
	notifications NotificationStore,
	emitter ClaimEmitter,
	linker ClaimLinker,
	matcher *matching.Matcher,
) *Manager {
	return &Manager{
		reviews:       reviews,
		associations:  associations,
		notifications: notifications,
		emitter:       emitter,
		linker:        linker,
		matcher:       matcher,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Claim attaches a review to a customer exactly once. Repeating a successful
// claim returns success without touching claimed_at; a review held by anyone
// else is refused with ReasonAlreadyClaimed.
func (m *Manager) Claim(ctx context.Context, req ClaimRequest) (*ClaimOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "claims.Manager.Claim")
	defer span.End()

	outcome, err := m.claim(ctx, req)
	switch ce, ok := AsClaimError(err); {
	case ok:
		metrics.RecordClaim(string(ce.Reason))
	case err != nil:
		metrics.RecordClaim("error")
	case outcome.AlreadyHeld:
		metrics.RecordClaim("idempotent")
	default:
		metrics.RecordClaim("success")
	}
	return outcome, err
}

func (m *Manager) claim(ctx context.Context, req ClaimRequest) (*ClaimOutcome, error) {
	if req.Customer == nil || req.Customer.ID == "" || req.Customer.AccountType != models.AccountTypeCustomer {
		return nil, &ClaimError{Reason: ReasonUnauthenticated}
	}
	customer := req.Customer

	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"review_id":   req.ReviewID,
		"customer_id": customer.ID,
	})

	review, err := m.load(ctx, req.ReviewID)
	if err != nil {
		return nil, err
	}

	match := m.matcher.Match(review, customer)
	if review.IsClaimed() {
		if review.ClaimedByCustomer(customer.ID) {
			return &ClaimOutcome{Review: review, Match: match, AlreadyHeld: true}, nil
		}
		return nil, &ClaimError{Reason: ReasonAlreadyClaimed}
	}

	if !match.Claimable(req.Confirmed) {
		log.WithField("match_type", match.MatchType).Info("Claim refused, match too weak")
		return nil, &ClaimError{Reason: ReasonMatchTooWeak}
	}

	at := m.now()
	won, err := m.reviews.ClaimIfUnclaimed(ctx, review.ID, customer.ID, at)
	if err != nil {
		return nil, storeError(err, "claim")
	}

	if !won {
		// lost a race: whoever holds it now decides the answer
		current, err := m.load(ctx, review.ID)
		if err != nil {
			return nil, err
		}
		if current.ClaimedByCustomer(customer.ID) {
			return &ClaimOutcome{Review: current, Match: m.matcher.Match(current, customer), AlreadyHeld: true}, nil
		}
		return nil, &ClaimError{Reason: ReasonAlreadyClaimed}
	}

	review.CustomerID = &customer.ID
	review.ClaimedBy = &customer.ID
	review.ClaimedAt = &at

	log.WithField("match_type", match.MatchType).Info("Review claimed")
	m.afterClaim(ctx, review, customer.ID, match, at)

	return &ClaimOutcome{Review: review, Match: m.matcher.Match(review, customer)}, nil
}

func (m *Manager) load(ctx context.Context, id string) (*models.Review, error) {
	review, err := m.reviews.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &ClaimError{Reason: ReasonNotFound}
	}
	if err != nil {
		return nil, storeError(err, "load review")
	}
	return review, nil
}

// afterClaim runs the follow-up writes. None of them can undo the claim, so
// failures are logged and dropped.
func (m *Manager) afterClaim(ctx context.Context, review *models.Review, customerID string, match models.MatchResult, at time.Time) {
	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"review_id":   review.ID,
		"customer_id": customerID,
	})

	if m.associations != nil {
		if _, err := m.associations.Append(ctx, customerID, review.ID, models.AssociationTypeClaimed); err != nil {
			log.WithError(err).Warn("Failed to record claim association")
		}
	}
	if m.notifications != nil {
		if err := m.notifications.MarkShown(ctx, customerID, review.ID); err != nil {
			log.WithError(err).Warn("Failed to mark claimed review as shown")
		}
	}
	if m.emitter != nil {
		if err := m.emitter.EmitReviewClaimed(ctx, review, customerID, match); err != nil {
			log.WithError(err).Warn("Failed to emit review.claimed")
		}
	}
	if m.linker != nil {
		if err := m.linker.LinkClaim(ctx, customerID, review.ID, at); err != nil {
			log.WithError(err).Warn("Failed to link claim in graph")
		}
	}
}

func storeError(err error, op string) error {
	if errors.Is(err, database.ErrStoreUnavailable) || errors.Is(err, database.ErrIntegrityViolation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, database.ErrStoreUnavailable, err)
}
