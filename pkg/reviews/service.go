// Package reviews handles review submission and the "reviews about me" views.
package reviews

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var (
	// ErrSelfReview rejects a review whose customer phone is the author's own
	ErrSelfReview = errors.New("self_review")
	// ErrNotBusiness rejects review submissions from customer accounts
	ErrNotBusiness = errors.New("only business accounts can submit reviews")
	// ErrNotCustomer rejects customer-only views requested by a business
	ErrNotCustomer = errors.New("only customer accounts can view matched reviews")
)

// ReviewStore is the review persistence the service needs
type ReviewStore interface {
	Create(ctx context.Context, review *models.Review) (*models.Review, error)
	GetByID(ctx context.Context, id string) (*models.Review, error)
	ListVisibleTo(ctx context.Context, customerID string, after *models.ReviewCursor, limit int) ([]*models.Review, error)
}

// ActivityStore tracks when a customer last looked at their reviews
type ActivityStore interface {
	LastSeen(ctx context.Context, customerID string) (*time.Time, error)
	TouchLastSeen(ctx context.Context, customerID string, at time.Time) error
}

// AssociationStore appends customer/review associations
type AssociationStore interface {
	Append(ctx context.Context, customerID, reviewID string, kind models.AssociationType) (*models.Association, error)
}

// Emitter publishes review events
type Emitter interface {
	EmitSelfReviewBlocked(ctx context.Context, authorID string) error
}

// AuthorLinker records authorship in the identity graph
type AuthorLinker interface {
	LinkAuthorship(ctx context.Context, authorID, reviewID string) error
}

// Config contains configuration for the review service
type Config struct {
	ListLimit int // Page size when scanning reviews for "reviews about me" (default: 500)
}

// Service implements review submission and matching views
type Service struct {
	reviews      ReviewStore
	activity     ActivityStore
	associations AssociationStore
	emitter      Emitter
	linker       AuthorLinker
	matcher      *matching.Matcher
	logger       ectologger.Logger
	config       Config
	now          func() time.Time
}

// NewService creates a new review service
func NewService(
	logger ectologger.Logger,
	config Config,
	reviews ReviewStore,
	activity ActivityStore,
	associations AssociationStore,
	emitter Emitter,
	linker AuthorLinker,
	matcher *matching.Matcher,
) *Service {
	if config.ListLimit <= 0 {
		config.ListLimit = 500
	}
	return &Service{
		reviews:      reviews,
		activity:     activity,
		associations: associations,
		emitter:      emitter,
		linker:       linker,
		matcher:      matcher,
		logger:       logger,
		config:       config,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SelfCheck reports whether a review about candidatePhone would be a
// self-review for author. The submission form calls it before posting.
func (s *Service) SelfCheck(author *models.IdentityRecord, candidatePhone string) bool {
	if author == nil {
		return false
	}
	return matching.IsSelfReview(author.Phone, candidatePhone)
}

// Submit stores a review written by author. A review whose customer phone
// matches the author's phone is rejected with ErrSelfReview and nothing is
// written.
func (s *Service) Submit(ctx context.Context, author *models.IdentityRecord, req models.CreateReviewRequest) (*models.Review, error) {
	ctx, span := tracing.StartSpan(ctx, "reviews.Service.Submit")
	defer span.End()

	if author == nil || author.AccountType != models.AccountTypeBusiness {
		return nil, ErrNotBusiness
	}

	log := s.logger.WithContext(ctx).WithField("author_id", author.ID)

	if s.SelfCheck(author, req.CustomerPhone) {
		metrics.SelfReviewsBlocked.Inc()
		log.Warn("Self-review blocked")
		if s.emitter != nil {
			if err := s.emitter.EmitSelfReviewBlocked(ctx, author.ID); err != nil {
				log.WithError(err).Warn("Failed to emit review.self_review_blocked")
			}
		}
		return nil, ErrSelfReview
	}

	review, err := s.reviews.Create(ctx, req.ToReview(author.ID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to submit review")
	}

	if s.linker != nil {
		if err := s.linker.LinkAuthorship(ctx, author.ID, review.ID); err != nil {
			log.WithError(err).Warn("Failed to link authorship in graph")
		}
	}

	log.WithField("review_id", review.ID).Info("Review submitted")
	return review, nil
}

// MatchesFor lists every review linked to the customer, claimed first, and
// moves their last-seen marker forward.
func (s *Service) MatchesFor(ctx context.Context, customer *models.IdentityRecord) (*models.ReviewMatchList, error) {
	ctx, span := tracing.StartSpan(ctx, "reviews.Service.MatchesFor")
	defer span.End()

	if customer == nil || customer.AccountType != models.AccountTypeCustomer {
		return nil, ErrNotCustomer
	}

	lastSeen, err := s.activity.LastSeen(ctx, customer.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read last seen")
	}

	linked, err := s.linkedReviews(ctx, customer)
	if err != nil {
		return nil, err
	}

	items := s.matcher.Categorize(linked, customer, lastSeen)
	for _, item := range items {
		metrics.RecordMatch(string(item.Match.MatchType))
	}

	if err := s.activity.TouchLastSeen(ctx, customer.ID, s.now()); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("customer_id", customer.ID).Warn("Failed to update last seen")
	}

	return &models.ReviewMatchList{Items: items, LastSeen: lastSeen}, nil
}

// linkedReviews pages through every visible review and keeps those the
// matcher links to the customer, so only matches are held in memory.
func (s *Service) linkedReviews(ctx context.Context, customer *models.IdentityRecord) ([]*models.Review, error) {
	var (
		linked []*models.Review
		after  *models.ReviewCursor
	)
	for {
		page, err := s.reviews.ListVisibleTo(ctx, customer.ID, after, s.config.ListLimit)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list reviews")
		}
		for _, review := range page {
			if s.matcher.Match(review, customer).MatchType != models.MatchTypeNone {
				linked = append(linked, review)
			}
		}
		if len(page) < s.config.ListLimit {
			return linked, nil
		}
		after = page[len(page)-1].Cursor()
	}
}

// MatchOne scores a single review against the viewer
func (s *Service) MatchOne(ctx context.Context, reviewID string, viewer *models.IdentityRecord) (*models.ReviewMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "reviews.Service.MatchOne")
	defer span.End()

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load review %s", reviewID)
	}

	match := s.matcher.Match(review, viewer)
	metrics.RecordMatch(string(match.MatchType))

	return &models.ReviewMatch{Review: review, Match: match}, nil
}

// RecordAssociation appends a purchased or responded link between the
// customer and an existing review. Claims are recorded by the claim manager.
func (s *Service) RecordAssociation(ctx context.Context, customer *models.IdentityRecord, reviewID string, kind models.AssociationType) (*models.Association, error) {
	ctx, span := tracing.StartSpan(ctx, "reviews.Service.RecordAssociation")
	defer span.End()

	if customer == nil || customer.AccountType != models.AccountTypeCustomer {
		return nil, ErrNotCustomer
	}
	if kind == models.AssociationTypeClaimed {
		return nil, errors.New("claimed associations are recorded by claiming the review")
	}

	if _, err := s.reviews.GetByID(ctx, reviewID); err != nil {
		return nil, errors.Wrapf(err, "failed to load review %s", reviewID)
	}

	assoc, err := s.associations.Append(ctx, customer.ID, reviewID, kind)
	if err != nil {
		return nil, errors.Wrap(err, "failed to record association")
	}
	return assoc, nil
}

// IsNotFound reports whether err means the review does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
