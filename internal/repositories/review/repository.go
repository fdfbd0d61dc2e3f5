package review

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const table = "reviews"

var columns = []string{
	"id", "author_id", "rating", "content", "customer_name", "customer_phone", "customer_address",
	"customer_city", "customer_zip", "customer_id", "claimed_at", "claimed_by", "created_at",
}

// Repository handles review persistence
type Repository struct {
	db      database.DB
	logger  ectologger.Logger
	timeout time.Duration
}

// NewRepository creates a new review repository
func NewRepository(db database.DB, logger ectologger.Logger, timeout time.Duration) *Repository {
	return &Repository{
		db:      db,
		logger:  logger,
		timeout: timeout,
	}
}

// Create inserts an unclaimed review
func (r *Repository) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.Create")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	review.CustomerID = nil
	review.ClaimedAt = nil
	review.ClaimedBy = nil
	review.CreatedAt = time.Now().UTC()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns...)
	ib.Values(review.ID, review.AuthorID, review.Rating, review.Content, review.CustomerName, review.CustomerPhone,
		review.CustomerAddress, review.CustomerCity, review.CustomerZip, nil, nil, nil, review.CreatedAt)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"review_id": review.ID}).Error("Failed to create review")
		return nil, database.Classify(err, "failed to create review")
	}

	return review, nil
}

// GetByID retrieves a review by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.GetByID")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, args...); err != nil {
		return nil, database.Classify(err, fmt.Sprintf("failed to get review %s", id))
	}
	return &review, nil
}

// ListVisibleTo returns one page of unclaimed reviews plus those claimed by
// customerID, newest first. Pass the cursor of the last review of the
// previous page to continue; nil starts from the newest.
func (r *Repository) ListVisibleTo(ctx context.Context, customerID string, after *models.ReviewCursor, limit int) ([]*models.Review, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.ListVisibleTo")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit < 1 || limit > 1000 {
		limit = 500
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Or(
		sb.IsNull("customer_id"),
		sb.Equal("customer_id", customerID),
	))
	if after != nil {
		sb.Where(fmt.Sprintf("(created_at, id) < (%s, %s)", sb.Var(after.CreatedAt), sb.Var(after.ID)))
	}
	sb.OrderBy("created_at DESC", "id DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var reviews []*models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list reviews")
		return nil, database.Classify(err, "failed to list reviews")
	}
	return reviews, nil
}

// ClaimIfUnclaimed sets the claim columns only when the review has no holder.
// Returns false when another writer got there first (or the id is unknown).
func (r *Repository) ClaimIfUnclaimed(ctx context.Context, reviewID, customerID string, at time.Time) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.ClaimIfUnclaimed")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("customer_id", customerID),
		ub.Assign("claimed_at", at),
		ub.Assign("claimed_by", customerID),
	)
	ub.Where(
		ub.Equal("id", reviewID),
		ub.IsNull("customer_id"),
	)

	query, args := ub.Build()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"review_id": reviewID}).Error("Failed to claim review")
		return false, database.Classify(err, "failed to claim review")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, database.Classify(err, "failed to read claim result")
	}
	return rows == 1, nil
}
