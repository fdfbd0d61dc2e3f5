package association

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const table = "customer_review_associations"

// Repository appends customer/review association rows. Rows are never
// updated or deleted.
type Repository struct {
	db      database.DB
	logger  ectologger.Logger
	timeout time.Duration
}

// NewRepository creates a new association repository
func NewRepository(db database.DB, logger ectologger.Logger, timeout time.Duration) *Repository {
	return &Repository{
		db:      db,
		logger:  logger,
		timeout: timeout,
	}
}

// Append records a new association
func (r *Repository) Append(ctx context.Context, customerID, reviewID string, kind models.AssociationType) (*models.Association, error) {
	ctx, span := tracing.StartSpan(ctx, "association.Repository.Append")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	assoc := &models.Association{
		ID:              uuid.New().String(),
		CustomerID:      customerID,
		ReviewID:        reviewID,
		AssociationType: kind,
		CreatedAt:       time.Now().UTC(),
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("id", "customer_id", "review_id", "association_type", "created_at")
	ib.Values(assoc.ID, assoc.CustomerID, assoc.ReviewID, assoc.AssociationType, assoc.CreatedAt)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"customer_id": customerID,
			"review_id":   reviewID,
			"type":        kind,
		}).Error("Failed to append association")
		return nil, database.Classify(err, "failed to append association")
	}

	return assoc, nil
}

// ListByCustomer returns a customer's associations, oldest first
func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]models.Association, error) {
	ctx, span := tracing.StartSpan(ctx, "association.Repository.ListByCustomer")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "customer_id", "review_id", "association_type", "created_at")
	sb.From(table)
	sb.Where(sb.Equal("customer_id", customerID))
	sb.OrderBy("created_at").Asc()

	query, args := sb.Build()
	var out []models.Association
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, database.Classify(err, "failed to list associations")
	}
	return out, nil
}
