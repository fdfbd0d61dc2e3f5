// Package activity tracks what a customer has already seen: per-review
// notification marks and the time of their last visit to the review list.
package activity

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type Repository struct {
	db      database.DB
	logger  ectologger.Logger
	timeout time.Duration
}

func NewRepository(db database.DB, logger ectologger.Logger, timeout time.Duration) *Repository {
	return &Repository{
		db:      db,
		logger:  logger,
		timeout: timeout,
	}
}

// MarkShown upserts the notification mark for (customer, review)
func (r *Repository) MarkShown(ctx context.Context, customerID, reviewID string) error {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.MarkShown")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("review_notifications")
	ib.Cols("customer_id", "review_id", "shown_at")
	ib.Values(customerID, reviewID, time.Now().UTC())
	database.Upsert(ib, []string{"customer_id", "review_id"}, "shown_at")

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"customer_id": customerID,
			"review_id":   reviewID,
		}).Error("Failed to mark review notification shown")
		return database.Classify(err, "failed to mark notification shown")
	}
	return nil
}

// LastSeen returns when the customer last opened their review list, or nil
// if they never have.
func (r *Repository) LastSeen(ctx context.Context, customerID string) (*time.Time, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.LastSeen")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("last_seen_at")
	sb.From("customer_visits")
	sb.Where(sb.Equal("customer_id", customerID))

	query, args := sb.Build()
	var seen []time.Time
	if err := r.db.SelectContext(ctx, &seen, query, args...); err != nil {
		return nil, database.Classify(err, "failed to read last visit")
	}
	if len(seen) == 0 {
		return nil, nil
	}
	return &seen[0], nil
}

// TouchLastSeen records a visit at the given time
func (r *Repository) TouchLastSeen(ctx context.Context, customerID string, at time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.TouchLastSeen")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("customer_visits")
	ib.Cols("customer_id", "last_seen_at")
	ib.Values(customerID, at.UTC())
	database.Upsert(ib, []string{"customer_id"}, "last_seen_at")

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return database.Classify(err, "failed to record visit")
	}
	return nil
}
