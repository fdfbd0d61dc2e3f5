// Package events handles audit and lifecycle event emission
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

const (
	EventSoftDuplicate     = "profile.soft_duplicate"
	EventProfileCreated    = "profile.created"
	EventReviewClaimed     = "review.claimed"
	EventSelfReviewBlocked = "review.self_review_blocked"
)

// Emitter builds domain events and hands them to a Publisher
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// EmitSoftDuplicate records that a signup went ahead despite resembling an
// existing account.
func (e *Emitter) EmitSoftDuplicate(ctx context.Context, profileID string, candidate models.SignupCandidate, verdict *models.DuplicateCheckResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSoftDuplicate")
	defer span.End()

	return e.emit(ctx, EventSoftDuplicate, profileID, "profile", map[string]any{
		"schema_version": SchemaVersion,
		"account_type":   candidate.AccountType,
		"display_name":   candidate.DisplayName,
		"duplicate_type": verdict.DuplicateType,
		"existing_id":    verdict.ExistingID,
	})
}

// EmitProfileCreated announces a new profile
func (e *Emitter) EmitProfileCreated(ctx context.Context, record *models.IdentityRecord) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitProfileCreated")
	defer span.End()

	return e.emit(ctx, EventProfileCreated, record.ID, "profile", map[string]any{
		"schema_version": SchemaVersion,
		"account_type":   record.AccountType,
	})
}

// EmitReviewClaimed announces that a customer now holds a review
func (e *Emitter) EmitReviewClaimed(ctx context.Context, review *models.Review, customerID string, match models.MatchResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewClaimed")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"customer_id":    customerID,
		"author_id":      review.AuthorID,
		"match_type":     match.MatchType,
		"match_score":    match.MatchScore,
	}
	if review.ClaimedAt != nil {
		data["claimed_at"] = review.ClaimedAt.UTC().Format(time.RFC3339)
	}

	return e.emit(ctx, EventReviewClaimed, review.ID, "review", data)
}

// EmitSelfReviewBlocked records a rejected self-review attempt
func (e *Emitter) EmitSelfReviewBlocked(ctx context.Context, authorID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSelfReviewBlocked")
	defer span.End()

	return e.emit(ctx, EventSelfReviewBlocked, authorID, "profile", map[string]any{
		"schema_version": SchemaVersion,
	})
}

func (e *Emitter) emit(ctx context.Context, eventType, subjectID, subjectType string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	event := &Event{
		EventType:   eventType,
		SubjectID:   subjectID,
		SubjectType: subjectType,
		Data:        raw,
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
		return err
	}
	return nil
}
