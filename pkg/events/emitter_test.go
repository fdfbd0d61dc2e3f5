package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

type recordingPublisher struct {
	events []*Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestEmitter_EmitReviewClaimed(t *testing.T) {
	pub := &recordingPublisher{}
	e := NewEmitter(pub, testLogger())

	claimedAt := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	review := &models.Review{ID: "review-1", AuthorID: "biz-1", ClaimedAt: &claimedAt}
	match := models.MatchResult{MatchType: models.MatchTypeHighQuality, MatchScore: 0.75}

	require.NoError(t, e.EmitReviewClaimed(context.Background(), review, "cust-1", match))
	require.Len(t, pub.events, 1)

	ev := pub.events[0]
	assert.Equal(t, EventReviewClaimed, ev.EventType)
	assert.Equal(t, "review-1", ev.SubjectID)
	assert.Equal(t, "review", ev.SubjectType)

	var data map[string]any
	require.NoError(t, json.Unmarshal(ev.Data, &data))
	assert.Equal(t, "cust-1", data["customer_id"])
	assert.Equal(t, "high_quality", data["match_type"])
	assert.Equal(t, "2025-03-01T09:30:00Z", data["claimed_at"])
}

func TestEmitter_EmitSoftDuplicate(t *testing.T) {
	pub := &recordingPublisher{}
	e := NewEmitter(pub, testLogger())

	candidate := models.SignupCandidate{AccountType: models.AccountTypeBusiness, DisplayName: "Acme Plumbing"}
	verdict := &models.DuplicateCheckResult{IsDuplicate: true, DuplicateType: models.DuplicateTypeBusinessName, ExistingID: "biz-1", AllowContinue: true}

	require.NoError(t, e.EmitSoftDuplicate(context.Background(), "biz-2", candidate, verdict))
	require.Len(t, pub.events, 1)
	assert.Equal(t, EventSoftDuplicate, pub.events[0].EventType)
	assert.Equal(t, "biz-2", pub.events[0].SubjectID)
}

func TestEmitter_PublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	e := NewEmitter(pub, testLogger())

	err := e.EmitSelfReviewBlocked(context.Background(), "biz-1")
	assert.EqualError(t, err, "broker down")
}

func TestEmitter_NilPublisher(t *testing.T) {
	e := NewEmitter(nil, testLogger())
	assert.NoError(t, e.EmitSelfReviewBlocked(context.Background(), "biz-1"))
}
