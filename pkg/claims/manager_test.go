package claims

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
)

// memoryReviews emulates the conditional update with a mutex
type memoryReviews struct {
	mu      sync.Mutex
	reviews map[string]models.Review
	updates int32
	getErr  error
}

func newMemoryReviews(reviews ...models.Review) *memoryReviews {
	m := &memoryReviews{reviews: map[string]models.Review{}}
	for _, r := range reviews {
		m.reviews[r.ID] = r
	}
	return m
}

func (m *memoryReviews) GetByID(_ context.Context, id string) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	r, ok := m.reviews[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &r, nil
}

func (m *memoryReviews) ClaimIfUnclaimed(_ context.Context, reviewID, customerID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[reviewID]
	if !ok || r.CustomerID != nil {
		return false, nil
	}
	id := customerID
	r.CustomerID = &id
	r.ClaimedBy = &id
	r.ClaimedAt = &at
	m.reviews[reviewID] = r
	atomic.AddInt32(&m.updates, 1)
	return true, nil
}

type recordingHooks struct {
	mu           sync.Mutex
	associations []string
	shown        []string
	events       []string
	links        []string
	failAll      bool
}

func (h *recordingHooks) Append(_ context.Context, customerID, reviewID string, kind models.AssociationType) (*models.Association, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failAll {
		return nil, errors.New("association store down")
	}
	h.associations = append(h.associations, customerID+":"+reviewID+":"+string(kind))
	return &models.Association{CustomerID: customerID, ReviewID: reviewID, AssociationType: kind}, nil
}

func (h *recordingHooks) MarkShown(_ context.Context, customerID, reviewID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failAll {
		return errors.New("notification store down")
	}
	h.shown = append(h.shown, customerID+":"+reviewID)
	return nil
}

func (h *recordingHooks) EmitReviewClaimed(_ context.Context, review *models.Review, customerID string, _ models.MatchResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failAll {
		return errors.New("broker down")
	}
	h.events = append(h.events, customerID+":"+review.ID)
	return nil
}

func (h *recordingHooks) LinkClaim(_ context.Context, customerID, reviewID string, _ time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failAll {
		return errors.New("graph down")
	}
	h.links = append(h.links, customerID+":"+reviewID)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

var fixedNow = time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)

func newTestManager(reviews *memoryReviews, hooks *recordingHooks) *Manager {
	m := NewManager(testLogger(), reviews, hooks, hooks, hooks, hooks, matching.NewMatcher(matching.DefaultMatcherConfig()))
	m.now = func() time.Time { return fixedNow }
	return m
}

func salvatoreReview() models.Review {
	return models.Review{
		ID:              "review-1",
		AuthorID:        "biz-1",
		Rating:          5,
		CustomerName:    "Salvatore Sardina",
		CustomerPhone:   "(619) 555-0100",
		CustomerAddress: "123 Main St",
		CreatedAt:       fixedNow.Add(-48 * time.Hour),
	}
}

func customer(id, name, phone string) *models.IdentityRecord {
	return &models.IdentityRecord{ID: id, AccountType: models.AccountTypeCustomer, DisplayName: name, Phone: phone}
}

func assertReason(t *testing.T, err error, want FailureReason) {
	t.Helper()
	ce, ok := AsClaimError(err)
	require.True(t, ok, "expected ClaimError, got %v", err)
	assert.Equal(t, want, ce.Reason)
}

func TestManager_Claim_SuccessThenIdempotent(t *testing.T) {
	reviews := newMemoryReviews(salvatoreReview())
	hooks := &recordingHooks{}
	m := newTestManager(reviews, hooks)
	sal := customer("cust-1", "Sal Sardina", "619-555-0100")

	out, err := m.Claim(context.Background(), ClaimRequest{ReviewID: "review-1", Customer: sal})
	require.NoError(t, err)
	assert.False(t, out.AlreadyHeld)
	require.NotNil(t, out.Review.CustomerID)
	assert.Equal(t, "cust-1", *out.Review.CustomerID)
	assert.Equal(t, fixedNow, *out.Review.ClaimedAt)
	assert.Equal(t, models.MatchTypeClaimed, out.Match.MatchType)

	assert.Equal(t, []string{"cust-1:review-1:claimed"}, hooks.associations)
	assert.Equal(t, []string{"cust-1:review-1"}, hooks.shown)
	assert.Equal(t, []string{"cust-1:review-1"}, hooks.events)
	assert.Equal(t, []string{"cust-1:review-1"}, hooks.links)

	// retry later: success, nothing rewritten
	m.now = func() time.Time { return fixedNow.Add(time.Hour) }
	again, err := m.Claim(context.Background(), ClaimRequest{ReviewID: "review-1", Customer: sal})
	require.NoError(t, err)
	assert.True(t, again.AlreadyHeld)
	assert.Equal(t, fixedNow, *again.Review.ClaimedAt)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reviews.updates))
	assert.Len(t, hooks.associations, 1)
}

func TestManager_Claim_AlreadyClaimedByOther(t *testing.T) {
	r := salvatoreReview()
	other := "cust-9"
	r.CustomerID = &other
	reviews := newMemoryReviews(r)
	m := newTestManager(reviews, &recordingHooks{})

	_, err := m.Claim(context.Background(), ClaimRequest{ReviewID: "review-1", Customer: customer("cust-1", "Sal Sardina", "619-555-0100")})
	assertReason(t, err, ReasonAlreadyClaimed)
	assert.Equal(t, "cust-9", *reviews.reviews["review-1"].CustomerID)
}

func TestManager_Claim_Refusals(t *testing.T) {
	tests := []struct {
		name string
		req  ClaimRequest
		want FailureReason
	}{
		{
			name: "no customer",
			req:  ClaimRequest{ReviewID: "review-1"},
			want: ReasonUnauthenticated,
		},
		{
			name: "business account",
			req: ClaimRequest{ReviewID: "review-1", Customer: &models.IdentityRecord{
				ID: "biz-2", AccountType: models.AccountTypeBusiness, DisplayName: "Salvatore Sardina",
			}},
			want: ReasonUnauthenticated,
		},
		{
			name: "unknown review",
			req:  ClaimRequest{ReviewID: "missing", Customer: customer("cust-1", "Sal Sardina", "619-555-0100")},
			want: ReasonNotFound,
		},
		{
			name: "no shared fields",
			req:  ClaimRequest{ReviewID: "review-1", Customer: customer("cust-2", "Jane Doe", "212-555-9999")},
			want: ReasonMatchTooWeak,
		},
		{
			name: "potential without confirmation",
			req:  ClaimRequest{ReviewID: "review-1", Customer: customer("cust-3", "Sal Sardina", "")},
			want: ReasonMatchTooWeak,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reviews := newMemoryReviews(salvatoreReview())
			m := newTestManager(reviews, &recordingHooks{})

			out, err := m.Claim(context.Background(), tt.req)
			assert.Nil(t, out)
			assertReason(t, err, tt.want)
			assert.Nil(t, reviews.reviews["review-1"].CustomerID)
		})
	}
}

func TestManager_Claim_PotentialWithConfirmation(t *testing.T) {
	reviews := newMemoryReviews(salvatoreReview())
	m := newTestManager(reviews, &recordingHooks{})

	out, err := m.Claim(context.Background(), ClaimRequest{
		ReviewID:  "review-1",
		Customer:  customer("cust-3", "Sal Sardina", ""),
		Confirmed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "cust-3", *out.Review.CustomerID)
}

func TestManager_Claim_HookFailuresDoNotFailClaim(t *testing.T) {
	reviews := newMemoryReviews(salvatoreReview())
	m := newTestManager(reviews, &recordingHooks{failAll: true})

	out, err := m.Claim(context.Background(), ClaimRequest{ReviewID: "review-1", Customer: customer("cust-1", "Sal Sardina", "619-555-0100")})
	require.NoError(t, err)
	assert.Equal(t, "cust-1", *out.Review.CustomerID)
}

func TestManager_Claim_StoreUnavailable(t *testing.T) {
	reviews := newMemoryReviews(salvatoreReview())
	reviews.getErr = errors.New("dial tcp: connection refused")
	m := newTestManager(reviews, &recordingHooks{})

	_, err := m.Claim(context.Background(), ClaimRequest{ReviewID: "review-1", Customer: customer("cust-1", "Sal Sardina", "619-555-0100")})
	require.Error(t, err)
	_, isClaimErr := AsClaimError(err)
	assert.False(t, isClaimErr)
	assert.ErrorIs(t, err, database.ErrStoreUnavailable)
}

func TestManager_Claim_ConcurrentSingleWinner(t *testing.T) {
	r := salvatoreReview()
	r.CustomerName = "Sardina"
	reviews := newMemoryReviews(r)
	m := newTestManager(reviews, &recordingHooks{})

	const claimants = 20
	var (
		wg        sync.WaitGroup
		successes int32
		refused   int32
	)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := customer("cust-"+string(rune('a'+i)), "Sardina", "619-555-0100")
			_, err := m.Claim(context.Background(), ClaimRequest{ReviewID: "review-1", Customer: c})
			if err == nil {
				atomic.AddInt32(&successes, 1)
				return
			}
			if ce, ok := AsClaimError(err); ok && ce.Reason == ReasonAlreadyClaimed {
				atomic.AddInt32(&refused, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(claimants-1), refused)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reviews.updates))
}
