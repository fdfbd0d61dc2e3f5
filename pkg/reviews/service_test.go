package reviews

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeReviews struct {
	byID    map[string]*models.Review
	created []*models.Review
	pages   int
	err     error
}

func (f *fakeReviews) Create(_ context.Context, review *models.Review) (*models.Review, error) {
	if f.err != nil {
		return nil, f.err
	}
	review.ID = "review-new"
	f.created = append(f.created, review)
	return review, nil
}

func (f *fakeReviews) GetByID(_ context.Context, id string) (*models.Review, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return r, nil
}

func (f *fakeReviews) ListVisibleTo(_ context.Context, customerID string, after *models.ReviewCursor, limit int) ([]*models.Review, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.pages++

	visible := make([]*models.Review, 0, len(f.byID))
	for _, r := range f.byID {
		if r.CustomerID == nil || *r.CustomerID == customerID {
			visible = append(visible, r)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		if !visible[i].CreatedAt.Equal(visible[j].CreatedAt) {
			return visible[i].CreatedAt.After(visible[j].CreatedAt)
		}
		return visible[i].ID > visible[j].ID
	})

	out := []*models.Review{}
	for _, r := range visible {
		if after != nil && !r.CreatedAt.Before(after.CreatedAt) && (!r.CreatedAt.Equal(after.CreatedAt) || r.ID >= after.ID) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

type fakeActivity struct {
	lastSeen *time.Time
	touched  []time.Time
	touchErr error
}

func (f *fakeActivity) LastSeen(context.Context, string) (*time.Time, error) {
	return f.lastSeen, nil
}

func (f *fakeActivity) TouchLastSeen(_ context.Context, _ string, at time.Time) error {
	f.touched = append(f.touched, at)
	return f.touchErr
}

type fakeAssociations struct {
	appended []models.AssociationType
}

func (f *fakeAssociations) Append(_ context.Context, customerID, reviewID string, kind models.AssociationType) (*models.Association, error) {
	f.appended = append(f.appended, kind)
	return &models.Association{ID: "assoc-1", CustomerID: customerID, ReviewID: reviewID, AssociationType: kind}, nil
}

type fakeEmitter struct {
	blocked []string
}

func (f *fakeEmitter) EmitSelfReviewBlocked(_ context.Context, authorID string) error {
	f.blocked = append(f.blocked, authorID)
	return nil
}

type fakeLinker struct {
	links []string
}

func (f *fakeLinker) LinkAuthorship(_ context.Context, authorID, reviewID string) error {
	f.links = append(f.links, authorID+"->"+reviewID)
	return nil
}

type fixture struct {
	svc          *Service
	reviews      *fakeReviews
	activity     *fakeActivity
	associations *fakeAssociations
	emitter      *fakeEmitter
	linker       *fakeLinker
}

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newFixture(reviews ...*models.Review) *fixture {
	return newFixtureWithConfig(Config{}, reviews...)
}

func newFixtureWithConfig(config Config, reviews ...*models.Review) *fixture {
	f := &fixture{
		reviews:      &fakeReviews{byID: map[string]*models.Review{}},
		activity:     &fakeActivity{},
		associations: &fakeAssociations{},
		emitter:      &fakeEmitter{},
		linker:       &fakeLinker{},
	}
	for _, r := range reviews {
		f.reviews.byID[r.ID] = r
	}
	f.svc = NewService(
		ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}),
		config,
		f.reviews, f.activity, f.associations, f.emitter, f.linker,
		matching.NewMatcher(matching.DefaultMatcherConfig()),
	)
	f.svc.now = func() time.Time { return now }
	return f
}

func business() *models.IdentityRecord {
	return &models.IdentityRecord{ID: "biz-1", AccountType: models.AccountTypeBusiness, DisplayName: "Acme Plumbing", Phone: "(555) 123-4567"}
}

func sal() *models.IdentityRecord {
	return &models.IdentityRecord{ID: "cust-1", AccountType: models.AccountTypeCustomer, DisplayName: "Sal Sardina", Phone: "619-555-0100"}
}

func TestService_Submit(t *testing.T) {
	tests := []struct {
		name      string
		author    *models.IdentityRecord
		phone     string
		wantErr   error
		wantSaved bool
	}{
		{name: "own phone formatted differently", author: business(), phone: "555.123.4567", wantErr: ErrSelfReview},
		{name: "own phone with country code", author: business(), phone: "+1 555 123 4567", wantErr: ErrSelfReview},
		{name: "different phone", author: business(), phone: "619-555-0100", wantSaved: true},
		{name: "short phone is not checked", author: business(), phone: "4567", wantSaved: true},
		{name: "no phone", author: business(), phone: "", wantSaved: true},
		{name: "customer cannot submit", author: sal(), phone: "212-555-0000", wantErr: ErrNotBusiness},
		{name: "no author", author: nil, phone: "212-555-0000", wantErr: ErrNotBusiness},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := models.CreateReviewRequest{Rating: 5, Content: "Great", CustomerName: "Salvatore Sardina", CustomerPhone: tt.phone}

			got, err := f.svc.Submit(context.Background(), tt.author, req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				assert.Empty(t, f.reviews.created)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "biz-1", got.AuthorID)
			assert.Len(t, f.reviews.created, 1)
			assert.Equal(t, []string{"biz-1->review-new"}, f.linker.links)
		})
	}
}

func TestService_Submit_SelfReviewEmitsEvent(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Submit(context.Background(), business(), models.CreateReviewRequest{
		Rating: 1, Content: "x", CustomerName: "Me", CustomerPhone: "5551234567",
	})
	assert.ErrorIs(t, err, ErrSelfReview)
	assert.Equal(t, []string{"biz-1"}, f.emitter.blocked)
}

func TestService_Submit_StoreUnavailable(t *testing.T) {
	f := newFixture()
	f.reviews.err = database.Classify(context.DeadlineExceeded, "insert")

	_, err := f.svc.Submit(context.Background(), business(), models.CreateReviewRequest{Rating: 4, Content: "x", CustomerName: "Y"})
	assert.ErrorIs(t, err, database.ErrStoreUnavailable)
}

func TestService_SelfCheck(t *testing.T) {
	f := newFixture()
	assert.True(t, f.svc.SelfCheck(business(), "555-123-4567"))
	assert.False(t, f.svc.SelfCheck(business(), "555-123-4568"))
	assert.False(t, f.svc.SelfCheck(nil, "555-123-4567"))
}

func TestService_MatchesFor(t *testing.T) {
	lastSeen := now.Add(-24 * time.Hour)
	other := "cust-9"
	f := newFixture(
		&models.Review{ID: "old-match", CustomerName: "Salvatore Sardina", CustomerPhone: "(619) 555-0100", CreatedAt: now.Add(-72 * time.Hour)},
		&models.Review{ID: "new-potential", CustomerName: "Sal Sardina", CreatedAt: now.Add(-time.Hour)},
		&models.Review{ID: "unrelated", CustomerName: "Jane Doe", CustomerPhone: "212-555-0000", CreatedAt: now.Add(-time.Hour)},
		&models.Review{ID: "someone-elses", CustomerName: "Sal Sardina", CustomerID: &other, CreatedAt: now},
	)
	f.activity.lastSeen = &lastSeen

	got, err := f.svc.MatchesFor(context.Background(), sal())
	require.NoError(t, err)
	require.Len(t, got.Items, 2)

	assert.Equal(t, "old-match", got.Items[0].Review.ID)
	assert.Equal(t, models.MatchTypeHighQuality, got.Items[0].Match.MatchType)
	assert.False(t, got.Items[0].IsNew)

	assert.Equal(t, "new-potential", got.Items[1].Review.ID)
	assert.Equal(t, models.MatchTypePotential, got.Items[1].Match.MatchType)
	assert.True(t, got.Items[1].IsNew)

	assert.Equal(t, &lastSeen, got.LastSeen)
	assert.Equal(t, []time.Time{now}, f.activity.touched)
}

func TestService_MatchesFor_ScansPastFirstPage(t *testing.T) {
	reviews := []*models.Review{
		{ID: "oldest-match", CustomerName: "Salvatore Sardina", CustomerPhone: "(619) 555-0100", CreatedAt: now.Add(-30 * 24 * time.Hour)},
	}
	for i := 0; i < 7; i++ {
		reviews = append(reviews, &models.Review{
			ID:            fmt.Sprintf("noise-%d", i),
			CustomerName:  "Jane Doe",
			CustomerPhone: "212-555-0000",
			CreatedAt:     now.Add(-time.Duration(i) * time.Hour),
		})
	}
	f := newFixtureWithConfig(Config{ListLimit: 3}, reviews...)

	got, err := f.svc.MatchesFor(context.Background(), sal())
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "oldest-match", got.Items[0].Review.ID)
	assert.Equal(t, models.MatchTypeHighQuality, got.Items[0].Match.MatchType)
	assert.Equal(t, 3, f.reviews.pages)
}

func TestService_MatchesFor_TouchFailureIsIgnored(t *testing.T) {
	f := newFixture()
	f.activity.touchErr = errors.New("timeout")

	got, err := f.svc.MatchesFor(context.Background(), sal())
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestService_MatchesFor_BusinessRejected(t *testing.T) {
	f := newFixture()
	_, err := f.svc.MatchesFor(context.Background(), business())
	assert.ErrorIs(t, err, ErrNotCustomer)
}

func TestService_MatchOne(t *testing.T) {
	f := newFixture(&models.Review{ID: "r1", CustomerName: "Salvatore Sardina", CustomerPhone: "6195550100"})

	got, err := f.svc.MatchOne(context.Background(), "r1", sal())
	require.NoError(t, err)
	assert.Equal(t, models.MatchTypeHighQuality, got.Match.MatchType)
	assert.InDelta(t, 0.75, got.Match.MatchScore, 1e-9)

	_, err = f.svc.MatchOne(context.Background(), "missing", sal())
	assert.True(t, IsNotFound(err))
}

func TestService_RecordAssociation(t *testing.T) {
	f := newFixture(&models.Review{ID: "r1"})

	assoc, err := f.svc.RecordAssociation(context.Background(), sal(), "r1", models.AssociationTypePurchased)
	require.NoError(t, err)
	assert.Equal(t, models.AssociationTypePurchased, assoc.AssociationType)

	_, err = f.svc.RecordAssociation(context.Background(), sal(), "r1", models.AssociationTypeClaimed)
	assert.Error(t, err)

	_, err = f.svc.RecordAssociation(context.Background(), sal(), "missing", models.AssociationTypeResponded)
	assert.True(t, IsNotFound(err))

	assert.Equal(t, []models.AssociationType{models.AssociationTypePurchased}, f.associations.appended)
}
