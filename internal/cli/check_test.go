package cli

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/models"
)

func testConfig() *config.Config {
	return &config.Config{DuplicateNameThreshold: 0.85, AddressSimilarity: 0.8, MatchBatchSize: 500}
}

func TestRunCheck(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	fx := Fixture{
		Profiles: []models.IdentityRecord{
			{ID: "biz-1", AccountType: models.AccountTypeBusiness, DisplayName: "Acme Plumbing LLC", Email: "owner@acme.test", Phone: "555-123-4567"},
			{ID: "cust-1", AccountType: models.AccountTypeCustomer, DisplayName: "Acme Plumbing", Phone: "555-123-4567"},
		},
		Reviews: []*models.Review{
			{ID: "r-sal", AuthorID: "biz-1", CustomerName: "Salvatore Sardina", CustomerPhone: "(619) 555-0100", CreatedAt: time.Now()},
			{ID: "r-other", AuthorID: "biz-1", CustomerName: "Jane Doe", CustomerPhone: "212-555-0000", CreatedAt: time.Now()},
		},
		Candidate: &models.SignupCandidate{AccountType: models.AccountTypeBusiness, DisplayName: "Acme Plumbing", Phone: "(555) 123-4567"},
		Viewer:    &models.IdentityRecord{ID: "cust-sal", AccountType: models.AccountTypeCustomer, DisplayName: "Sal Sardina", Phone: "619-555-0100"},
	}

	report, err := runCheck(context.Background(), testConfig(), logger, fx)
	require.NoError(t, err)

	require.NotNil(t, report.Verdict)
	assert.Equal(t, models.DuplicateTypeBusinessName, report.Verdict.DuplicateType)
	assert.Equal(t, "biz-1", report.Verdict.ExistingID)
	assert.True(t, report.Verdict.AllowContinue)

	require.Len(t, report.Matches, 1)
	assert.Equal(t, "r-sal", report.Matches[0].Review.ID)
	assert.Equal(t, models.MatchTypeHighQuality, report.Matches[0].Match.MatchType)
}

func TestRunCheck_EmailBlocks(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	fx := Fixture{
		Profiles: []models.IdentityRecord{
			{ID: "biz-1", AccountType: models.AccountTypeBusiness, DisplayName: "Acme Plumbing LLC", Email: "Owner@Acme.test"},
		},
		Candidate: &models.SignupCandidate{AccountType: models.AccountTypeBusiness, DisplayName: "Other", Email: "owner@acme.test"},
	}

	report, err := runCheck(context.Background(), testConfig(), logger, fx)
	require.NoError(t, err)
	assert.Equal(t, models.DuplicateTypeEmail, report.Verdict.DuplicateType)
	assert.False(t, report.Verdict.AllowContinue)
	assert.Empty(t, report.Matches)
}

func TestRunCheck_InvalidCandidate(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	_, err := runCheck(context.Background(), testConfig(), logger, Fixture{
		Candidate: &models.SignupCandidate{AccountType: "robot", DisplayName: "x"},
	})
	assert.Error(t, err)
}

func TestFixtureStore_Limit(t *testing.T) {
	store := fixtureStore{
		{ID: "1", AccountType: models.AccountTypeCustomer, Phone: "555-123-4567"},
		{ID: "2", AccountType: models.AccountTypeCustomer, Phone: "555-123-4567"},
		{ID: "3", AccountType: models.AccountTypeBusiness, Phone: "555-123-4567"},
	}
	got, err := store.ListByPhoneSuffix(context.Background(), models.AccountTypeCustomer, "1234567", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}
