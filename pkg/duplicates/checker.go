// Package duplicates decides whether a signup candidate is already known.
package duplicates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Store is the read side of the profile repository the checker needs
type Store interface {
	FindByEmail(ctx context.Context, accountType models.AccountType, email string) (*models.IdentityRecord, error)
	ListByPhoneSuffix(ctx context.Context, accountType models.AccountType, suffix string, limit int) ([]models.IdentityRecord, error)
	ListByNameToken(ctx context.Context, accountType models.AccountType, token string, limit int) ([]models.IdentityRecord, error)
}

// Config contains configuration for the duplicate checker
type Config struct {
	NameThreshold    float64 // Fuzzy display-name cut-off (default: 0.85)
	AddressThreshold float64 // Address similarity cut-off (default: 0.8)
	CandidateLimit   int     // Max stored records compared per check (default: 500)
}

// DefaultConfig returns default checker configuration
func DefaultConfig() Config {
	return Config{
		NameThreshold:    0.85,
		AddressThreshold: matching.DefaultAddressThreshold,
		CandidateLimit:   500,
	}
}

// Checker runs the duplicate rules against stored profiles
type Checker struct {
	store  Store
	logger ectologger.Logger
	config Config
}

// NewChecker creates a new duplicate checker
func NewChecker(store Store, logger ectologger.Logger, config Config) *Checker {
	return &Checker{
		store:  store,
		logger: logger,
		config: config,
	}
}

// CheckDuplicate applies, within the candidate's account type:
//  1. case-insensitive email equality: hard block
//  2. phone equivalence plus fuzzy name (and/or similar address): soft warning
//
// A store failure is returned as database.ErrStoreUnavailable and never as
// a passing verdict.
func (c *Checker) CheckDuplicate(ctx context.Context, candidate models.SignupCandidate) (*models.DuplicateCheckResult, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicates.Checker.CheckDuplicate")
	defer span.End()

	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"account_type": candidate.AccountType,
	})

	if !candidate.AccountType.Valid() {
		return nil, fmt.Errorf("unknown account type %q", candidate.AccountType)
	}

	if email := normalizers.NormalizeEmail(candidate.Email); email != "" {
		existing, err := c.store.FindByEmail(ctx, candidate.AccountType, email)
		if err != nil {
			return nil, unavailable(err, "email lookup")
		}
		if existing != nil {
			log.Info("Signup blocked by existing email")
			return &models.DuplicateCheckResult{
				IsDuplicate:   true,
				DuplicateType: models.DuplicateTypeEmail,
				ExistingEmail: existing.Email,
				ExistingID:    existing.ID,
				AllowContinue: false,
			}, nil
		}
	}

	records, err := c.candidates(ctx, candidate)
	if err != nil {
		return nil, unavailable(err, "candidate lookup")
	}

	best := models.NoDuplicate()
	for i := range records {
		verdict := c.compare(candidate, &records[i])
		if rank(verdict) > rank(best.DuplicateType) {
			best = &models.DuplicateCheckResult{
				IsDuplicate:   true,
				DuplicateType: verdict,
				ExistingEmail: records[i].Email,
				ExistingID:    records[i].ID,
				AllowContinue: true,
			}
		}
	}

	if best.IsDuplicate {
		log.WithFields(map[string]any{
			"duplicate_type": best.DuplicateType,
			"existing_id":    best.ExistingID,
		}).Info("Soft duplicate found")
	}

	return best, nil
}

// VerdictFromCreateError turns a unique-index violation raised while creating
// the profile into the email verdict. It covers the race where two signups
// with the same email both passed CheckDuplicate.
func (c *Checker) VerdictFromCreateError(err error, candidate models.SignupCandidate) (*models.DuplicateCheckResult, bool) {
	if !database.IsUniqueViolation(err) {
		return nil, false
	}
	return &models.DuplicateCheckResult{
		IsDuplicate:   true,
		DuplicateType: models.DuplicateTypeEmail,
		ExistingEmail: normalizers.NormalizeEmail(candidate.Email),
		AllowContinue: false,
	}, true
}

// candidates narrows the stored profiles worth comparing. With a usable phone
// the index on the last 7 digits does the work; without one, any profile
// sharing the longest name token is a candidate.
func (c *Checker) candidates(ctx context.Context, candidate models.SignupCandidate) ([]models.IdentityRecord, error) {
	if phone := normalizers.NormalizePhone(candidate.Phone); phone != "" {
		return c.store.ListByPhoneSuffix(ctx, candidate.AccountType, phone[3:], c.config.CandidateLimit)
	}

	token := longestToken(normalizers.NormalizeBusinessName(candidate.DisplayName))
	if token == "" {
		return nil, nil
	}
	return c.store.ListByNameToken(ctx, candidate.AccountType, token, c.config.CandidateLimit)
}

func (c *Checker) compare(candidate models.SignupCandidate, rec *models.IdentityRecord) models.DuplicateType {
	if rec.AccountType != candidate.AccountType {
		return models.DuplicateTypeNone
	}

	// stored records without a phone never count
	if normalizers.NormalizePhone(rec.Phone) == "" {
		return models.DuplicateTypeNone
	}

	phone := matching.ComparePhones(candidate.Phone, rec.Phone)
	if !matching.PhonesEquivalent(candidate.Phone, rec.Phone, matching.StrictnessConservative) {
		return models.DuplicateTypeNone
	}

	nameMatch := matching.NameSimilarity(candidate.DisplayName, rec.DisplayName) >= c.config.NameThreshold
	addressMatch := matching.AddressesSimilar(candidate.Address, rec.Address, c.config.AddressThreshold)

	switch {
	case nameMatch && addressMatch:
		return models.DuplicateTypeBoth
	case nameMatch && candidate.AccountType == models.AccountTypeBusiness:
		return models.DuplicateTypeBusinessName
	case nameMatch:
		return models.DuplicateTypeCustomerName
	case addressMatch && phone == matching.PhoneMatch:
		return models.DuplicateTypePhone
	default:
		return models.DuplicateTypeNone
	}
}

func rank(t models.DuplicateType) int {
	switch t {
	case models.DuplicateTypeBoth:
		return 3
	case models.DuplicateTypeBusinessName, models.DuplicateTypeCustomerName:
		return 2
	case models.DuplicateTypePhone:
		return 1
	default:
		return 0
	}
}

func longestToken(s string) string {
	longest := ""
	for _, tok := range strings.Fields(s) {
		if len(tok) > len(longest) {
			longest = tok
		}
	}
	return longest
}

func unavailable(err error, op string) error {
	if errors.Is(err, database.ErrStoreUnavailable) {
		return fmt.Errorf("duplicate check %s: %w", op, err)
	}
	return fmt.Errorf("duplicate check %s: %w: %w", op, database.ErrStoreUnavailable, err)
}
