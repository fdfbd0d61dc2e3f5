// Package profiles creates business and customer accounts behind the
// duplicate checker.
package profiles

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ErrEmailTaken is returned when the email verdict blocks a signup
var ErrEmailTaken = errors.New("duplicate_email")

// Store is the profile persistence the service needs
type Store interface {
	Create(ctx context.Context, record *models.IdentityRecord) (*models.IdentityRecord, error)
	GetByID(ctx context.Context, id string) (*models.IdentityRecord, error)
}

// DuplicateChecker produces signup verdicts
type DuplicateChecker interface {
	CheckDuplicate(ctx context.Context, candidate models.SignupCandidate) (*models.DuplicateCheckResult, error)
	VerdictFromCreateError(err error, candidate models.SignupCandidate) (*models.DuplicateCheckResult, bool)
}

// Emitter publishes profile events
type Emitter interface {
	EmitSoftDuplicate(ctx context.Context, profileID string, candidate models.SignupCandidate, verdict *models.DuplicateCheckResult) error
	EmitProfileCreated(ctx context.Context, record *models.IdentityRecord) error
}

// ResemblanceLinker records lookalike accounts in the identity graph
type ResemblanceLinker interface {
	LinkResemblance(ctx context.Context, profileID, existingID, duplicateType string) error
}

// SignupResult carries the verdict next to the created profile. Profile is
// nil when the verdict blocked the signup.
type SignupResult struct {
	Profile *models.IdentityRecord       `json:"profile,omitempty"`
	Verdict *models.DuplicateCheckResult `json:"verdict"`
}

// Service handles signups and profile lookups
type Service struct {
	store   Store
	checker DuplicateChecker
	emitter Emitter
	linker  ResemblanceLinker
	logger  ectologger.Logger
}

// NewService creates a new profile service
func NewService(logger ectologger.Logger, store Store, checker DuplicateChecker, emitter Emitter, linker ResemblanceLinker) *Service {
	return &Service{
		store:   store,
		checker: checker,
		emitter: emitter,
		linker:  linker,
		logger:  logger,
	}
}

// Check runs the duplicate checker without creating anything
func (s *Service) Check(ctx context.Context, candidate models.SignupCandidate) (*models.DuplicateCheckResult, error) {
	ctx, span := tracing.StartSpan(ctx, "profiles.Service.Check")
	defer span.End()

	verdict, err := s.checker.CheckDuplicate(ctx, candidate)
	if err != nil {
		if errors.Is(err, database.ErrStoreUnavailable) {
			metrics.RecordStoreUnavailable("duplicate_check")
		}
		return nil, err
	}
	metrics.RecordDuplicateVerdict(string(candidate.AccountType), string(verdict.DuplicateType))
	return verdict, nil
}

// Signup checks the candidate and creates the profile unless the email
// verdict blocks it. Soft duplicates are created and audited.
func (s *Service) Signup(ctx context.Context, candidate models.SignupCandidate) (*SignupResult, error) {
	ctx, span := tracing.StartSpan(ctx, "profiles.Service.Signup")
	defer span.End()

	log := s.logger.WithContext(ctx).WithField("account_type", candidate.AccountType)

	verdict, err := s.Check(ctx, candidate)
	if err != nil {
		return nil, errors.Wrap(err, "signup duplicate check failed")
	}
	if verdict.Blocked() {
		return &SignupResult{Verdict: verdict}, ErrEmailTaken
	}

	created, err := s.store.Create(ctx, candidate.ToRecord())
	if err != nil {
		// a concurrent signup won the email index
		if raced, ok := s.checker.VerdictFromCreateError(err, candidate); ok {
			log.Info("Signup lost email race")
			metrics.RecordDuplicateVerdict(string(candidate.AccountType), string(raced.DuplicateType))
			return &SignupResult{Verdict: raced}, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "failed to create profile")
	}

	if verdict.IsDuplicate {
		s.auditSoftDuplicate(ctx, created, candidate, verdict)
	}

	if s.emitter != nil {
		if err := s.emitter.EmitProfileCreated(ctx, created); err != nil {
			log.WithError(err).Warn("Failed to emit profile.created")
		}
	}

	log.WithField("profile_id", created.ID).Info("Profile created")
	return &SignupResult{Profile: created, Verdict: verdict}, nil
}

// Get returns a profile by id
func (s *Service) Get(ctx context.Context, id string) (*models.IdentityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "profiles.Service.Get")
	defer span.End()

	return s.store.GetByID(ctx, id)
}

func (s *Service) auditSoftDuplicate(ctx context.Context, created *models.IdentityRecord, candidate models.SignupCandidate, verdict *models.DuplicateCheckResult) {
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"profile_id":     created.ID,
		"existing_id":    verdict.ExistingID,
		"duplicate_type": verdict.DuplicateType,
		"account_type":   candidate.AccountType,
	})
	log.Warn("Profile created despite soft duplicate")

	if s.emitter != nil {
		if err := s.emitter.EmitSoftDuplicate(ctx, created.ID, candidate, verdict); err != nil {
			log.WithError(err).Warn("Failed to emit profile.soft_duplicate")
		}
	}
	if s.linker != nil && verdict.ExistingID != "" {
		if err := s.linker.LinkResemblance(ctx, created.ID, verdict.ExistingID, string(verdict.DuplicateType)); err != nil {
			log.WithError(err).Warn("Failed to link resemblance in graph")
		}
	}
}
