package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const table = "profiles"

var columns = []string{
	"id", "account_type", "display_name", "name_normalized", "email", "phone", "phone_normalized",
	"address", "address_normalized", "city", "state", "zip_code", "created_at", "updated_at",
}

// Repository handles profile persistence
type Repository struct {
	db      database.DB
	logger  ectologger.Logger
	timeout time.Duration
}

// NewRepository creates a new profile repository
func NewRepository(db database.DB, logger ectologger.Logger, timeout time.Duration) *Repository {
	return &Repository{
		db:      db,
		logger:  logger,
		timeout: timeout,
	}
}

// Create inserts a profile, filling in its id and canonical columns. A clash
// on the per-account-type email index returns database.ErrUniqueViolation.
func (r *Repository) Create(ctx context.Context, record *models.IdentityRecord) (*models.IdentityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.Create")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.Email = normalizers.NormalizeEmail(record.Email)
	record.NameNormalized = normalizers.Apply(record.DisplayName, "nbusiness")
	record.PhoneNormalized = normalizers.ApplyChain(record.Phone, "trim", "nphone")
	record.AddressNormalized = normalizers.Apply(record.Address, "naddress")
	record.State = normalizers.Apply(record.State, "nstate")
	record.CreatedAt = time.Now().UTC()
	record.UpdatedAt = record.CreatedAt

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns...)
	ib.Values(record.ID, record.AccountType, record.DisplayName, record.NameNormalized, record.Email, record.Phone, record.PhoneNormalized,
		record.Address, record.AddressNormalized, record.City, record.State, record.ZipCode, record.CreatedAt, record.UpdatedAt)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if !database.IsUniqueViolation(err) {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": record.ID}).Error("Failed to create profile")
		}
		return nil, database.Classify(err, "failed to create profile")
	}

	return record, nil
}

// GetByID retrieves a profile by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.IdentityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.GetByID")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var record models.IdentityRecord
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		return nil, database.Classify(err, fmt.Sprintf("failed to get profile %s", id))
	}
	return &record, nil
}

// FindByEmail looks up a profile by email within one account type,
// case-insensitively. Returns nil, nil when there is none.
func (r *Repository) FindByEmail(ctx context.Context, accountType models.AccountType, email string) (*models.IdentityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.FindByEmail")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	email = normalizers.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("account_type", accountType),
		sb.Equal("lower(email)", email),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var records []models.IdentityRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up profile by email")
		return nil, database.Classify(err, "failed to look up profile by email")
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// ListByPhoneSuffix returns profiles of one account type whose normalized
// phone ends in the given 7 digits.
func (r *Repository) ListByPhoneSuffix(ctx context.Context, accountType models.AccountType, suffix string, limit int) ([]models.IdentityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.ListByPhoneSuffix")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("account_type", accountType),
		sb.NotEqual("phone_normalized", ""),
		fmt.Sprintf("right(phone_normalized, 7) = %s", sb.Var(suffix)),
	)
	sb.OrderBy("created_at").Asc()
	sb.Limit(clampLimit(limit))

	return r.list(ctx, sb, "failed to list profiles by phone")
}

// ListByNameToken returns profiles of one account type whose normalized
// business name has token as a whole word. token must already be normalized
// with normalizers.NormalizeBusinessName.
func (r *Repository) ListByNameToken(ctx context.Context, accountType models.AccountType, token string, limit int) ([]models.IdentityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.ListByNameToken")
	defer span.End()
	ctx, cancel := database.WithTimeout(ctx, r.timeout)
	defer cancel()

	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return nil, nil
	}
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(token)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("account_type", accountType),
		sb.Like("' ' || name_normalized || ' '", "% "+escaped+" %"),
	)
	sb.OrderBy("created_at").Asc()
	sb.Limit(clampLimit(limit))

	return r.list(ctx, sb, "failed to list profiles by name")
}

func (r *Repository) list(ctx context.Context, sb *sqlbuilder.SelectBuilder, msg string) ([]models.IdentityRecord, error) {
	query, args := sb.Build()
	var records []models.IdentityRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error(msg)
		return nil, database.Classify(err, msg)
	}
	return records, nil
}

func clampLimit(limit int) int {
	if limit < 1 || limit > 1000 {
		return 500
	}
	return limit
}
