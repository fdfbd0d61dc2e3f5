package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/duplicates"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/utils"
)

var fixturePath string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the duplicate checker and review matcher over a JSON fixture",
	Long: `check reads a fixture of stored profiles and reviews, then prints the
signup verdict for "candidate" and the categorized reviews for "viewer".
No database is needed. Pass "-" to read the fixture from stdin.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, sync, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer sync()

		in, err := openFixture(fixturePath)
		if err != nil {
			return err
		}
		defer in.Close()

		var fx Fixture
		if err := json.NewDecoder(in).Decode(&fx); err != nil {
			return errors.Wrap(err, "decode fixture")
		}

		report, err := runCheck(cmd.Context(), cfg, logger, fx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	checkCmd.Flags().StringVarP(&fixturePath, "fixture", "f", "-", "fixture file")
}

// Fixture is the input of the check command
type Fixture struct {
	Profiles  []models.IdentityRecord `json:"profiles"`
	Reviews   []*models.Review        `json:"reviews"`
	Candidate *models.SignupCandidate `json:"candidate,omitempty"`
	Viewer    *models.IdentityRecord  `json:"viewer,omitempty"`
}

// Report is the output of the check command
type Report struct {
	Verdict *models.DuplicateCheckResult `json:"verdict,omitempty"`
	Matches []models.ReviewMatch         `json:"matches,omitempty"`
}

func runCheck(ctx context.Context, cfg *config.Config, logger ectologger.Logger, fx Fixture) (*Report, error) {
	report := &Report{}

	if fx.Candidate != nil {
		candidate, err := utils.Validate(*fx.Candidate)
		if err != nil {
			return nil, err
		}
		checker := duplicates.NewChecker(fixtureStore(fx.Profiles), logger, duplicates.Config{
			NameThreshold:    cfg.DuplicateNameThreshold,
			AddressThreshold: cfg.AddressSimilarity,
			CandidateLimit:   cfg.MatchBatchSize,
		})
		verdict, err := checker.CheckDuplicate(ctx, candidate)
		if err != nil {
			return nil, err
		}
		report.Verdict = verdict
	}

	if fx.Viewer != nil {
		mc := matching.DefaultMatcherConfig()
		mc.AddressThreshold = cfg.AddressSimilarity
		report.Matches = matching.NewMatcher(mc).Categorize(fx.Reviews, fx.Viewer, nil)
	}

	return report, nil
}

func openFixture(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open fixture %s", path)
	}
	return f, nil
}

// fixtureStore answers the checker's lookups by scanning a slice
type fixtureStore []models.IdentityRecord

func (s fixtureStore) FindByEmail(_ context.Context, accountType models.AccountType, email string) (*models.IdentityRecord, error) {
	for i := range s {
		if s[i].AccountType == accountType && s[i].Email != "" && normalizers.NormalizeEmail(s[i].Email) == email {
			r := s[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (s fixtureStore) ListByPhoneSuffix(_ context.Context, accountType models.AccountType, suffix string, limit int) ([]models.IdentityRecord, error) {
	return s.filter(accountType, limit, func(r models.IdentityRecord) bool {
		return strings.HasSuffix(normalizers.NormalizePhone(r.Phone), suffix)
	}), nil
}

func (s fixtureStore) ListByNameToken(_ context.Context, accountType models.AccountType, token string, limit int) ([]models.IdentityRecord, error) {
	return s.filter(accountType, limit, func(r models.IdentityRecord) bool {
		for _, tok := range strings.Fields(normalizers.NormalizeBusinessName(r.DisplayName)) {
			if tok == token {
				return true
			}
		}
		return false
	}), nil
}

func (s fixtureStore) filter(accountType models.AccountType, limit int, keep func(models.IdentityRecord) bool) []models.IdentityRecord {
	var out []models.IdentityRecord
	for _, r := range s {
		if limit > 0 && len(out) >= limit {
			break
		}
		if r.AccountType == accountType && keep(r) {
			out = append(out, r)
		}
	}
	return out
}
