package matching

import (
	"sort"
	"time"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/clover/pkg/models"
)

const (
	ReasonClaimedByYou = "Already claimed by you"
	ReasonName         = "Name matched ✓"
	ReasonPhone        = "Phone matched ✓"
	ReasonAddress      = "Address matched ✓"
	ReasonCity         = "City matched ✓"
	ReasonZip          = "Zip code matched ✓"
)

// Weights are the per-field contributions to a match score
type Weights struct {
	Name    float64
	Phone   float64
	Address float64
	City    float64
	Zip     float64
}

// MatcherConfig contains configuration for the review matcher
type MatcherConfig struct {
	Weights          Weights
	AddressThreshold float64 // Address similarity cut-off (default: 0.8)
}

// DefaultMatcherConfig returns default matcher configuration
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		Weights: Weights{
			Name:    0.4,
			Phone:   0.35,
			Address: 0.25,
			City:    0.1,
			Zip:     0.1,
		},
		AddressThreshold: DefaultAddressThreshold,
	}
}

// Matcher decides whether a review is about a viewer. It holds no state
// beyond its config and is safe for concurrent use.
type Matcher struct {
	config MatcherConfig
}

// NewMatcher creates a new review matcher
func NewMatcher(config MatcherConfig) *Matcher {
	return &Matcher{config: config}
}

// Match scores a review against a viewer. Phone and address use standard
// strictness: a blank field on either side never counts.
func (m *Matcher) Match(review *models.Review, viewer *models.IdentityRecord) models.MatchResult {
	none := models.MatchResult{MatchType: models.MatchTypeNone, MatchReasons: []string{}}
	if review == nil || viewer == nil {
		return none
	}

	if review.IsClaimed() {
		if review.ClaimedByCustomer(viewer.ID) {
			return models.MatchResult{
				MatchType:    models.MatchTypeClaimed,
				MatchScore:   1.0,
				MatchReasons: []string{ReasonClaimedByYou},
			}
		}
		return none
	}

	result := models.MatchResult{
		NameMatch:    NamesContain(review.CustomerName, viewer.DisplayName),
		PhoneMatch:   PhonesEquivalent(review.CustomerPhone, viewer.Phone, StrictnessStandard),
		AddressMatch: AddressesSimilar(review.CustomerAddress, viewer.Address, m.config.AddressThreshold),
		CityMatch:    FieldEqual(review.CustomerCity, viewer.City),
		ZipMatch:     ZipsEqual(review.CustomerZip, viewer.ZipCode),
	}

	w := m.config.Weights
	strong := 0.0
	if result.NameMatch {
		strong += w.Name
	}
	if result.PhoneMatch {
		strong += w.Phone
	}
	if result.AddressMatch {
		strong += w.Address
	}

	switch {
	case highQuality(result):
		result.MatchType = models.MatchTypeHighQuality
		result.MatchScore = min(strong, 1.0)
		result.MatchReasons = reasons(result, false)
	case result.NameMatch || result.PhoneMatch || result.AddressMatch || result.CityMatch || result.ZipMatch:
		score := strong
		if result.CityMatch {
			score += w.City
		}
		if result.ZipMatch {
			score += w.Zip
		}
		result.MatchType = models.MatchTypePotential
		result.MatchScore = min(score, 1.0)
		result.MatchReasons = reasons(result, true)
	default:
		return none
	}

	return result
}

func highQuality(r models.MatchResult) bool {
	return (r.NameMatch && (r.PhoneMatch || r.AddressMatch)) || (r.PhoneMatch && r.AddressMatch)
}

// reasons lists matched fields in display order. High-quality results list
// only the weighted fields that scored; city and zip are listed for
// potential matches, where they add to the score.
func reasons(r models.MatchResult, includeLocality bool) []string {
	out := []string{}
	if r.NameMatch {
		out = append(out, ReasonName)
	}
	if r.PhoneMatch {
		out = append(out, ReasonPhone)
	}
	if r.AddressMatch {
		out = append(out, ReasonAddress)
	}
	if includeLocality && r.CityMatch {
		out = append(out, ReasonCity)
	}
	if includeLocality && r.ZipMatch {
		out = append(out, ReasonZip)
	}
	return out
}

// Categorize matches every review against the viewer and returns those with
// any link, ordered claimed first, then by score, then newest. Reviews created
// after lastSeen are flagged new; a nil lastSeen flags everything.
func (m *Matcher) Categorize(reviews []*models.Review, viewer *models.IdentityRecord, lastSeen *time.Time) []models.ReviewMatch {
	all := ectolinq.Map(reviews, func(r *models.Review) models.ReviewMatch {
		return models.ReviewMatch{
			Review: r,
			Match:  m.Match(r, viewer),
			IsNew:  lastSeen == nil || (r != nil && r.CreatedAt.After(*lastSeen)),
		}
	})

	matched := ectolinq.Filter(all, func(rm models.ReviewMatch) bool {
		return rm.Match.MatchType != models.MatchTypeNone
	})

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Match.MatchType != b.Match.MatchType && (a.Match.MatchType == models.MatchTypeClaimed || b.Match.MatchType == models.MatchTypeClaimed) {
			return a.Match.MatchType == models.MatchTypeClaimed
		}
		if a.Match.MatchScore != b.Match.MatchScore {
			return a.Match.MatchScore > b.Match.MatchScore
		}
		return a.Review.CreatedAt.After(b.Review.CreatedAt)
	})

	return matched
}
