package models

import "time"

// MatchType is the strength of the link between a review and a viewer
type MatchType string

const (
	MatchTypeClaimed     MatchType = "claimed"
	MatchTypeHighQuality MatchType = "high_quality"
	MatchTypePotential   MatchType = "potential"
	MatchTypeNone        MatchType = "none"
)

// rank orders match types for sorting; higher is stronger
func (t MatchType) rank() int {
	switch t {
	case MatchTypeClaimed:
		return 3
	case MatchTypeHighQuality:
		return 2
	case MatchTypePotential:
		return 1
	default:
		return 0
	}
}

// Stronger reports whether t outranks other
func (t MatchType) Stronger(other MatchType) bool {
	return t.rank() > other.rank()
}

// MatchResult explains why a review is (or is not) about a viewer
type MatchResult struct {
	MatchType    MatchType `json:"match_type"`
	MatchScore   float64   `json:"match_score"`
	MatchReasons []string  `json:"match_reasons"`
	NameMatch    bool      `json:"name_match"`
	PhoneMatch   bool      `json:"phone_match"`
	AddressMatch bool      `json:"address_match"`
	CityMatch    bool      `json:"city_match"`
	ZipMatch     bool      `json:"zip_match"`
}

// Claimable reports whether the result is strong enough to claim. Potential
// matches need an explicit confirmation from the customer.
func (m MatchResult) Claimable(confirmed bool) bool {
	switch m.MatchType {
	case MatchTypeClaimed, MatchTypeHighQuality:
		return true
	case MatchTypePotential:
		return confirmed
	default:
		return false
	}
}

// ReviewMatch pairs a review with its match result for list views
type ReviewMatch struct {
	Review *Review     `json:"review"`
	Match  MatchResult `json:"match"`
	IsNew  bool        `json:"is_new"`
}

// ReviewMatchList is the "reviews about me" response
type ReviewMatchList struct {
	Items    []ReviewMatch `json:"items"`
	LastSeen *time.Time    `json:"last_seen,omitempty"`
}
