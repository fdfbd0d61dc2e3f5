package matching

import (
	"strings"

	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// Strictness selects how a missing or unparseable phone is treated.
type Strictness int

const (
	// StrictnessStandard treats a missing value on either side as "not a match".
	// Used when a match grants something (review surfacing, claims, self-review).
	StrictnessStandard Strictness = iota
	// StrictnessConservative treats a missing value as "cannot rule out". Used by
	// duplicate detection, where a false negative lets a duplicate through.
	StrictnessConservative
)

// DefaultAddressThreshold is the similarity ratio at or above which two
// addresses are considered the same place.
const DefaultAddressThreshold = 0.8

// PhoneComparison is the three-valued outcome of comparing two phones.
type PhoneComparison int

const (
	PhoneMismatch PhoneComparison = iota
	PhoneMatch
	// PhoneUnknown means at least one side did not normalize.
	PhoneUnknown
)

func (c PhoneComparison) String() string {
	switch c {
	case PhoneMatch:
		return "match"
	case PhoneUnknown:
		return "unknown"
	default:
		return "mismatch"
	}
}

// ComparePhones normalizes both numbers and compares them. Two valid numbers
// match on full 10-digit equality or on equal last 7 digits (same local
// number entered with and without an area code typo).
func ComparePhones(a, b string) PhoneComparison {
	na, nb := normalizers.NormalizePhone(a), normalizers.NormalizePhone(b)
	if na == "" || nb == "" {
		return PhoneUnknown
	}
	if na == nb || na[3:] == nb[3:] {
		return PhoneMatch
	}
	return PhoneMismatch
}

// PhonesEquivalent collapses ComparePhones under the given strictness.
func PhonesEquivalent(a, b string, strictness Strictness) bool {
	switch ComparePhones(a, b) {
	case PhoneMatch:
		return true
	case PhoneUnknown:
		return strictness == StrictnessConservative
	default:
		return false
	}
}

var defaultScorer = NewScorer()

// AddressSimilarity returns the best of token-set Jaccard and token-sorted
// Levenshtein over the normalized addresses. Empty input on either side
// scores 0.
func AddressSimilarity(a, b string) float64 {
	na, nb := normalizers.NormalizeAddress(a), normalizers.NormalizeAddress(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return max(defaultScorer.TokenJaccard(na, nb), defaultScorer.TokenSortLevenshtein(na, nb))
}

// AddressesSimilar reports whether two addresses score at least threshold.
// A non-positive threshold falls back to DefaultAddressThreshold.
func AddressesSimilar(a, b string, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultAddressThreshold
	}
	na, nb := normalizers.NormalizeAddress(a), normalizers.NormalizeAddress(b)
	if na == "" || nb == "" {
		return false
	}
	return AddressSimilarity(a, b) >= threshold
}

// NameSimilarity scores two display names after business normalization:
// the higher of Jaro-Winkler and the containment length ratio.
func NameSimilarity(a, b string) float64 {
	na, nb := normalizers.NormalizeBusinessName(a), normalizers.NormalizeBusinessName(b)
	if na == "" || nb == "" {
		return 0
	}
	return max(defaultScorer.JaroWinkler(na, nb), defaultScorer.Containment(na, nb))
}

// NamesContain reports whether one normalized name contains the other, either
// as a whole string or token by token in order, so a short form like
// "Sal Sardina" is found inside "Salvatore Sardina".
func NamesContain(a, b string) bool {
	na, nb := normalizers.NormalizeName(a), normalizers.NormalizeName(b)
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}

	ta, tb := strings.Fields(na), strings.Fields(nb)
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}
	return tokensContained(ta, tb)
}

// tokensContained walks long in order, consuming one token of long per token
// of short, where either token may contain the other.
func tokensContained(short, long []string) bool {
	j := 0
	for _, s := range short {
		found := false
		for j < len(long) {
			l := long[j]
			j++
			if strings.Contains(l, s) || strings.Contains(s, l) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// FieldEqual compares two free-text fields (city) case-insensitively after
// collapsing whitespace. Empty never matches.
func FieldEqual(a, b string) bool {
	na := strings.Join(strings.Fields(strings.ToLower(a)), " ")
	nb := strings.Join(strings.Fields(strings.ToLower(b)), " ")
	return na != "" && na == nb
}

// ZipsEqual compares two zip codes on their 5-digit prefix.
func ZipsEqual(a, b string) bool {
	na, nb := normalizers.NormalizeZipCode(a), normalizers.NormalizeZipCode(b)
	return na != "" && na == nb
}
