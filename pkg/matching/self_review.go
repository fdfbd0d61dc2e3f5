package matching

import "github.com/Ramsey-B/clover/pkg/normalizers"

// IsSelfReview reports whether a business appears to be reviewing itself:
// the customer phone on the review resolves to the author's own phone.
// A candidate phone with fewer than 10 digits is never a self-review.
func IsSelfReview(authorPhone, candidatePhone string) bool {
	if len(normalizers.DigitsOnly(candidatePhone)) < 10 {
		return false
	}
	return PhonesEquivalent(authorPhone, candidatePhone, StrictnessStandard)
}
