package models

// DuplicateType names the rule that fired in a duplicate check
type DuplicateType string

const (
	DuplicateTypeNone         DuplicateType = "none"
	DuplicateTypeEmail        DuplicateType = "email"
	DuplicateTypePhone        DuplicateType = "phone"
	DuplicateTypeBusinessName DuplicateType = "business_name"
	DuplicateTypeCustomerName DuplicateType = "customer_name"
	DuplicateTypeBoth         DuplicateType = "both"
)

// DuplicateCheckResult is the verdict for a signup candidate.
// AllowContinue=false is a hard block; true with IsDuplicate=true is a
// warning the caller may proceed past.
type DuplicateCheckResult struct {
	IsDuplicate   bool          `json:"is_duplicate"`
	DuplicateType DuplicateType `json:"duplicate_type"`
	ExistingEmail string        `json:"existing_email,omitempty"`
	ExistingID    string        `json:"-"`
	AllowContinue bool          `json:"allow_continue"`
}

// NoDuplicate is the passing verdict
func NoDuplicate() *DuplicateCheckResult {
	return &DuplicateCheckResult{DuplicateType: DuplicateTypeNone, AllowContinue: true}
}

// Blocked reports whether the verdict forbids creating the account
func (r *DuplicateCheckResult) Blocked() bool {
	return r.IsDuplicate && !r.AllowContinue
}
