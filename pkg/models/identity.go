package models

import "time"

// AccountType separates the two sides of the marketplace. Uniqueness and
// duplicate rules are always scoped to one account type.
type AccountType string

const (
	AccountTypeBusiness AccountType = "business"
	AccountTypeCustomer AccountType = "customer"
)

// Valid reports whether t is a known account type
func (t AccountType) Valid() bool {
	return t == AccountTypeBusiness || t == AccountTypeCustomer
}

// IdentityRecord is a profile row: a business or customer account.
// Field order matches schema: id, account_type, display_name, email, phone, ...
type IdentityRecord struct {
	ID                string      `json:"id" db:"id"`
	AccountType       AccountType `json:"account_type" db:"account_type"`
	DisplayName       string      `json:"display_name" db:"display_name"`
	NameNormalized    string      `json:"-" db:"name_normalized"`
	Email             string      `json:"email,omitempty" db:"email"`
	Phone             string      `json:"phone,omitempty" db:"phone"`
	PhoneNormalized   string      `json:"-" db:"phone_normalized"`
	Address           string      `json:"address,omitempty" db:"address"`
	AddressNormalized string      `json:"-" db:"address_normalized"`
	City              string      `json:"city,omitempty" db:"city"`
	State             string      `json:"state,omitempty" db:"state"` // USPS code
	ZipCode           string      `json:"zip_code,omitempty" db:"zip_code"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// SignupCandidate is an identity that does not exist yet: the input to the
// duplicate checker and to profile creation.
type SignupCandidate struct {
	AccountType AccountType `json:"account_type" validate:"required,oneof=business customer"`
	DisplayName string      `json:"display_name" validate:"required,max=200"`
	Email       string      `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string      `json:"phone,omitempty" validate:"max=32"`
	Address     string      `json:"address,omitempty" validate:"max=300"`
	City        string      `json:"city,omitempty" validate:"max=100"`
	State       string      `json:"state,omitempty" validate:"max=50"`
	ZipCode     string      `json:"zip_code,omitempty" validate:"max=10"`
}

// ToRecord converts a candidate into a record ready to insert. IDs and
// canonical columns are filled in by the repository.
func (c SignupCandidate) ToRecord() *IdentityRecord {
	return &IdentityRecord{
		AccountType: c.AccountType,
		DisplayName: c.DisplayName,
		Email:       c.Email,
		Phone:       c.Phone,
		Address:     c.Address,
		City:        c.City,
		State:       c.State,
		ZipCode:     c.ZipCode,
	}
}
