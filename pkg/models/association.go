package models

import "time"

// AssociationType is the kind of link a customer has to a review
type AssociationType string

const (
	AssociationTypeClaimed   AssociationType = "claimed"
	AssociationTypePurchased AssociationType = "purchased"
	AssociationTypeResponded AssociationType = "responded"
)

// Association is an append-only audit row linking a customer to a review
type Association struct {
	ID              string          `json:"id" db:"id"`
	CustomerID      string          `json:"customer_id" db:"customer_id"`
	ReviewID        string          `json:"review_id" db:"review_id"`
	AssociationType AssociationType `json:"association_type" db:"association_type"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// CreateAssociationRequest records a non-claim association. Claims go through
// the claim endpoint.
type CreateAssociationRequest struct {
	AssociationType AssociationType `json:"association_type" validate:"required,oneof=purchased responded"`
}
