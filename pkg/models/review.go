package models

import "time"

// Review is written by a business about a customer who may not have an account
// yet. CustomerID stays nil until the review is claimed, and once set it is
// never changed.
type Review struct {
	ID              string     `json:"id" db:"id"`
	AuthorID        string     `json:"author_id" db:"author_id"`
	Rating          int        `json:"rating" db:"rating"`
	Content         string     `json:"content" db:"content"`
	CustomerName    string     `json:"customer_name" db:"customer_name"`
	CustomerPhone   string     `json:"customer_phone,omitempty" db:"customer_phone"`
	CustomerAddress string     `json:"customer_address,omitempty" db:"customer_address"`
	CustomerCity    string     `json:"customer_city,omitempty" db:"customer_city"`
	CustomerZip     string     `json:"customer_zip,omitempty" db:"customer_zip"`
	CustomerID      *string    `json:"customer_id,omitempty" db:"customer_id"`
	ClaimedAt       *time.Time `json:"claimed_at,omitempty" db:"claimed_at"`
	ClaimedBy       *string    `json:"claimed_by,omitempty" db:"claimed_by"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// IsClaimed reports whether any customer holds the review
func (r *Review) IsClaimed() bool {
	return r.CustomerID != nil && *r.CustomerID != ""
}

// ReviewCursor is a keyset position in the newest-first review order
type ReviewCursor struct {
	CreatedAt time.Time
	ID        string
}

// Cursor positions a page after r
func (r *Review) Cursor() *ReviewCursor {
	return &ReviewCursor{CreatedAt: r.CreatedAt, ID: r.ID}
}

// ClaimedByCustomer reports whether customerID holds the review
func (r *Review) ClaimedByCustomer(customerID string) bool {
	return r.IsClaimed() && *r.CustomerID == customerID
}

// CreateReviewRequest is the body of a review submission. The author comes
// from the authenticated viewer, never from the body.
type CreateReviewRequest struct {
	Rating          int    `json:"rating" validate:"required,min=1,max=5"`
	Content         string `json:"content" validate:"required,max=5000"`
	CustomerName    string `json:"customer_name" validate:"required,max=200"`
	CustomerPhone   string `json:"customer_phone,omitempty" validate:"max=32"`
	CustomerAddress string `json:"customer_address,omitempty" validate:"max=300"`
	CustomerCity    string `json:"customer_city,omitempty" validate:"max=100"`
	CustomerZip     string `json:"customer_zip,omitempty" validate:"max=10"`
}

// ToReview builds an unclaimed review authored by authorID
func (r CreateReviewRequest) ToReview(authorID string) *Review {
	return &Review{
		AuthorID:        authorID,
		Rating:          r.Rating,
		Content:         r.Content,
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		CustomerAddress: r.CustomerAddress,
		CustomerCity:    r.CustomerCity,
		CustomerZip:     r.CustomerZip,
	}
}

// ReviewNotification marks a review as already surfaced to a customer.
type ReviewNotification struct {
	CustomerID string    `json:"customer_id" db:"customer_id"`
	ReviewID   string    `json:"review_id" db:"review_id"`
	ShownAt    time.Time `json:"shown_at" db:"shown_at"`
}
