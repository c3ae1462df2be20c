package models

import "github.com/shopspring/decimal"

// Bill represents a shared expense split among participants.
// A bill is immutable once saved except for a full-record replace
// (update), a delete, and the one-way settlement transition.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// CreatorID is the user who saved the bill.
	CreatorID string

	// Title is the human-readable name for the bill.
	Title string

	// Total is the source-of-truth bill amount, either entered by the
	// user (manual mode) or computed from item prices (itemized mode).
	Total decimal.Decimal

	// Currency is the ISO 4217 code (e.g., "USD", "JPY").
	Currency string

	// Date is the Unix timestamp of the expense; defaults to the save
	// time when the user leaves it blank.
	Date int64

	// Location is an optional free-text venue ("Luigi's").
	Location string

	// Description is an optional free-text note.
	Description string

	// Participants is the ordered list of resolved per-person shares.
	Participants []BillParticipant

	// IsSettled is true once every participant has paid. There is no
	// transition back to unsettled.
	IsSettled bool

	// CreatedAt is the Unix timestamp when the bill was saved.
	CreatedAt int64
}

// BillParticipant is one person's resolved share of a bill.
type BillParticipant struct {
	// ID is the unique identifier for this participant entry (UUID
	// format), scoped to the bill.
	ID string

	// Name is the participant's display name (required, non-empty).
	Name string

	// Email is optional; when present it is offered to the saved
	// contacts book after the bill is saved.
	Email string

	// Amount is what this participant owes.
	Amount decimal.Decimal

	// HasPaid is true once this participant settled their share.
	HasPaid bool
}

// Contact is a saved address-book entry owned by a user, used to
// pre-fill participants on new bills.
type Contact struct {
	// ID is the unique identifier for the contact (UUID format).
	ID string

	// OwnerID is the user who saved this contact.
	OwnerID string

	// Name is the contact's display name.
	Name string

	// Email is the contact's email address.
	Email string

	// CreatedAt is the Unix timestamp when the contact was saved.
	CreatedAt int64
}
