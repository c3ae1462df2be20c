// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/tallyup/tallyup/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with a uniqueness
// constraint, such as registering an email twice.
var ErrDuplicate = errors.New("duplicate record")

// Store defines the interface for bill, contact, and user storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
type Store interface {
	// CreateBill persists a new bill with its participants.
	// Missing IDs and CreatedAt are populated by the store.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves a bill by ID, participants included.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// ListBillsByCreator retrieves a user's bills, newest first.
	ListBillsByCreator(ctx context.Context, creatorID string) ([]*models.Bill, error)

	// UpdateBill replaces a bill record in full, participants included.
	UpdateBill(ctx context.Context, bill *models.Bill) error

	// DeleteBill removes a bill and its participants.
	DeleteBill(ctx context.Context, billID string) error

	// SettleBill marks every participant paid and the bill settled in
	// one transaction. Settling an already-settled bill is a no-op.
	SettleBill(ctx context.Context, billID string) error

	// MarkParticipantPaid marks one participant's share paid and, when
	// that was the last unpaid share, settles the bill.
	MarkParticipantPaid(ctx context.Context, billID, participantID string) error

	// CreateContact saves an address-book entry. Saving a contact with
	// the same owner and email again is a no-op.
	CreateContact(ctx context.Context, contact *models.Contact) error

	// ListContactsByOwner retrieves a user's saved contacts by name.
	ListContactsByOwner(ctx context.Context, ownerID string) ([]*models.Contact, error)

	// DeleteContact removes a saved contact.
	DeleteContact(ctx context.Context, ownerID, contactID string) error

	// CreateUser inserts a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email, or (nil, nil) when the
	// email is unregistered.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID, or (nil, nil) when absent.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
