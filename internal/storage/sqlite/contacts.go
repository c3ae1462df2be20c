package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tallyup/tallyup/internal/models"
	"github.com/tallyup/tallyup/internal/storage"
)

// CreateContact saves an address-book entry. A contact with the same
// owner and email is silently kept as-is, so offering participants after
// every bill save stays idempotent.
func (s *SQLiteStore) CreateContact(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	if contact.CreatedAt == 0 {
		contact.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, owner_id, name, email, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (owner_id, email) DO NOTHING`,
		contact.ID, contact.OwnerID, contact.Name, contact.Email, contact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}

	return nil
}

// ListContactsByOwner retrieves a user's saved contacts ordered by name.
func (s *SQLiteStore) ListContactsByOwner(ctx context.Context, ownerID string) ([]*models.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, email, created_at
		 FROM contacts WHERE owner_id = ? ORDER BY name`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		contact := &models.Contact{}
		if err := rows.Scan(&contact.ID, &contact.OwnerID, &contact.Name, &contact.Email, &contact.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}

	return contacts, nil
}

// DeleteContact removes a saved contact owned by the given user.
func (s *SQLiteStore) DeleteContact(ctx context.Context, ownerID, contactID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM contacts WHERE id = ? AND owner_id = ?",
		contactID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("contact %s: %w", contactID, storage.ErrNotFound)
	}
	return nil
}
