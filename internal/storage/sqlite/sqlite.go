// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/tallyup/tallyup/internal/models"
	"github.com/tallyup/tallyup/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateBill persists a new bill with its participants.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	if bill.Date == 0 {
		bill.Date = bill.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bills (id, creator_id, title, total, currency, date, location, description, is_settled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.CreatorID, bill.Title, bill.Total.String(), bill.Currency,
		bill.Date, nullable(bill.Location), nullable(bill.Description),
		boolToInt(bill.IsSettled), bill.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	if err := insertParticipants(ctx, tx, bill); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBill retrieves a bill by ID, including all participants.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	bill := &models.Bill{}
	var total string
	var location, description sql.NullString
	var settled int

	err := s.db.QueryRowContext(ctx,
		`SELECT id, creator_id, title, total, currency, date, location, description, is_settled, created_at
		 FROM bills WHERE id = ?`,
		billID,
	).Scan(&bill.ID, &bill.CreatorID, &bill.Title, &total, &bill.Currency,
		&bill.Date, &location, &description, &settled, &bill.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	bill.Total, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("corrupt total for bill %s: %w", billID, err)
	}
	bill.Location = location.String
	bill.Description = description.String
	bill.IsSettled = settled != 0

	bill.Participants, err = s.loadParticipants(ctx, billID)
	if err != nil {
		return nil, err
	}

	return bill, nil
}

// ListBillsByCreator retrieves all bills saved by a user, newest first.
func (s *SQLiteStore) ListBillsByCreator(ctx context.Context, creatorID string) ([]*models.Bill, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM bills WHERE creator_id = ? ORDER BY created_at DESC, id",
		creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan bill id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}

	bills := make([]*models.Bill, 0, len(ids))
	for _, id := range ids {
		bill, err := s.GetBill(ctx, id)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, nil
}

// UpdateBill replaces a bill record in full, participants included.
func (s *SQLiteStore) UpdateBill(ctx context.Context, bill *models.Bill) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE bills SET title = ?, total = ?, currency = ?, date = ?, location = ?, description = ?, is_settled = ?
		 WHERE id = ?`,
		bill.Title, bill.Total.String(), bill.Currency, bill.Date,
		nullable(bill.Location), nullable(bill.Description),
		boolToInt(bill.IsSettled), bill.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bill %s: %w", bill.ID, storage.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM bill_participants WHERE bill_id = ?", bill.ID); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	if err := insertParticipants(ctx, tx, bill); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteBill removes a bill; participants cascade.
func (s *SQLiteStore) DeleteBill(ctx context.Context, billID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", billID)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	return nil
}

// SettleBill marks every participant paid and the bill settled in one
// transaction.
func (s *SQLiteStore) SettleBill(ctx context.Context, billID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE bills SET is_settled = 1 WHERE id = ?", billID)
	if err != nil {
		return fmt.Errorf("failed to settle bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check settle: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE bill_participants SET has_paid = 1 WHERE bill_id = ?", billID); err != nil {
		return fmt.Errorf("failed to mark participants paid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// MarkParticipantPaid marks one share paid and settles the bill when it
// was the last unpaid one.
func (s *SQLiteStore) MarkParticipantPaid(ctx context.Context, billID, participantID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE bill_participants SET has_paid = 1 WHERE bill_id = ? AND id = ?",
		billID, participantID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark participant paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check payment update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("participant %s on bill %s: %w", participantID, billID, storage.ErrNotFound)
	}

	var unpaid int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bill_participants WHERE bill_id = ? AND has_paid = 0",
		billID,
	).Scan(&unpaid)
	if err != nil {
		return fmt.Errorf("failed to count unpaid participants: %w", err)
	}
	if unpaid == 0 {
		if _, err := tx.ExecContext(ctx, "UPDATE bills SET is_settled = 1 WHERE id = ?", billID); err != nil {
			return fmt.Errorf("failed to settle bill: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *SQLiteStore) loadParticipants(ctx context.Context, billID string) ([]models.BillParticipant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, amount, has_paid
		 FROM bill_participants WHERE bill_id = ? ORDER BY position`,
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []models.BillParticipant
	for rows.Next() {
		var p models.BillParticipant
		var email sql.NullString
		var amount string
		var paid int
		if err := rows.Scan(&p.ID, &p.Name, &email, &amount, &paid); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.Email = email.String
		p.HasPaid = paid != 0
		p.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount for participant %s: %w", p.ID, err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

func insertParticipants(ctx context.Context, tx *sql.Tx, bill *models.Bill) error {
	for i := range bill.Participants {
		p := &bill.Participants[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO bill_participants (id, bill_id, position, name, email, amount, has_paid)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, bill.ID, i, p.Name, nullable(p.Email), p.Amount.String(), boolToInt(p.HasPaid),
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
