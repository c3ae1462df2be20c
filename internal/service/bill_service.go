package service

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tallyup/tallyup/internal/allocation"
	"github.com/tallyup/tallyup/internal/middleware"
	"github.com/tallyup/tallyup/internal/models"
	"github.com/tallyup/tallyup/internal/money"
	"github.com/tallyup/tallyup/internal/storage"
)

// Allocation modes accepted by the bill endpoints.
const (
	ModeManual   = "manual"
	ModeItemized = "itemized"
)

// BillService handles bill creation, retrieval, updates, and settlement.
type BillService struct {
	store storage.Store
}

// NewBillService creates a new BillService with the given storage backend.
func NewBillService(store storage.Store) *BillService {
	return &BillService{store: store}
}

// participantInput is one manual-mode participant row as typed by the
// user; the amount stays a raw string and is parsed leniently.
type participantInput struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Amount string `json:"amount"`
}

// itemInput is one itemized-mode menu item; shares maps participant IDs
// from the pool to positive share counts.
type itemInput struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Price  string         `json:"price"`
	Shares map[string]int `json:"shares"`
}

// poolInput is a member of an itemized bill's participant pool.
type poolInput struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// billRequest is the payload for previewing, creating, and updating a
// bill. Mode selects which of the two allocation blocks applies; the two
// are mutually exclusive per bill.
type billRequest struct {
	Mode        string `json:"mode"`
	Title       string `json:"title"`
	Currency    string `json:"currency"`
	Date        int64  `json:"date"`
	Location    string `json:"location"`
	Description string `json:"description"`

	// Manual mode.
	Total        string             `json:"total"`
	Participants []participantInput `json:"participants"`

	// Itemized mode.
	Pool  []poolInput `json:"pool"`
	Items []itemInput `json:"items"`
}

type participantResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Amount  string `json:"amount"`
	HasPaid bool   `json:"has_paid"`
}

type billResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Total        string                `json:"total"`
	Currency     string                `json:"currency"`
	Date         int64                 `json:"date"`
	Location     string                `json:"location,omitempty"`
	Description  string                `json:"description,omitempty"`
	Participants []participantResponse `json:"participants"`
	IsSettled    bool                  `json:"is_settled"`
	CreatedAt    int64                 `json:"created_at"`
}

// previewShare is one participant's computed amount in a preview.
// Shares are a list keyed by participant ID, not a name-keyed map, so
// two participants with the same name stay distinct.
type previewShare struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type previewResponse struct {
	Mode        string         `json:"mode"`
	Currency    string         `json:"currency"`
	Total       string         `json:"total"`
	Distributed string         `json:"distributed,omitempty"`
	IsBalanced  bool           `json:"is_balanced"`
	Unassigned  string         `json:"unassigned,omitempty"`
	Shares      []previewShare `json:"shares"`
	CanSave     bool           `json:"can_save"`
}

// Preview runs either mode's computation without saving: distributed sum
// and balance for manual bills, per-participant totals and the
// unassigned remainder for itemized ones.
func (s *BillService) Preview(c *gin.Context) {
	var req billRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	currency := normalizeCurrency(req.Currency)

	switch req.Mode {
	case ModeManual:
		entries := manualEntries(req.Participants)
		total, _ := money.ParseAmount(req.Total)
		distributed := allocation.DistributedAmount(entries)
		balanced := allocation.IsBalanced(total, distributed, currency)

		shares := make([]previewShare, len(entries))
		for i, e := range entries {
			amount, _ := e.ParsedAmount()
			shares[i] = previewShare{
				ID:     e.ParticipantID,
				Name:   e.Name,
				Amount: money.FormatAmount(amount, currency),
			}
		}

		c.JSON(http.StatusOK, previewResponse{
			Mode:        ModeManual,
			Currency:    currency,
			Total:       money.FormatAmount(total, currency),
			Distributed: money.FormatAmount(distributed, currency),
			IsBalanced:  balanced,
			Shares:      shares,
			CanSave:     allocation.IsFormValid(req.Title, entries, total, currency),
		})

	case ModeItemized:
		items := allocation.RestrictShares(poolIDs(req.Pool), menuItems(req.Items))
		total := allocation.BillTotal(items)

		shares := make([]previewShare, len(req.Pool))
		for i, p := range req.Pool {
			owed := allocation.TotalOwed(p.ID, items)
			shares[i] = previewShare{
				ID:     p.ID,
				Name:   p.Name,
				Amount: money.FormatAmount(money.RoundAmount(owed, currency), currency),
			}
		}

		c.JSON(http.StatusOK, previewResponse{
			Mode:       ModeItemized,
			Currency:   currency,
			Total:      money.FormatAmount(total, currency),
			IsBalanced: allocation.UnassignedAmount(items).IsZero(),
			Unassigned: money.FormatAmount(allocation.UnassignedAmount(items), currency),
			Shares:     shares,
			CanSave:    allocation.CanSave(req.Title, items),
		})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be \"manual\" or \"itemized\""})
	}
}

// Create validates the request through the allocation engine, persists
// the bill, and offers participants with emails to the contact book.
func (s *BillService) Create(c *gin.Context) {
	var req billRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	bill, ok := s.resolveBill(c, &req)
	if !ok {
		return
	}
	bill.CreatorID = middleware.UserID(c)

	if err := s.store.CreateBill(c.Request.Context(), bill); err != nil {
		slog.Error("CreateBill failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save bill"})
		return
	}
	slog.Info("Bill created", "bill_id", bill.ID, "participants", len(bill.Participants))

	s.offerContacts(c, bill)

	c.JSON(http.StatusCreated, toBillResponse(bill))
}

// Get retrieves one of the caller's bills.
func (s *BillService) Get(c *gin.Context) {
	bill, ok := s.loadOwnedBill(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toBillResponse(bill))
}

// List retrieves the caller's bill history, newest first.
func (s *BillService) List(c *gin.Context) {
	bills, err := s.store.ListBillsByCreator(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		slog.Error("ListBills failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list bills"})
		return
	}

	out := make([]billResponse, len(bills))
	for i, bill := range bills {
		out[i] = toBillResponse(bill)
	}
	c.JSON(http.StatusOK, gin.H{"bills": out})
}

// Update replaces a bill in full after re-running the same validation as
// Create. Settlement state does not survive a replace: edited bills go
// back to unsettled with everyone unpaid.
func (s *BillService) Update(c *gin.Context) {
	existing, ok := s.loadOwnedBill(c)
	if !ok {
		return
	}

	var req billRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	bill, ok := s.resolveBill(c, &req)
	if !ok {
		return
	}
	bill.ID = existing.ID
	bill.CreatorID = existing.CreatorID
	bill.CreatedAt = existing.CreatedAt

	if err := s.store.UpdateBill(c.Request.Context(), bill); err != nil {
		slog.Error("UpdateBill failed", "bill_id", bill.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update bill"})
		return
	}
	slog.Info("Bill updated", "bill_id", bill.ID)

	s.offerContacts(c, bill)

	c.JSON(http.StatusOK, toBillResponse(bill))
}

// Delete removes one of the caller's bills.
func (s *BillService) Delete(c *gin.Context) {
	bill, ok := s.loadOwnedBill(c)
	if !ok {
		return
	}

	if err := s.store.DeleteBill(c.Request.Context(), bill.ID); err != nil {
		slog.Error("DeleteBill failed", "bill_id", bill.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete bill"})
		return
	}
	slog.Info("Bill deleted", "bill_id", bill.ID)
	c.Status(http.StatusNoContent)
}

// Settle marks every participant paid and the bill settled. Settling an
// already-settled bill succeeds without change; there is no un-settle.
func (s *BillService) Settle(c *gin.Context) {
	bill, ok := s.loadOwnedBill(c)
	if !ok {
		return
	}

	if err := s.store.SettleBill(c.Request.Context(), bill.ID); err != nil {
		slog.Error("SettleBill failed", "bill_id", bill.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to settle bill"})
		return
	}
	slog.Info("Bill settled", "bill_id", bill.ID)

	settled := allocation.Settle(*bill)
	c.JSON(http.StatusOK, toBillResponse(&settled))
}

// MarkPaid marks a single participant's share paid; when that was the
// last unpaid share the bill settles.
func (s *BillService) MarkPaid(c *gin.Context) {
	bill, ok := s.loadOwnedBill(c)
	if !ok {
		return
	}

	participantID := c.Param("participantID")
	if err := s.store.MarkParticipantPaid(c.Request.Context(), bill.ID, participantID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
			return
		}
		slog.Error("MarkParticipantPaid failed", "bill_id", bill.ID, "participant_id", participantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record payment"})
		return
	}

	updated := allocation.MarkPaid(*bill, participantID)
	c.JSON(http.StatusOK, toBillResponse(&updated))
}

// resolveBill turns a request into a validated aggregate, writing the
// error response itself when validation fails.
func (s *BillService) resolveBill(c *gin.Context, req *billRequest) (*models.Bill, bool) {
	currency := normalizeCurrency(req.Currency)

	switch req.Mode {
	case ModeManual:
		entries := manualEntries(req.Participants)
		total, _ := money.ParseAmount(req.Total)
		if !allocation.IsFormValid(req.Title, entries, total, currency) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":       "bill does not validate",
				"is_balanced": allocation.IsBalanced(total, allocation.DistributedAmount(entries), currency),
			})
			return nil, false
		}
		header := allocation.BillHeader{
			Title:       req.Title,
			Total:       total,
			Currency:    currency,
			Date:        req.Date,
			Location:    req.Location,
			Description: req.Description,
		}
		return allocation.BuildBill(header, allocation.SharesFromManual(entries)), true

	case ModeItemized:
		pool := make([]allocation.Pool, len(req.Pool))
		for i, p := range req.Pool {
			pool[i] = allocation.Pool{ID: p.ID, Name: p.Name, Email: p.Email}
		}
		// Shares naming anyone outside the pool are stripped first, so
		// a ghost-only item shows up as unassigned and blocks the save.
		items := allocation.RestrictShares(poolIDs(req.Pool), menuItems(req.Items))
		if !allocation.CanSave(req.Title, items) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":      "bill does not validate",
				"unassigned": allocation.UnassignedAmount(items).String(),
			})
			return nil, false
		}
		header := allocation.BillHeader{
			Title:       req.Title,
			Total:       allocation.BillTotal(items),
			Currency:    currency,
			Date:        req.Date,
			Location:    req.Location,
			Description: req.Description,
		}
		shares := allocation.SharesFromItems(pool, items)
		for i := range shares {
			shares[i].Amount = money.RoundAmount(shares[i].Amount, currency)
		}
		return allocation.BuildBill(header, shares), true

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be \"manual\" or \"itemized\""})
		return nil, false
	}
}

// loadOwnedBill fetches the bill from the path and checks the caller
// created it, writing 404/403 responses itself on failure.
func (s *BillService) loadOwnedBill(c *gin.Context) (*models.Bill, bool) {
	bill, err := s.store.GetBill(c.Request.Context(), c.Param("billID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "bill not found"})
			return nil, false
		}
		slog.Error("GetBill failed", "bill_id", c.Param("billID"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load bill"})
		return nil, false
	}
	if bill.CreatorID != middleware.UserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your bill"})
		return nil, false
	}
	return bill, true
}

// offerContacts hands every named participant with an email to the saved
// contacts book. Best effort: a failure is logged, never surfaced.
func (s *BillService) offerContacts(c *gin.Context, bill *models.Bill) {
	ownerID := middleware.UserID(c)
	for _, p := range bill.Participants {
		if p.Email == "" {
			continue
		}
		contact := &models.Contact{OwnerID: ownerID, Name: p.Name, Email: p.Email}
		if err := s.store.CreateContact(c.Request.Context(), contact); err != nil {
			slog.Warn("Failed to save contact", "name", p.Name, "error", err)
		}
	}
}

func manualEntries(inputs []participantInput) []allocation.ManualEntry {
	entries := make([]allocation.ManualEntry, len(inputs))
	for i, in := range inputs {
		entries[i] = allocation.ManualEntry{
			ParticipantID: in.ID,
			Name:          in.Name,
			Email:         in.Email,
			Amount:        in.Amount,
		}
	}
	return entries
}

func menuItems(inputs []itemInput) []allocation.MenuItem {
	items := make([]allocation.MenuItem, len(inputs))
	for i, in := range inputs {
		// Garbage prices parse to zero and fail CanSave's positive-price
		// check downstream.
		price, _ := money.ParseAmount(in.Price)
		shares := make(map[string]int, len(in.Shares))
		for id, n := range in.Shares {
			if n > 0 {
				shares[id] = n
			}
		}
		items[i] = allocation.MenuItem{
			ID:     in.ID,
			Title:  in.Title,
			Price:  price,
			Shares: shares,
		}
	}
	return items
}

func poolIDs(inputs []poolInput) []string {
	ids := make([]string, len(inputs))
	for i, p := range inputs {
		ids[i] = p.ID
	}
	return ids
}

func normalizeCurrency(code string) string {
	if code == "" {
		return "USD"
	}
	return code
}

func toBillResponse(bill *models.Bill) billResponse {
	participants := make([]participantResponse, len(bill.Participants))
	for i, p := range bill.Participants {
		participants[i] = participantResponse{
			ID:      p.ID,
			Name:    p.Name,
			Email:   p.Email,
			Amount:  money.FormatAmount(p.Amount, bill.Currency),
			HasPaid: p.HasPaid,
		}
	}
	return billResponse{
		ID:           bill.ID,
		Title:        bill.Title,
		Total:        money.FormatAmount(bill.Total, bill.Currency),
		Currency:     bill.Currency,
		Date:         bill.Date,
		Location:     bill.Location,
		Description:  bill.Description,
		Participants: participants,
		IsSettled:    bill.IsSettled,
		CreatedAt:    bill.CreatedAt,
	}
}
