package allocation

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyup/tallyup/internal/models"
)

// BillHeader carries the header fields of a bill form, common to both
// allocation modes.
type BillHeader struct {
	Title       string
	Total       decimal.Decimal
	Currency    string
	Date        int64 // Unix seconds; zero means "now"
	Location    string
	Description string
}

// ParticipantShare is one resolved participant share handed to
// BuildBill: the final owed amount from whichever mode was used.
type ParticipantShare struct {
	ID     string
	Name   string
	Email  string
	Amount decimal.Decimal
}

// SharesFromManual resolves manual-mode entries into participant shares.
// Unparsable amounts resolve to zero; callers gate on IsFormValid first.
func SharesFromManual(entries []ManualEntry) []ParticipantShare {
	shares := make([]ParticipantShare, len(entries))
	for i, e := range entries {
		amount, _ := e.ParsedAmount()
		shares[i] = ParticipantShare{
			ID:     e.ParticipantID,
			Name:   strings.TrimSpace(e.Name),
			Email:  strings.TrimSpace(e.Email),
			Amount: amount,
		}
	}
	return shares
}

// Pool is the participant pool of an itemized bill: the people shares
// can be assigned to, in display order.
type Pool struct {
	ID    string
	Name  string
	Email string
}

// SharesFromItems resolves an itemized bill into participant shares,
// one per pool member, in pool order.
func SharesFromItems(pool []Pool, items []MenuItem) []ParticipantShare {
	shares := make([]ParticipantShare, len(pool))
	for i, p := range pool {
		shares[i] = ParticipantShare{
			ID:     p.ID,
			Name:   strings.TrimSpace(p.Name),
			Email:  strings.TrimSpace(p.Email),
			Amount: TotalOwed(p.ID, items),
		}
	}
	return shares
}

// BuildBill assembles the persisted aggregate from a header and the
// resolved shares. Missing IDs get fresh UUIDs, the date defaults to
// now, and the bill starts unsettled with every participant unpaid.
func BuildBill(header BillHeader, shares []ParticipantShare) *models.Bill {
	date := header.Date
	if date == 0 {
		date = time.Now().Unix()
	}

	participants := make([]models.BillParticipant, len(shares))
	for i, s := range shares {
		id := s.ID
		if id == "" {
			id = uuid.New().String()
		}
		participants[i] = models.BillParticipant{
			ID:      id,
			Name:    s.Name,
			Email:   s.Email,
			Amount:  s.Amount,
			HasPaid: false,
		}
	}

	return &models.Bill{
		ID:           uuid.New().String(),
		Title:        strings.TrimSpace(header.Title),
		Total:        header.Total,
		Currency:     header.Currency,
		Date:         date,
		Location:     strings.TrimSpace(header.Location),
		Description:  strings.TrimSpace(header.Description),
		Participants: participants,
		IsSettled:    false,
	}
}

// MarkPaid returns a copy of the bill with one participant marked paid.
// When that was the last unpaid participant the bill settles. Settled
// bills pass through unchanged; there is no way back to unsettled.
func MarkPaid(bill models.Bill, participantID string) models.Bill {
	if bill.IsSettled {
		return bill
	}
	participants := make([]models.BillParticipant, len(bill.Participants))
	copy(participants, bill.Participants)
	for i := range participants {
		if participants[i].ID == participantID {
			participants[i].HasPaid = true
		}
	}
	bill.Participants = participants
	bill.IsSettled = allPaid(participants)
	return bill
}

// Settle returns a copy of the bill with every participant marked paid
// and the bill settled.
func Settle(bill models.Bill) models.Bill {
	participants := make([]models.BillParticipant, len(bill.Participants))
	copy(participants, bill.Participants)
	for i := range participants {
		participants[i].HasPaid = true
	}
	bill.Participants = participants
	bill.IsSettled = true
	return bill
}

func allPaid(participants []models.BillParticipant) bool {
	for _, p := range participants {
		if !p.HasPaid {
			return false
		}
	}
	return len(participants) > 0
}
