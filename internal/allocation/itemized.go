package allocation

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MenuItem is one priced line on an itemized bill. Shares maps
// participant IDs to positive integer share counts; a participant absent
// from the map holds zero shares of the item. Zero counts are never
// stored — decrementing to zero removes the entry.
type MenuItem struct {
	ID     string
	Title  string
	Price  decimal.Decimal
	Shares map[string]int
}

// TotalShares is the sum of all share counts on the item.
func TotalShares(item MenuItem) int {
	total := 0
	for _, n := range item.Shares {
		total += n
	}
	return total
}

// PricePerShare is the item's price divided by its total shares. An item
// with no assigned shares prices at zero regardless of its price, so
// nothing ever divides by zero.
func PricePerShare(item MenuItem) decimal.Decimal {
	shares := TotalShares(item)
	if shares == 0 {
		return decimal.Zero
	}
	return item.Price.Div(decimal.NewFromInt(int64(shares)))
}

// AmountOwed is one participant's portion of a single item: the price
// per share times their share count, zero when they hold no shares.
func AmountOwed(participantID string, item MenuItem) decimal.Decimal {
	n, ok := item.Shares[participantID]
	if !ok {
		return decimal.Zero
	}
	return PricePerShare(item).Mul(decimal.NewFromInt(int64(n)))
}

// TotalOwed sums a participant's portions across all items.
func TotalOwed(participantID string, items []MenuItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(AmountOwed(participantID, item))
	}
	return sum
}

// BillTotal is the sum of every item's price, including items nobody is
// assigned to yet.
func BillTotal(items []MenuItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Price)
	}
	return sum
}

// AssignedTotal is the sum of every participant's computed portions.
func AssignedTotal(items []MenuItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		if TotalShares(item) > 0 {
			sum = sum.Add(item.Price)
		}
	}
	return sum
}

// UnassignedAmount is the portion of the bill total not attributed to
// any participant: the prices of items with zero assigned shares. A
// non-zero value means the bill does not reconcile; CanSave rejects it.
func UnassignedAmount(items []MenuItem) decimal.Decimal {
	return BillTotal(items).Sub(AssignedTotal(items))
}

// IncrementShare returns a copy of the item with the participant's share
// count raised by one.
func IncrementShare(participantID string, item MenuItem) MenuItem {
	out := cloneItem(item)
	out.Shares[participantID]++
	return out
}

// DecrementShare returns a copy of the item with the participant's share
// count lowered by one. Dropping below one removes the entry entirely;
// absence means zero.
func DecrementShare(participantID string, item MenuItem) MenuItem {
	out := cloneItem(item)
	if out.Shares[participantID] <= 1 {
		delete(out.Shares, participantID)
	} else {
		out.Shares[participantID]--
	}
	return out
}

// RemoveParticipant strips the participant from every item's share map.
// Call it whenever a participant leaves the bill so no item references a
// non-member. Idempotent: a second call is a no-op.
func RemoveParticipant(participantID string, items []MenuItem) []MenuItem {
	out := make([]MenuItem, len(items))
	for i, item := range items {
		c := cloneItem(item)
		delete(c.Shares, participantID)
		out[i] = c
	}
	return out
}

// RestrictShares drops share entries whose participant is not in
// memberIDs, enforcing that no item references someone outside the
// bill's pool. An item left with no shares prices at zero and fails
// CanSave. Returns copies; the input is not modified.
func RestrictShares(memberIDs []string, items []MenuItem) []MenuItem {
	members := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = true
	}
	out := make([]MenuItem, len(items))
	for i, item := range items {
		c := cloneItem(item)
		for id := range c.Shares {
			if !members[id] {
				delete(c.Shares, id)
			}
		}
		out[i] = c
	}
	return out
}

// CanSave gates saving an itemized bill: non-empty title, at least one
// item, and every item with a non-empty title, a positive price, and at
// least one assigned participant.
func CanSave(title string, items []MenuItem) bool {
	if strings.TrimSpace(title) == "" || len(items) == 0 {
		return false
	}
	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			return false
		}
		if !item.Price.IsPositive() {
			return false
		}
		if TotalShares(item) == 0 {
			return false
		}
	}
	return true
}

func cloneItem(item MenuItem) MenuItem {
	shares := make(map[string]int, len(item.Shares))
	for id, n := range item.Shares {
		shares[id] = n
	}
	item.Shares = shares
	return item
}
