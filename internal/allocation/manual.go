// Package allocation implements the bill-splitting engine: manual/equal
// splits, itemized (per-menu-item share) splits, and bill aggregate
// construction.
//
// Every operation is a pure function over its inputs. Nothing here
// mutates shared state or raises errors for bad user input — validity is
// reported as boolean flags that the caller checks before persisting.
// The engine is safe to call from any number of goroutines.
package allocation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tallyup/tallyup/internal/money"
)

// ManualEntry is one participant row on a manual/equal-split bill form.
// Amount is the raw user-typed string; it is parsed leniently so the
// engine never chokes on partial input while the user is still typing.
type ManualEntry struct {
	ParticipantID string
	Name          string
	Email         string
	Amount        string
}

// ParsedAmount returns the entry's amount as a decimal. Unparsable or
// empty input yields zero with ok=false, letting validation distinguish
// "entered zero" from "entered garbage".
func (e ManualEntry) ParsedAmount() (decimal.Decimal, bool) {
	return money.ParseAmount(e.Amount)
}

// DistributedAmount sums the parsed amounts of all entries. Unparsable
// amounts contribute zero; the sum is independent of entry order.
func DistributedAmount(entries []ManualEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		amount, _ := e.ParsedAmount()
		sum = sum.Add(amount)
	}
	return sum
}

// IsBalanced reports whether the distributed sum matches the entered
// total within one minor unit of the currency.
func IsBalanced(total, distributed decimal.Decimal, currency string) bool {
	return money.WithinTolerance(total, distributed, currency)
}

// DistributeEqually writes an even split of total back into every
// entry's amount field. Leftover minor units go to the first entries, so
// the amounts always sum exactly to total and the form balances. Returns
// a new slice; the input is not modified.
func DistributeEqually(total decimal.Decimal, entries []ManualEntry, currency string) []ManualEntry {
	amounts := money.SplitEvenly(total, len(entries), currency)
	if amounts == nil {
		return entries
	}
	out := make([]ManualEntry, len(entries))
	for i, e := range entries {
		e.Amount = money.FormatAmount(amounts[i], currency)
		out[i] = e
	}
	return out
}

// ValidateEntry reports whether one participant row is complete: a
// non-empty name after trimming, and an amount that parses to a value
// greater than zero.
func ValidateEntry(e ManualEntry) bool {
	if strings.TrimSpace(e.Name) == "" {
		return false
	}
	amount, ok := e.ParsedAmount()
	return ok && amount.IsPositive()
}

// IsFormValid gates saving a manual-mode bill: non-empty title, positive
// total, every entry valid, and the distributed sum balanced against the
// total.
func IsFormValid(title string, entries []ManualEntry, total decimal.Decimal, currency string) bool {
	if strings.TrimSpace(title) == "" || !total.IsPositive() || len(entries) == 0 {
		return false
	}
	for _, e := range entries {
		if !ValidateEntry(e) {
			return false
		}
	}
	return IsBalanced(total, DistributedAmount(entries), currency)
}
