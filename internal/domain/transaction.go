package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable input record: one money movement from
// Sender to Receiver at Timestamp for Amount. Amount uses shopspring's
// arbitrary-precision decimal rather than float64 so that repeated
// summation and rounding to two decimal places never drifts.
type Transaction struct {
	ID        string          `json:"id,omitempty"`
	Sender    string          `json:"sender"`
	Receiver  string          `json:"receiver"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// Validate reports whether t satisfies the minimal shape required by
// the analysis core: non-empty sender/receiver, non-negative amount,
// a non-zero timestamp.
func (t Transaction) Validate() error {
	if t.Sender == "" || t.Receiver == "" {
		return ErrInvalidTransaction
	}
	if t.Amount.IsNegative() {
		return ErrInvalidTransaction
	}
	if t.Timestamp.IsZero() {
		return ErrInvalidTransaction
	}
	return nil
}

// AccountType classifies an account by a case-insensitive substring
// match of its id against business-suggesting tokens.
type AccountType string

const (
	AccountIndividual AccountType = "individual"
	AccountBusiness   AccountType = "business"
	AccountUnknown    AccountType = "unknown"
)

// businessTokens is the fixed token set from spec.md §3.
var businessTokens = []string{
	"corp", "inc", "llc", "ltd", "co", "merchant", "store", "shop", "pay", "bank", "services",
}

// ClassifyAccount derives an AccountType for id via case-insensitive
// substring matching against businessTokens.
func ClassifyAccount(id string) AccountType {
	if id == "" {
		return AccountUnknown
	}
	lower := strings.ToLower(id)
	for _, tok := range businessTokens {
		if strings.Contains(lower, tok) {
			return AccountBusiness
		}
	}
	return AccountIndividual
}

// IsBusinessToken reports whether id matches a business-suggesting
// token. Used by the legitimacy filter's established-business and
// merchant checks, which test the pattern directly rather than via
// the cached per-node classification.
func IsBusinessToken(id string) bool {
	return ClassifyAccount(id) == AccountBusiness
}
