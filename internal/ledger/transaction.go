// Package ledger holds the read-only view of enriched transactions that the
// assistant's tools query.
package ledger

import (
	"errors"
	"time"
)

// DateLayout is the layout used for Transaction.Date.
const DateLayout = "2006-01-02"

// Transaction types.
const (
	TypeDebit  = "debit"
	TypeCredit = "credit"
)

// ErrUnavailable is returned when the backing data cannot be read.
var ErrUnavailable = errors.New("ledger: store unavailable")

// Transaction is a single enriched bank transaction.
type Transaction struct {
	ID          string  `yaml:"txn_id" json:"txn_id"`
	Description string  `yaml:"description" json:"description,omitempty"`
	Merchant    string  `yaml:"merchant_name" json:"merchant_name,omitempty"`
	Channel     string  `yaml:"payment_channel" json:"payment_channel,omitempty"`
	Amount      float64 `yaml:"amount" json:"amount"`
	Type        string  `yaml:"type" json:"type"`
	Date        string  `yaml:"date" json:"date"`
	Category    string  `yaml:"category" json:"category,omitempty"`
	Subcategory string  `yaml:"subcategory" json:"subcategory,omitempty"`
	Recurring   bool    `yaml:"is_recurring" json:"is_recurring"`
	Suspicious  bool    `yaml:"is_suspicious" json:"is_suspicious"`
}

// IsDebit reports whether money left the account.
func (t Transaction) IsDebit() bool { return t.Type == TypeDebit }

// IsCredit reports whether money entered the account.
func (t Transaction) IsCredit() bool { return t.Type == TypeCredit }

// Day parses Date.
func (t Transaction) Day() (time.Time, error) {
	return time.Parse(DateLayout, t.Date)
}

// MerchantOrUnknown returns the merchant name, or "Unknown" when it is empty.
func (t Transaction) MerchantOrUnknown() string {
	if t.Merchant == "" {
		return "Unknown"
	}
	return t.Merchant
}

// CategoryOrOther returns the category, or "Other" when it is empty.
func (t Transaction) CategoryOrOther() string {
	if t.Category == "" {
		return "Other"
	}
	return t.Category
}
