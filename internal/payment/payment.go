package payment

import (
	"errors"
	"time"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// Transaction is one parsed bank-transfer notification, deduplicated by
// fingerprint. verified flips true exactly once, when matched to an order.
type Transaction struct {
	ID            int64     `json:"id"`
	Amount        int64     `json:"amount"`
	HappenedAt    time.Time `json:"happened_at"`
	DebitAccount  string    `json:"debit_account,omitempty"`
	CreditAccount string    `json:"credit_account"`
	Details       string    `json:"details"`
	Memo          string    `json:"memo"`
	SenderAccount string    `json:"sender_account,omitempty"`
	SenderName    string    `json:"sender_name,omitempty"`
	Fingerprint   string    `json:"fingerprint"`
	Verified      bool      `json:"verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// FromNotification builds the storable record, deriving the fingerprint.
// The buyer's account is the debit side, the shop's the credit side.
func FromNotification(n Notification) Transaction {
	return Transaction{
		Amount:        n.Amount,
		HappenedAt:    n.HappenedAt,
		DebitAccount:  n.SenderAccount,
		CreditAccount: n.CreditAccount,
		Details:       n.Details,
		Memo:          n.Memo,
		SenderAccount: n.SenderAccount,
		SenderName:    n.SenderName,
		Fingerprint:   Fingerprint(n.HappenedAt, n.Amount, n.SenderAccount, n.CreditAccount),
	}
}
