package ledger

import (
	"errors"
	"time"
)

// Transaction type. Every inventory change is journaled under one of these.
type Type string

const (
	TypeIn        Type = "IN"
	TypeOut       Type = "OUT"
	TypeDamaged   Type = "DAMAGED"
	TypeStocktake Type = "STOCKTAKE"
)

// Change direction of a single line.
type Change string

const (
	ChangePlus  Change = "PLUS"
	ChangeMinus Change = "MINUS"
)

// Reference types linking a header to the document that caused it.
const (
	RefOrder       = "ORDER"
	RefOrderCancel = "ORDER_CANCEL"
)

var (
	ErrInvalidTransactionType = errors.New("invalid ledger transaction type")
	ErrInvalidChangeType      = errors.New("change type not allowed for transaction type")
	ErrEmptyLines             = errors.New("ledger transaction needs at least one line")
	ErrInvalidQty             = errors.New("line quantity must be positive")
	ErrProductNotFound        = errors.New("product not found")
	ErrInsufficientInventory  = errors.New("insufficient inventory")
	ErrDuplicateOutbound      = errors.New("outbound transaction already exists for reference")
	ErrNotFound               = errors.New("ledger transaction not found")
)

type Line struct {
	ID        int64  `json:"id,omitempty"`
	ProductID int64  `json:"product_id"`
	Change    Change `json:"change"`
	Qty       int    `json:"qty"`
}

type Header struct {
	ID            int64     `json:"id"`
	Type          Type      `json:"type"`
	ReferenceType string    `json:"reference_type,omitempty"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Transaction struct {
	Header
	Lines []Line `json:"lines"`
}

// allowedChanges encodes which directions are legal per transaction type.
var allowedChanges = map[Type]map[Change]bool{
	TypeIn:        {ChangePlus: true},
	TypeOut:       {ChangeMinus: true},
	TypeDamaged:   {ChangeMinus: true},
	TypeStocktake: {ChangePlus: true, ChangeMinus: true},
}

// ValidateLines checks the type itself and every line's direction and
// quantity. Pure; the stock checks happen inside the unit of work.
func ValidateLines(t Type, lines []Line) error {
	allowed, ok := allowedChanges[t]
	if !ok {
		return ErrInvalidTransactionType
	}
	if len(lines) == 0 {
		return ErrEmptyLines
	}
	for _, l := range lines {
		if !allowed[l.Change] {
			return ErrInvalidChangeType
		}
		if l.Qty <= 0 {
			return ErrInvalidQty
		}
	}
	return nil
}
