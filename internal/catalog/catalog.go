package catalog

import (
	"context"
	"errors"
	"time"
)

var ErrProductNotFound = errors.New("product not found")

type Product struct {
	ID         int64     `json:"id"`
	SKU        string    `json:"sku"`
	Title      string    `json:"title"`
	CategoryID int64     `json:"category_id"`
	Price      int64     `json:"price"`
	Stock      int       `json:"stock"`
	IsCombo    bool      `json:"is_combo"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ComboComponent is one constituent of a combo product with its per-unit
// quantity. Callers snapshot these at checkout; the live definition is
// never re-read for a placed order.
type ComboComponent struct {
	ProductID  int64 `json:"product_id"`
	QtyPerUnit int   `json:"qty_per_unit"`
}

// Catalog is the read side of the product collaborator. The core never
// writes catalog fields; stock moves only through ledger lines.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetProducts(ctx context.Context, ids []int64) (map[int64]Product, error)
	ComboComponents(ctx context.Context, comboID int64) ([]ComboComponent, error)
	ListProducts(ctx context.Context) ([]Product, error)
}
