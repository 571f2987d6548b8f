package cart

import (
	"context"
)

type Item struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

// Cart is the cart collaborator: the orchestrator reads a buyer's selected
// items at checkout and re-adds items on reorder. Clearing the cart is
// Repo.RemoveItems, which runs inside the checkout transaction. Cart
// management itself lives outside the core.
type Cart interface {
	SelectedItems(ctx context.Context, buyerID int64) ([]Item, error)
	AddItem(ctx context.Context, buyerID int64, productID int64, qty int) error
}
