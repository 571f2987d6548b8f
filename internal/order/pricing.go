package order

import (
	"fmt"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/cart"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/catalog"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/voucher"
)

// snapshotItems freezes unit price, title and category for every selected
// cart line, and the combo component breakdown for combo products. The
// pre-flight stock check lives here too; the ledger's conditional
// decrement stays the authoritative guard.
func snapshotItems(items []cart.Item, products map[int64]catalog.Product, comps map[int64][]catalog.ComboComponent) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for _, ci := range items {
		p, ok := products[ci.ProductID]
		if !ok || !p.Active {
			return nil, fmt.Errorf("%w: product %d", catalog.ErrProductNotFound, ci.ProductID)
		}
		if p.Stock < ci.Qty {
			return nil, fmt.Errorf("%w: product %d has %d, need %d",
				ErrInsufficientStock, p.ID, p.Stock, ci.Qty)
		}

		it := Item{
			ProductID:    p.ID,
			ProductTitle: p.Title,
			CategoryID:   p.CategoryID,
			Qty:          ci.Qty,
			UnitPrice:    p.Price,
			LineTotal:    p.Price * int64(ci.Qty),
		}
		if p.IsCombo {
			for _, c := range comps[p.ID] {
				it.Components = append(it.Components, Component{
					ProductID:  c.ProductID,
					QtyPerUnit: c.QtyPerUnit,
				})
			}
		}
		out = append(out, it)
	}
	return out, nil
}

func subtotalOf(items []Item) int64 {
	var sum int64
	for _, it := range items {
		sum += it.LineTotal
	}
	return sum
}

// priceOrder computes the money fields from the frozen lines, the voucher
// result (nil when no code was given) and the shipping fee. Regardless of
// the voucher target the identity holds:
// total = subtotal + shipping fee - discount + vat.
func priceOrder(items []Item, vres *voucher.Result, shippingFee int64, vatPercent int) (subtotal, discount, vat, total int64) {
	subtotal = subtotalOf(items)
	if vres != nil && vres.Valid {
		discount = vres.Discount
	}
	vat = (subtotal - discount) * int64(vatPercent) / 100
	if vat < 0 {
		vat = 0
	}
	total = subtotal + shippingFee - discount + vat
	return subtotal, discount, vat, total
}
