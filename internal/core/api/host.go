package api

import (
	"github.com/solatis/couponkeeper/internal/core/couponstore"
	"github.com/solatis/couponkeeper/internal/eligibility"
	"github.com/solatis/couponkeeper/internal/types"
)

// requestHost is the eligibility.Host for one evaluation: an immutable cart
// snapshot plus the catalog products it references.
type requestHost struct {
	cart     types.Cart
	products map[types.ProductID]types.Product
}

func (h *requestHost) Cart() types.Cart { return h.cart }

func (h *requestHost) Product(id types.ProductID) (types.Product, bool) {
	p, ok := h.products[id]
	return p, ok
}

func (h *requestHost) RegistryItem(key types.ItemKey) (types.DiscountItem, bool) {
	item, ok := h.cart.Find(key)
	if !ok {
		return types.DiscountItem{}, false
	}
	return h.entry(item), true
}

// registry returns one discount entry per cart line, in cart order.
func (h *requestHost) registry() []types.DiscountItem {
	out := make([]types.DiscountItem, 0, len(h.cart))
	for _, item := range h.cart {
		out = append(out, h.entry(item))
	}
	return out
}

func (h *requestHost) entry(item types.CartItem) types.DiscountItem {
	p, ok := h.products[item.ProductID]
	if !ok {
		p = types.Product{ID: item.ProductID}
	}
	return types.DiscountItem{Key: item.Key, Item: item, Product: p}
}

// filteredCoupon runs a stored coupon's allow-list through the host filter
// chain, which includes the engine's expansion hook. The engine's raw reads
// re-enter this chain and are short-circuited by its guard.
type filteredCoupon struct {
	stored *couponstore.Coupon
	coord  *eligibility.Coordinator
}

func (c *filteredCoupon) ID() types.CouponID { return c.stored.ID() }

func (c *filteredCoupon) ProductIDs() []types.ProductID {
	return c.coord.ExpandAllowedProductIDs(c.stored.ProductIDs(), c)
}

func (c *filteredCoupon) Meta(key string) any { return c.stored.Meta(key) }
