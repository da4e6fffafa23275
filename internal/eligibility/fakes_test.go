package eligibility

import (
	"testing"

	"github.com/solatis/couponkeeper/internal/rules"
	"github.com/solatis/couponkeeper/internal/types"
)

// fakeHost is an in-memory host. Its registry mirrors the cart.
type fakeHost struct {
	cart     types.Cart
	products map[types.ProductID]types.Product
}

func (h *fakeHost) Cart() types.Cart { return h.cart }

func (h *fakeHost) Product(id types.ProductID) (types.Product, bool) {
	p, ok := h.products[id]
	return p, ok
}

func (h *fakeHost) RegistryItem(key types.ItemKey) (types.DiscountItem, bool) {
	item, ok := h.cart.Find(key)
	if !ok {
		return types.DiscountItem{}, false
	}
	return types.DiscountItem{Key: key, Item: item, Product: types.Product{ID: item.ProductID}}, true
}

// fakeCoupon mimics a host coupon whose allow-list getter runs the host
// filter chain, which includes the engine's expansion hook.
type fakeCoupon struct {
	id    types.CouponID
	allow []types.ProductID
	meta  map[string]any

	// filter, when set, plays the host filter chain around ProductIDs.
	filter      func(current []types.ProductID, c *fakeCoupon) []types.ProductID
	filterCalls int
	lastFilter  []types.ProductID
}

func (c *fakeCoupon) ID() types.CouponID { return c.id }

func (c *fakeCoupon) ProductIDs() []types.ProductID {
	if c.filter == nil {
		return c.allow
	}
	c.filterCalls++
	c.lastFilter = c.filter(c.allow, c)
	return c.lastFilter
}

func (c *fakeCoupon) Meta(key string) any { return c.meta[key] }

func newCoupon(id types.CouponID, allow []types.ProductID, restricted []any, propRules []any) *fakeCoupon {
	meta := map[string]any{}
	if restricted != nil {
		meta[MetaRestrictedComponentIDs] = restricted
	}
	if propRules != nil {
		meta[MetaPropertyRules] = propRules
	}
	return &fakeCoupon{id: id, allow: allow, meta: meta}
}

// hookInto routes the coupon's allow-list getter through coord, the way a
// host filter chain would.
func hookInto(c *fakeCoupon, coord *Coordinator) {
	c.filter = func(current []types.ProductID, self *fakeCoupon) []types.ProductID {
		return coord.ExpandAllowedProductIDs(current, self)
	}
}

func rule(key, value string) map[string]any {
	return map[string]any{"key": key, "value": value}
}

func customizedLine(key types.ItemKey, productID, original types.ProductID, props ...types.Property) types.CartItem {
	return types.CartItem{
		Key:       key,
		ProductID: productID,
		Quantity:  1,
		Customization: &types.Customization{
			OriginalProductID: original,
			Properties:        props,
		},
	}
}

func sizeProp(v string) types.Property {
	return types.Property{Key: "Size", Value: types.ScalarValue(v)}
}

func newTestCoordinator(t *testing.T, host *fakeHost) *Coordinator {
	t.Helper()
	coord, err := NewCoordinator(Deps{Host: host, Bundles: rules.CompositeRoles{}})
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v, want nil", err)
	}
	return coord
}

func containsID(ids []types.ProductID, id types.ProductID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func containsKey(items []types.DiscountItem, key types.ItemKey) bool {
	for _, d := range items {
		if d.Key == key {
			return true
		}
	}
	return false
}
