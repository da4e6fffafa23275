// Package eligibility decides per cart line whether a coupon's discount
// applies, and feeds those decisions into a host coupon pipeline.
//
// The host calls the Coordinator at its extension points (allow-list lookup,
// overall validity, per-line validity, discount-application list, validation
// list, cart mutations). A Coordinator and its Cache are request-scoped and
// not safe for concurrent use; build a fresh pair per host request.
package eligibility

import "github.com/solatis/couponkeeper/internal/types"

// Metadata keys read from a coupon.
const (
	MetaRestrictedComponentIDs = "restricted_component_ids"
	MetaPropertyRules          = "property_rules"
)

// Coupon is the host's coupon entity.
type Coupon interface {
	ID() types.CouponID
	// ProductIDs returns the host's allow-list. Hosts usually run this
	// through their filter chain, which calls ExpandAllowedProductIDs, so
	// calling it from inside the engine re-enters the engine.
	ProductIDs() []types.ProductID
	// Meta returns raw attached metadata, nil when absent.
	Meta(key string) any
}

// Host exposes the request's cart and catalog.
type Host interface {
	// Cart returns the current snapshot in cart order.
	Cart() types.Cart
	// Product resolves a catalog product.
	Product(id types.ProductID) (types.Product, bool)
	// RegistryItem returns the host's discount entry for a cart line.
	RegistryItem(key types.ItemKey) (types.DiscountItem, bool)
}

// CartEvent is a cart mutation notification.
type CartEvent int

const (
	EventItemAdded CartEvent = iota
	EventItemRemoved
	EventItemRestored
	EventCartLoaded
)

// String returns the metric label for the event.
func (e CartEvent) String() string {
	switch e {
	case EventItemAdded:
		return "item_added"
	case EventItemRemoved:
		return "item_removed"
	case EventItemRestored:
		return "item_restored"
	case EventCartLoaded:
		return "cart_loaded"
	default:
		return "unknown"
	}
}
