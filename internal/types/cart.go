// internal/types/cart.go
package types

import "strings"

/*
 * Cart and rule types for eligibility evaluation.
 *
 * Provides CartItem, Cart, Property and PropertyRule used by internal/rules
 * and internal/eligibility. These types are host agnostic - conversion from
 * the host's cart representation happens at the API boundary.
 *
 * Key types:
 *   - PropertyRule: one {key, value} pair configured on a coupon
 *   - Property: one entry of a customized item's property bag
 *   - PropertyValue: tagged union of scalar string or string list
 *   - CartItem: one cart line, optionally customized or composite
 *   - Cart: ordered snapshot of cart lines
 */

// PropertyRule is one configured rule. Value may hold '|' separated
// alternatives.
type PropertyRule struct {
	Key   string `json:"key" db:"key"`
	Value string `json:"value" db:"value"`
}

// PropertyValue holds either a scalar or a list. IsList disambiguates an
// empty list from an empty scalar.
type PropertyValue struct {
	Scalar string
	List   []string
	IsList bool
}

// ScalarValue builds a scalar PropertyValue.
func ScalarValue(s string) PropertyValue {
	return PropertyValue{Scalar: s}
}

// ListValue builds a list PropertyValue.
func ListValue(items ...string) PropertyValue {
	return PropertyValue{List: items, IsList: true}
}

// Flatten returns the comparable string form. Lists are joined with ", ".
func (v PropertyValue) Flatten() string {
	if v.IsList {
		return strings.Join(v.List, ", ")
	}
	return v.Scalar
}

// Property is one entry of a customized item's property bag.
type Property struct {
	Key   string
	Value PropertyValue
}

// Customization is the payload a product configurator attaches to a cart
// line. OriginalProductID is the catalog product the line replicates.
type Customization struct {
	OriginalProductID ProductID
	Properties        []Property
}

// CompositeRole is a cart line's position in a composite bundle.
type CompositeRole int

const (
	RoleNone CompositeRole = iota
	RoleChild
	RoleParent
)

// String returns the wire name of the role.
func (r CompositeRole) String() string {
	switch r {
	case RoleChild:
		return "child"
	case RoleParent:
		return "parent"
	default:
		return "none"
	}
}

// ParseCompositeRole maps a wire name to a role. Unknown names map to RoleNone.
func ParseCompositeRole(s string) CompositeRole {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "child":
		return RoleChild
	case "parent":
		return RoleParent
	default:
		return RoleNone
	}
}

// CartItem is one cart line.
type CartItem struct {
	Key         ItemKey
	ProductID   ProductID
	VariationID ProductID // 0 if none
	Quantity    int

	CompositeRole CompositeRole
	// CompositeParent names the parent line of a child. Derived relationship:
	// it must be verified against the snapshot, never dereferenced blindly.
	CompositeParent ItemKey

	Customization *Customization // nil unless configurator-generated
}

// Clone deep-copies the item so callers can hand it to the host without
// aliasing the cart's own slices.
func (it CartItem) Clone() CartItem {
	c := it
	if it.Customization != nil {
		cz := *it.Customization
		cz.Properties = make([]Property, len(it.Customization.Properties))
		for i, p := range it.Customization.Properties {
			cz.Properties[i] = p
			if p.Value.IsList {
				cz.Properties[i].Value.List = append([]string(nil), p.Value.List...)
			}
		}
		c.Customization = &cz
	}
	return c
}

// Cart is an ordered cart snapshot.
type Cart []CartItem

// Find returns the line with key.
func (c Cart) Find(key ItemKey) (CartItem, bool) {
	for _, it := range c {
		if it.Key == key {
			return it, true
		}
	}
	return CartItem{}, false
}

// Product is the engine's view of a catalog product.
type Product struct {
	ID       ProductID `json:"id" db:"product_id"`
	ParentID ProductID `json:"parent_id" db:"parent_id"` // 0 if not a variation
	Name     string    `json:"name" db:"name"`
}

// DiscountItem is one entry in a host list of lines to validate or to
// receive a discount.
type DiscountItem struct {
	Key     ItemKey
	Item    CartItem
	Product Product
}

// Clone deep-copies the entry.
func (d DiscountItem) Clone() DiscountItem {
	c := d
	c.Item = d.Item.Clone()
	return c
}
