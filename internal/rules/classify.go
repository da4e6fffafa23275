// internal/rules/classify.go
package rules

import "github.com/solatis/couponkeeper/internal/types"

/*
 * Cart line classification.
 *
 * Customized lines are recognised by a non-empty property bag. Composite
 * membership is delegated to a BundleMembership capability because only the
 * bundle-product collaborator knows how its lines are linked. When that
 * collaborator is absent the host wires NoBundles and every composite
 * predicate is false.
 */

// IsCustomized reports whether item carries a non-empty property bag.
func IsCustomized(item types.CartItem) bool {
	return item.Customization != nil && len(item.Customization.Properties) > 0
}

// OriginalProductID returns the catalog product a customized line replicates.
// Zero when absent or when the line is not customized.
func OriginalProductID(item types.CartItem) types.ProductID {
	if !IsCustomized(item) {
		return 0
	}
	if item.Customization.OriginalProductID < 0 {
		return 0
	}
	return item.Customization.OriginalProductID
}

// ResolvedProductID is the original product id when present, else the line's
// own product id.
func ResolvedProductID(item types.CartItem) types.ProductID {
	if id := OriginalProductID(item); id != 0 {
		return id
	}
	return item.ProductID
}

// InSet reports whether the line's product or variation id is in ids.
func InSet(item types.CartItem, ids types.ProductIDSet) bool {
	return ids.Has(item.ProductID) || ids.Has(item.VariationID)
}

// BundleMembership answers composite-bundle structure questions.
type BundleMembership interface {
	// IsChild reports whether item is a verified child line within cart.
	IsChild(item types.CartItem, cart types.Cart) bool
	// IsParent reports whether item is a composite container line.
	IsParent(item types.CartItem) bool
}

// NoBundles is the BundleMembership used when no bundle collaborator exists.
type NoBundles struct{}

// IsChild always returns false.
func (NoBundles) IsChild(types.CartItem, types.Cart) bool { return false }

// IsParent always returns false.
func (NoBundles) IsParent(types.CartItem) bool { return false }

// CompositeRoles reads composite structure from the line's role fields.
// A child is verified by finding its parent line in the same snapshot.
type CompositeRoles struct{}

// IsChild reports whether item is a child whose parent key resolves to a
// parent line in cart. Dangling children are treated as standalone.
func (CompositeRoles) IsChild(item types.CartItem, cart types.Cart) bool {
	if item.CompositeRole != types.RoleChild || item.CompositeParent == "" {
		return false
	}
	parent, ok := cart.Find(item.CompositeParent)
	return ok && parent.CompositeRole == types.RoleParent && parent.Key != item.Key
}

// IsParent reports whether item is a composite container line.
func (CompositeRoles) IsParent(item types.CartItem) bool {
	return item.CompositeRole == types.RoleParent
}
