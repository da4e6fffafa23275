// Package types provides domain models shared across couponkeeper components.
//
// Zero-dependency design: types.go, cart.go and errors.go use only the standard
// library so the eligibility engine can be embedded in a host without pulling
// in storage or transport deps. ID utilities in ids.go import uuid but are
// isolated for selective inclusion.
//
// The host platform owns carts, products and coupons. These types are the
// engine's read-only view of them, converted at the host boundary.
package types

import "sort"

// CouponID is the host's opaque coupon identifier.
type CouponID int64

// ProductID identifies a catalog product or variation. Zero means "none".
type ProductID int64

// ItemKey identifies one cart line. Unique within a snapshot and stable for
// the duration of a request.
type ItemKey string

// ProductIDSet is an unordered set of product identifiers.
type ProductIDSet map[ProductID]struct{}

// NewProductIDSet builds a set from ids, ignoring zero values.
func NewProductIDSet(ids ...ProductID) ProductIDSet {
	s := make(ProductIDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id. Non-positive ids are never members.
func (s ProductIDSet) Add(id ProductID) {
	if id <= 0 {
		return
	}
	s[id] = struct{}{}
}

// Has reports membership. Safe on a nil set.
func (s ProductIDSet) Has(id ProductID) bool {
	if id == 0 {
		return false
	}
	_, ok := s[id]
	return ok
}

// Union adds every member of other to s.
func (s ProductIDSet) Union(other ProductIDSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Sorted returns members in ascending order.
// Deterministic output keeps allow-list expansion stable across calls.
func (s ProductIDSet) Sorted() []ProductID {
	out := make([]ProductID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy.
func (s ProductIDSet) Clone() ProductIDSet {
	c := make(ProductIDSet, len(s))
	c.Union(s)
	return c
}

// KeySet is an unordered set of cart line keys.
type KeySet map[ItemKey]struct{}

// Add inserts key.
func (s KeySet) Add(key ItemKey) {
	s[key] = struct{}{}
}

// Has reports membership. Safe on a nil set.
func (s KeySet) Has(key ItemKey) bool {
	_, ok := s[key]
	return ok
}

// Clone returns an independent copy.
func (s KeySet) Clone() KeySet {
	c := make(KeySet, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// QualificationResult is the derived output of one scan for one coupon over
// one cart snapshot. Never persisted; rebuilt from scratch on cache miss.
type QualificationResult struct {
	MatchingKeys      KeySet
	AllowedProductIDs ProductIDSet
}

// NewQualificationResult returns an empty, writable result.
func NewQualificationResult() QualificationResult {
	return QualificationResult{
		MatchingKeys:      make(KeySet),
		AllowedProductIDs: make(ProductIDSet),
	}
}

// Empty reports whether no cart line qualified.
func (r QualificationResult) Empty() bool {
	return len(r.MatchingKeys) == 0
}

// Resource limits enforced at the host boundary.
const (
	// MaxCartItems bounds one submitted snapshot. Every scan is linear in
	// cart size and the bundle check is quadratic in the worst case.
	MaxCartItems = 500

	// MaxPropertiesPerItem bounds a customized item's property bag.
	MaxPropertiesPerItem = 128

	// MaxPropertyRules bounds a coupon's rule list after coercion.
	MaxPropertyRules = 64
)
