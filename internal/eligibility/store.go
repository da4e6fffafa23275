package eligibility

import (
	"github.com/solatis/couponkeeper/internal/rules"
	"github.com/solatis/couponkeeper/internal/types"
)

// RuleStore reads a coupon's two rule sets from its metadata, memoized in
// the request cache. Malformed metadata reads as "no restriction".
// Returned values are shared with the cache and must not be mutated.
type RuleStore struct {
	cache *Cache
}

// NewRuleStore returns a store backed by cache.
func NewRuleStore(cache *Cache) *RuleStore {
	return &RuleStore{cache: cache}
}

// RestrictedProductIDs returns the ids that only qualify as bundle children.
func (s *RuleStore) RestrictedProductIDs(coupon Coupon) types.ProductIDSet {
	id := coupon.ID()
	if ids, ok := s.cache.restricted[id]; ok {
		return ids
	}
	ids := rules.CoerceProductIDs(coupon.Meta(MetaRestrictedComponentIDs))
	s.cache.restricted[id] = ids
	return ids
}

// PropertyRules returns the ordered property rule list.
func (s *RuleStore) PropertyRules(coupon Coupon) []types.PropertyRule {
	id := coupon.ID()
	if rs, ok := s.cache.rules[id]; ok {
		return rs
	}
	rs := rules.CoercePropertyRules(coupon.Meta(MetaPropertyRules))
	s.cache.rules[id] = rs
	return rs
}

// Configured reports whether either rule set is non-empty. An unconfigured
// coupon makes every hook a passthrough.
func (s *RuleStore) Configured(coupon Coupon) bool {
	return len(s.RestrictedProductIDs(coupon)) > 0 || len(s.PropertyRules(coupon)) > 0
}
