// internal/eligibility/scanner.go
package eligibility

import (
	"github.com/solatis/couponkeeper/internal/rules"
	"github.com/solatis/couponkeeper/internal/types"
)

/*
 * Qualification scanning.
 *
 * Two independent scans over the cart snapshot, each producing the set of
 * qualifying line keys and the union of product identifiers the host should
 * treat as allowed:
 *
 *   - Bundle-component scan: a line qualifies when its product or variation
 *     id is on the coupon's restricted list AND it is a verified composite
 *     child. Standalone purchases of a restricted product never qualify.
 *   - Customized-item scan: a customized line qualifies when its property
 *     bag satisfies the coupon's rules (or no rules are configured) AND its
 *     original or own product id is on the allow-list (or the allow-list is
 *     empty, meaning "any product").
 *
 * Memoization: both results are cached per coupon for the cache generation.
 * The customized scan never caches an empty result; the host may ask before
 * it finished building the cart in the same request.
 *
 * Identifier union for customized lines: resolved id, the resolved product's
 * catalog parent, variation id, raw product id. The host's native validation
 * inspects different identifiers at different stages; adding all of them lets
 * every stage recognise the line.
 */

// Scanner runs the qualification scans for one request.
type Scanner struct {
	host    Host
	cache   *Cache
	store   *RuleStore
	bundles rules.BundleMembership
	metrics *Metrics

	// rawProductIDs returns the coupon's allow-list without engine expansion.
	rawProductIDs func(Coupon) []types.ProductID
}

// BundleComponents returns the bundle-component scan result for coupon.
func (s *Scanner) BundleComponents(coupon Coupon) types.QualificationResult {
	id := coupon.ID()
	if r, ok := s.cache.bundle[id]; ok {
		s.metrics.CacheLookups.WithLabelValues(scanBundle, "hit").Inc()
		return r
	}
	s.metrics.CacheLookups.WithLabelValues(scanBundle, "miss").Inc()

	result := types.NewQualificationResult()
	restricted := s.store.RestrictedProductIDs(coupon)
	cart := s.host.Cart()

	if len(restricted) > 0 && len(cart) > 0 {
		for _, item := range cart {
			if !rules.InSet(item, restricted) {
				continue
			}
			if !s.bundles.IsChild(item, cart) {
				continue
			}
			result.MatchingKeys.Add(item.Key)
			result.AllowedProductIDs.Add(item.VariationID)
			result.AllowedProductIDs.Add(item.ProductID)
		}
	}

	s.cache.bundle[id] = result
	return result
}

// CustomizedItems returns the customized-item scan result for coupon.
func (s *Scanner) CustomizedItems(coupon Coupon) types.QualificationResult {
	id := coupon.ID()
	if r, ok := s.cache.customized[id]; ok {
		s.metrics.CacheLookups.WithLabelValues(scanCustomized, "hit").Inc()
		return r
	}
	s.metrics.CacheLookups.WithLabelValues(scanCustomized, "miss").Inc()

	result := types.NewQualificationResult()
	policy := s.customPolicy(coupon)
	if !policy.configured() {
		return result
	}

	cart := s.host.Cart()
	for _, item := range cart {
		if !rules.IsCustomized(item) {
			continue
		}
		if !policy.qualifies(item) {
			continue
		}
		result.MatchingKeys.Add(item.Key)
		s.addIdentifiers(result.AllowedProductIDs, item)
	}

	s.cache.storeCustomized(id, result)
	return result
}

// customPolicy gathers what the customized-item check needs for coupon.
func (s *Scanner) customPolicy(coupon Coupon) customizedPolicy {
	return customizedPolicy{
		allow: types.NewProductIDSet(s.rawProductIDs(coupon)...),
		rules: rules.Compile(s.store.PropertyRules(coupon)),
	}
}

// addIdentifiers unions every identifier the host may inspect for item.
func (s *Scanner) addIdentifiers(ids types.ProductIDSet, item types.CartItem) {
	resolved := rules.ResolvedProductID(item)
	ids.Add(resolved)
	if p, ok := s.host.Product(resolved); ok {
		ids.Add(p.ParentID)
	}
	ids.Add(item.VariationID)
	ids.Add(item.ProductID)
}

// customizedPolicy is the customized-item eligibility rule for one coupon.
type customizedPolicy struct {
	allow types.ProductIDSet
	rules rules.CompiledRuleSet
}

// configured reports whether the coupon restricts customized lines at all.
func (p customizedPolicy) configured() bool {
	return len(p.allow) > 0 || p.rules.Configured
}

// qualifies applies the product-match / rules-match policy to one line.
// An empty allow-list accepts any customized line whose rules match.
func (p customizedPolicy) qualifies(item types.CartItem) bool {
	productMatches := len(p.allow) > 0 &&
		(p.allow.Has(rules.OriginalProductID(item)) || p.allow.Has(item.ProductID))
	rulesMatch := !p.rules.Configured || rules.MatchCompiled(item, p.rules)
	return rulesMatch && (productMatches || len(p.allow) == 0)
}
