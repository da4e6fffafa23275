// internal/eligibility/coordinator.go
package eligibility

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/solatis/couponkeeper/internal/rules"
	"github.com/solatis/couponkeeper/internal/types"
)

/*
 * Validity and injection coordination.
 *
 * Wires the scan results into the host's coupon pipeline. Every hook is a
 * function of (incoming host value, coupon, current cart) and returns the
 * host value unchanged for coupons with no restrictions configured.
 *
 * Hook contracts:
 *   - ExpandAllowedProductIDs: idempotent modulo the re-entrancy guard
 *   - ValidateCoupon: monotonic, only flips invalid -> valid; raises
 *     ErrCouponNotApplicable when nothing in the cart can ever qualify
 *   - ValidateItem: may override in both directions for customized and
 *     restricted lines, passes everything else through
 *   - ItemsToApply: append-only
 *   - ItemsToValidate: substitutes products, never removes entries
 *
 * Re-entrancy: the customized scan needs the coupon's allow-list, and asking
 * the host for it runs the host's filter chain, which calls
 * ExpandAllowedProductIDs again. The guard is held around that one call site;
 * a nested expansion sees it held and returns its input untouched, which is
 * exactly the raw allow-list the scan wanted.
 *
 * Tie-break for lines claimed by both paths: customized lines are decided by
 * the customized policy, everything else by the bundle policy.
 */

// Reason explains which policy decided a line's verdict.
type Reason string

const (
	ReasonHost             Reason = "host"
	ReasonCustomized       Reason = "customized"
	ReasonBundleChild      Reason = "bundle-child"
	ReasonBundleStandalone Reason = "bundle-standalone"
	ReasonCompositeParent  Reason = "composite-parent"
)

// Verdict is a per-line eligibility decision.
type Verdict struct {
	Valid  bool
	Reason Reason
}

// Deps holds a Coordinator's collaborators. Only Host is required.
type Deps struct {
	Host    Host
	Cache   *Cache                 // nil: fresh cache
	Bundles rules.BundleMembership // nil: NoBundles
	Metrics *Metrics               // nil: unregistered counters
	Logger  *zerolog.Logger        // nil: disabled
}

// Coordinator implements the host hook points for one request.
type Coordinator struct {
	host    Host
	cache   *Cache
	store   *RuleStore
	scanner *Scanner
	bundles rules.BundleMembership
	metrics *Metrics
	log     zerolog.Logger
	guard   reentryGuard
}

// NewCoordinator creates a request-scoped coordinator.
func NewCoordinator(d Deps) (*Coordinator, error) {
	if d.Host == nil {
		return nil, fmt.Errorf("host cannot be nil")
	}
	if d.Cache == nil {
		d.Cache = NewCache()
	}
	if d.Bundles == nil {
		d.Bundles = rules.NoBundles{}
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics(nil)
	}
	log := zerolog.Nop()
	if d.Logger != nil {
		log = *d.Logger
	}

	c := &Coordinator{
		host:    d.Host,
		cache:   d.Cache,
		store:   NewRuleStore(d.Cache),
		bundles: d.Bundles,
		metrics: d.Metrics,
		log:     log.With().Str("component", "eligibility").Logger(),
	}
	c.scanner = &Scanner{
		host:          d.Host,
		cache:         d.Cache,
		store:         c.store,
		bundles:       d.Bundles,
		metrics:       d.Metrics,
		rawProductIDs: c.rawProductIDs,
	}
	return c, nil
}

// Scanner exposes the qualification scans.
func (c *Coordinator) Scanner() *Scanner {
	return c.scanner
}

// Rules exposes the rule store.
func (c *Coordinator) Rules() *RuleStore {
	return c.store
}

// rawProductIDs asks the host for the coupon's allow-list with the guard
// held, so the host's own call back into ExpandAllowedProductIDs is inert.
func (c *Coordinator) rawProductIDs(coupon Coupon) []types.ProductID {
	release, _ := c.guard.acquire()
	defer release()
	return coupon.ProductIDs()
}

// ExpandAllowedProductIDs merges both scans' product ids into the host's
// allow-list. Order of current is preserved; new ids follow in ascending
// order; duplicates are removed. A nested call returns current unchanged.
func (c *Coordinator) ExpandAllowedProductIDs(current []types.ProductID, coupon Coupon) []types.ProductID {
	release, ok := c.guard.acquire()
	if !ok {
		c.metrics.Reentries.Inc()
		c.log.Debug().Int64("coupon_id", int64(coupon.ID())).Msg("nested allow-list expansion short-circuited")
		return current
	}
	defer release()

	if !c.store.Configured(coupon) {
		return current
	}

	// A structural change since the last scan (a bundle being composed) must
	// be picked up before the host trusts the list.
	c.cache.forgetCustomized(coupon.ID())

	extra := types.NewProductIDSet()
	extra.Union(c.scanner.BundleComponents(coupon).AllowedProductIDs)
	extra.Union(c.scanner.CustomizedItems(coupon).AllowedProductIDs)

	seen := make(types.ProductIDSet, len(current)+len(extra))
	out := make([]types.ProductID, 0, len(current)+len(extra))
	for _, id := range current {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range extra.Sorted() {
		if seen.Has(id) {
			continue
		}
		seen.Add(id)
		out = append(out, id)
	}
	return out
}

// ValidateCoupon rescues an invalid verdict when either scan qualified a
// line. Valid verdicts pass through. When restrictions are configured,
// nothing qualified and no standard product from the allow-list is in the
// cart, it returns false with an error wrapping ErrCouponNotApplicable.
func (c *Coordinator) ValidateCoupon(current bool, coupon Coupon) (bool, error) {
	if current || !c.store.Configured(coupon) {
		return current, nil
	}

	if !c.scanner.BundleComponents(coupon).Empty() || !c.scanner.CustomizedItems(coupon).Empty() {
		c.log.Debug().Int64("coupon_id", int64(coupon.ID())).Msg("coupon rescued by qualifying cart line")
		return true, nil
	}

	if c.hasStandardFallback(coupon) {
		return false, nil
	}

	c.metrics.NotApplicable.Inc()
	c.log.Debug().Int64("coupon_id", int64(coupon.ID())).Msg("coupon not applicable")
	return false, fmt.Errorf("coupon %d: %w", coupon.ID(), types.ErrCouponNotApplicable)
}

// hasStandardFallback reports whether the cart holds a plain line whose
// product is on the raw allow-list and not restricted to bundle use. An
// empty allow-list admits every plain line.
func (c *Coordinator) hasStandardFallback(coupon Coupon) bool {
	allow := types.NewProductIDSet(c.rawProductIDs(coupon)...)
	restricted := c.store.RestrictedProductIDs(coupon)
	for _, item := range c.host.Cart() {
		if rules.IsCustomized(item) || c.bundles.IsParent(item) {
			continue
		}
		if rules.InSet(item, restricted) {
			continue
		}
		if len(allow) == 0 || rules.InSet(item, allow) {
			return true
		}
	}
	return false
}

// ValidateItem returns the per-line verdict. See ItemVerdict.
func (c *Coordinator) ValidateItem(current bool, coupon Coupon, item types.CartItem) bool {
	return c.ItemVerdict(current, coupon, item).Valid
}

// ItemVerdict decides one line:
//   - customized lines, when the coupon restricts them, get the customized
//     policy's answer regardless of current;
//   - composite parents are never eligible;
//   - restricted verified children are eligible when the bundle scan
//     qualified them, restricted standalone lines are denied;
//   - everything else keeps current.
func (c *Coordinator) ItemVerdict(current bool, coupon Coupon, item types.CartItem) Verdict {
	if !c.store.Configured(coupon) {
		return Verdict{Valid: current, Reason: ReasonHost}
	}

	v := c.decide(current, coupon, item)
	if v.Reason != ReasonHost {
		c.metrics.ItemVerdicts.WithLabelValues(string(v.Reason), strconv.FormatBool(v.Valid)).Inc()
	}
	return v
}

func (c *Coordinator) decide(current bool, coupon Coupon, item types.CartItem) Verdict {
	if rules.IsCustomized(item) {
		policy := c.scanner.customPolicy(coupon)
		if policy.configured() {
			return Verdict{Valid: policy.qualifies(item), Reason: ReasonCustomized}
		}
	}

	if c.bundles.IsParent(item) {
		return Verdict{Valid: false, Reason: ReasonCompositeParent}
	}

	if rules.InSet(item, c.store.RestrictedProductIDs(coupon)) {
		if c.bundles.IsChild(item, c.host.Cart()) {
			qualified := c.scanner.BundleComponents(coupon).MatchingKeys.Has(item.Key)
			return Verdict{Valid: qualified, Reason: ReasonBundleChild}
		}
		return Verdict{Valid: false, Reason: ReasonBundleStandalone}
	}

	return Verdict{Valid: current, Reason: ReasonHost}
}

// ItemsToApply appends customized lines that qualified for coupon and are
// missing from current. Entries come from the host registry, cloned. Bundle
// children are not injected; the expanded allow-list already covers them.
func (c *Coordinator) ItemsToApply(current []types.DiscountItem, coupon Coupon) []types.DiscountItem {
	if !c.store.Configured(coupon) {
		return current
	}
	qualified := c.scanner.CustomizedItems(coupon)
	if qualified.Empty() {
		return current
	}

	present := make(types.KeySet, len(current))
	for _, d := range current {
		present.Add(d.Key)
	}

	out := make([]types.DiscountItem, len(current), len(current)+len(qualified.MatchingKeys))
	copy(out, current)
	for _, item := range c.host.Cart() {
		if !qualified.MatchingKeys.Has(item.Key) || present.Has(item.Key) {
			continue
		}
		entry, ok := c.host.RegistryItem(item.Key)
		if !ok {
			continue
		}
		out = append(out, entry.Clone())
		present.Add(item.Key)
		c.metrics.InjectedItems.Inc()
	}
	return out
}

// ItemsToValidate swaps each customized line's product for the original
// catalog product it replicates, so the host's id-based validation can find
// it. Lines whose original does not resolve are left as they are.
func (c *Coordinator) ItemsToValidate(items []types.DiscountItem) []types.DiscountItem {
	out := make([]types.DiscountItem, len(items))
	copy(out, items)
	for i, d := range out {
		orig := rules.OriginalProductID(d.Item)
		if orig == 0 {
			continue
		}
		if p, ok := c.host.Product(orig); ok {
			out[i].Product = p
		}
	}
	return out
}

// OnCartEvent drops every cached rule list and scan result.
func (c *Coordinator) OnCartEvent(ev CartEvent) {
	c.cache.Invalidate()
	c.metrics.Invalidations.WithLabelValues(ev.String()).Inc()
	c.log.Debug().Str("event", ev.String()).Uint64("generation", c.cache.Generation()).Msg("eligibility cache invalidated")
}
