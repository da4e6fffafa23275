package eligibility

import "github.com/solatis/couponkeeper/internal/types"

// Cache memoizes rule lists and scan results per coupon for one request.
// Entries are write-once per key per generation; Invalidate starts a new
// generation. Empty customized-item results are never stored, the scanner
// may run before the host finished composing the cart.
type Cache struct {
	generation uint64
	restricted map[types.CouponID]types.ProductIDSet
	rules      map[types.CouponID][]types.PropertyRule
	bundle     map[types.CouponID]types.QualificationResult
	customized map[types.CouponID]types.QualificationResult
}

// NewCache returns an empty cache at generation 0.
func NewCache() *Cache {
	c := &Cache{}
	c.reset()
	return c
}

func (c *Cache) reset() {
	c.restricted = make(map[types.CouponID]types.ProductIDSet)
	c.rules = make(map[types.CouponID][]types.PropertyRule)
	c.bundle = make(map[types.CouponID]types.QualificationResult)
	c.customized = make(map[types.CouponID]types.QualificationResult)
}

// Invalidate drops every entry for every coupon.
func (c *Cache) Invalidate() {
	c.reset()
	c.generation++
}

// Generation counts invalidations since construction.
func (c *Cache) Generation() uint64 {
	return c.generation
}

// forgetCustomized drops one coupon's customized-item result.
func (c *Cache) forgetCustomized(id types.CouponID) {
	delete(c.customized, id)
}

func (c *Cache) storeCustomized(id types.CouponID, r types.QualificationResult) {
	if r.Empty() {
		return
	}
	c.customized[id] = r
}
