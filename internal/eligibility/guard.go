package eligibility

// reentryGuard marks the region in which the engine asks the host for a
// coupon's raw allow-list. Single-threaded by contract: a Coordinator is
// never shared across goroutines, so a plain bool is enough.
type reentryGuard struct {
	active bool
}

// acquire enters the guarded region. When the region is already held it
// returns a no-op release and false; the caller decides whether that means
// "short-circuit" or "already protected, carry on".
func (g *reentryGuard) acquire() (release func(), acquired bool) {
	if g.active {
		return func() {}, false
	}
	g.active = true
	return func() { g.active = false }, true
}

// held reports whether the region is currently entered.
func (g *reentryGuard) held() bool {
	return g.active
}
