package eligibility

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/solatis/couponkeeper/internal/types"
)

func TestScanner_BundleResultIsMemoized(t *testing.T) {
	host := &fakeHost{cart: bundleCart()}
	coord := newTestCoordinator(t, host)
	coupon := newCoupon(1, nil, []any{float64(42)}, nil)

	first := coord.Scanner().BundleComponents(coupon)
	host.cart = nil // a stale snapshot must be served until invalidation
	second := coord.Scanner().BundleComponents(coupon)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second scan = %+v, want memoized %+v", second, first)
	}
	lookups := coord.metrics.CacheLookups
	if n := testutil.ToFloat64(lookups.WithLabelValues(scanBundle, "miss")); n != 1 {
		t.Errorf("bundle misses = %v, want 1", n)
	}
	if n := testutil.ToFloat64(lookups.WithLabelValues(scanBundle, "hit")); n != 1 {
		t.Errorf("bundle hits = %v, want 1", n)
	}
}

func TestScanner_EmptyBundleResultIsCached(t *testing.T) {
	host := &fakeHost{}
	coord := newTestCoordinator(t, host)
	coupon := newCoupon(2, nil, []any{float64(42)}, nil)

	if r := coord.Scanner().BundleComponents(coupon); !r.Empty() {
		t.Fatalf("BundleComponents() = %+v, want empty", r)
	}
	host.cart = bundleCart()
	if r := coord.Scanner().BundleComponents(coupon); !r.Empty() {
		t.Errorf("BundleComponents() = %+v, want cached empty result", r)
	}
}

func TestScanner_EmptyCustomizedResultIsRecomputed(t *testing.T) {
	host := &fakeHost{}
	coord := newTestCoordinator(t, host)
	coupon := newCoupon(3, []types.ProductID{100}, nil, []any{rule("Size", "XL")})

	if r := coord.Scanner().CustomizedItems(coupon); !r.Empty() {
		t.Fatalf("CustomizedItems() on empty cart = %+v, want empty", r)
	}

	// The host finishes building the cart within the same request.
	host.cart = types.Cart{customizedLine("custom", 900, 100, sizeProp("XL"))}
	r := coord.Scanner().CustomizedItems(coupon)
	if !r.MatchingKeys.Has("custom") {
		t.Errorf("CustomizedItems() keys = %v, want custom", r.MatchingKeys)
	}

	misses := coord.metrics.CacheLookups.WithLabelValues(scanCustomized, "miss")
	if n := testutil.ToFloat64(misses); n != 2 {
		t.Errorf("customized misses = %v, want 2", n)
	}
}

func TestScanner_CustomizedIdentifiers(t *testing.T) {
	line := customizedLine("custom", 900, 100, sizeProp("XL"))
	line.VariationID = 901
	host := &fakeHost{
		cart:     types.Cart{line, {Key: "plain", ProductID: 100}},
		products: map[types.ProductID]types.Product{100: {ID: 100, ParentID: 50}},
	}
	coord := newTestCoordinator(t, host)
	coupon := newCoupon(4, []types.ProductID{100}, nil, []any{rule("size", "xl")})

	r := coord.Scanner().CustomizedItems(coupon)
	wantIDs := []types.ProductID{50, 100, 900, 901}
	if got := r.AllowedProductIDs.Sorted(); !reflect.DeepEqual(got, wantIDs) {
		t.Errorf("AllowedProductIDs = %v, want %v", got, wantIDs)
	}
	if r.MatchingKeys.Has("plain") {
		t.Errorf("plain line qualified as customized")
	}
}

func TestScanner_CustomizedOwnProductOnAllowList(t *testing.T) {
	line := customizedLine("custom", 900, 100, sizeProp("XL"))
	host := &fakeHost{cart: types.Cart{line}}
	coord := newTestCoordinator(t, host)
	coupon := newCoupon(5, []types.ProductID{900}, nil, []any{rule("Size", "XL")})

	if r := coord.Scanner().CustomizedItems(coupon); !r.MatchingKeys.Has("custom") {
		t.Errorf("CustomizedItems() keys = %v, want custom via own product id", r.MatchingKeys)
	}
}

func TestScanner_BlankAlternativesNeverMatch(t *testing.T) {
	line := customizedLine("custom", 900, 100, sizeProp("XL"))
	host := &fakeHost{cart: types.Cart{line}}
	coord := newTestCoordinator(t, host)
	coupon := newCoupon(6, nil, nil, []any{rule("Size", " | |")})

	if r := coord.Scanner().CustomizedItems(coupon); !r.Empty() {
		t.Errorf("CustomizedItems() = %+v, want empty", r)
	}
}

func TestCoordinator_CartEventsInvalidate(t *testing.T) {
	events := []CartEvent{EventItemAdded, EventItemRemoved, EventItemRestored, EventCartLoaded}

	for _, ev := range events {
		t.Run(ev.String(), func(t *testing.T) {
			host := &fakeHost{}
			coord := newTestCoordinator(t, host)
			coupon := newCoupon(7, nil, []any{float64(42)}, nil)

			if r := coord.Scanner().BundleComponents(coupon); !r.Empty() {
				t.Fatalf("BundleComponents() = %+v, want empty", r)
			}
			host.cart = bundleCart()
			coord.OnCartEvent(ev)

			if g := coord.cache.Generation(); g != 1 {
				t.Errorf("Generation() = %d, want 1", g)
			}
			if r := coord.Scanner().BundleComponents(coupon); !r.MatchingKeys.Has("child") {
				t.Errorf("after %s, keys = %v, want child", ev, r.MatchingKeys)
			}
			if n := testutil.ToFloat64(coord.metrics.Invalidations.WithLabelValues(ev.String())); n != 1 {
				t.Errorf("Invalidations{%s} = %v, want 1", ev, n)
			}
		})
	}
}

func TestCoordinator_RuleListsReloadAfterInvalidation(t *testing.T) {
	host := &fakeHost{}
	coord := newTestCoordinator(t, host)
	coupon := newCoupon(8, nil, []any{float64(42)}, nil)

	if !coord.Rules().RestrictedProductIDs(coupon).Has(42) {
		t.Fatalf("RestrictedProductIDs() missing 42")
	}
	coupon.meta[MetaRestrictedComponentIDs] = []any{float64(43)}
	if coord.Rules().RestrictedProductIDs(coupon).Has(43) {
		t.Errorf("RestrictedProductIDs() reloaded before invalidation")
	}

	coord.OnCartEvent(EventItemAdded)
	if !coord.Rules().RestrictedProductIDs(coupon).Has(43) {
		t.Errorf("RestrictedProductIDs() = %v, want reloaded {43}", coord.Rules().RestrictedProductIDs(coupon).Sorted())
	}
}

func TestCartEvent_String(t *testing.T) {
	tests := []struct {
		ev   CartEvent
		want string
	}{
		{EventItemAdded, "item_added"},
		{EventItemRemoved, "item_removed"},
		{EventItemRestored, "item_restored"},
		{EventCartLoaded, "cart_loaded"},
	}
	for _, tt := range tests {
		if got := tt.ev.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestReentryGuard(t *testing.T) {
	var g reentryGuard
	release, ok := g.acquire()
	if !ok || !g.held() {
		t.Fatalf("first acquire = %v, held = %v, want true, true", ok, g.held())
	}
	inner, ok := g.acquire()
	if ok {
		t.Errorf("nested acquire = true, want false")
	}
	inner()
	if !g.held() {
		t.Errorf("nested release dropped the outer hold")
	}
	release()
	if g.held() {
		t.Errorf("held() = true after release")
	}
}

// Expansion over an unchanged cart is a pure function of its input.
func TestProperty_ExpansionIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genIDs := gen.SliceOf(gen.Int64Range(1, 60).Map(func(v int64) types.ProductID {
		return types.ProductID(v)
	}))

	properties.Property("expand(expand(x)) == expand(x)", prop.ForAll(
		func(current []types.ProductID, restricted int64) bool {
			host := &fakeHost{cart: types.Cart{
				{Key: "parent", ProductID: 10, CompositeRole: types.RoleParent},
				{Key: "child", ProductID: types.ProductID(restricted), CompositeRole: types.RoleChild, CompositeParent: "parent"},
				customizedLine("custom", 900, 100, sizeProp("XL")),
			}}
			coord, err := NewCoordinator(Deps{Host: host})
			if err != nil {
				return false
			}
			coupon := newCoupon(1, []types.ProductID{100}, []any{float64(restricted)}, []any{rule("Size", "XL")})
			hookInto(coupon, coord)

			once := coord.ExpandAllowedProductIDs(current, coupon)
			twice := coord.ExpandAllowedProductIDs(once, coupon)
			return reflect.DeepEqual(once, twice)
		},
		genIDs,
		gen.Int64Range(1, 60),
	))

	properties.Property("expansion preserves every input id", prop.ForAll(
		func(current []types.ProductID) bool {
			host := &fakeHost{cart: bundleCart()}
			coord, err := NewCoordinator(Deps{Host: host})
			if err != nil {
				return false
			}
			coupon := newCoupon(1, nil, []any{float64(42)}, nil)
			out := types.NewProductIDSet(coord.ExpandAllowedProductIDs(current, coupon)...)
			for _, id := range current {
				if !out.Has(id) {
					return false
				}
			}
			return true
		},
		genIDs,
	))

	properties.TestingRun(t)
}
