package types

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestProductIDSet(t *testing.T) {
	s := NewProductIDSet(3, 0, 1, 3)
	if len(s) != 2 {
		t.Fatalf("len = %d, want 2 (zero ignored, duplicates merged)", len(s))
	}
	if s.Has(0) {
		t.Errorf("Has(0) = true, zero is never a member")
	}
	s.Add(-5)
	if s.Has(-5) || len(s) != 2 {
		t.Errorf("Add(-5) stored a negative id: %v", s.Sorted())
	}
	var nilSet ProductIDSet
	if nilSet.Has(1) {
		t.Errorf("nil set Has(1) = true")
	}

	c := s.Clone()
	c.Add(9)
	if s.Has(9) {
		t.Errorf("Clone aliases the original")
	}

	s.Union(NewProductIDSet(2, 1))
	if want := []ProductID{1, 2, 3}; !reflect.DeepEqual(s.Sorted(), want) {
		t.Errorf("Sorted() = %v, want %v", s.Sorted(), want)
	}
}

func TestKeySetAndQualificationResult(t *testing.T) {
	r := NewQualificationResult()
	if !r.Empty() {
		t.Fatalf("new result not empty")
	}
	r.MatchingKeys.Add("a")
	if r.Empty() || !r.MatchingKeys.Has("a") {
		t.Errorf("result after Add = %+v", r)
	}
	c := r.MatchingKeys.Clone()
	c.Add("b")
	if r.MatchingKeys.Has("b") {
		t.Errorf("KeySet Clone aliases the original")
	}
}

func TestPropertyValue_Flatten(t *testing.T) {
	tests := []struct {
		name string
		v    PropertyValue
		want string
	}{
		{"scalar", ScalarValue("XL"), "XL"},
		{"list", ListValue("Red", "Blue"), "Red, Blue"},
		{"empty list", ListValue(), ""},
		{"single", ListValue("Only"), "Only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Flatten(); got != tt.want {
				t.Errorf("Flatten() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompositeRole(t *testing.T) {
	for _, r := range []CompositeRole{RoleNone, RoleChild, RoleParent} {
		if got := ParseCompositeRole(r.String()); got != r {
			t.Errorf("ParseCompositeRole(%q) = %v, want %v", r.String(), got, r)
		}
	}
	if got := ParseCompositeRole(" Parent "); got != RoleParent {
		t.Errorf("ParseCompositeRole(\" Parent \") = %v, want parent", got)
	}
	if got := ParseCompositeRole("bundle"); got != RoleNone {
		t.Errorf("ParseCompositeRole(bundle) = %v, want none", got)
	}
}

func TestCartItem_Clone(t *testing.T) {
	orig := CartItem{
		Key:       "a",
		ProductID: 900,
		Customization: &Customization{
			OriginalProductID: 100,
			Properties: []Property{
				{Key: "Size", Value: ScalarValue("XL")},
				{Key: "Colors", Value: ListValue("Red", "Blue")},
			},
		},
	}
	c := orig.Clone()
	c.Customization.OriginalProductID = 1
	c.Customization.Properties[0].Value = ScalarValue("S")
	c.Customization.Properties[1].Value.List[0] = "Green"

	if orig.Customization.OriginalProductID != 100 ||
		orig.Customization.Properties[0].Value.Scalar != "XL" ||
		orig.Customization.Properties[1].Value.List[0] != "Red" {
		t.Errorf("Clone aliases the original: %+v", orig.Customization)
	}

	d := DiscountItem{Key: "a", Item: orig}.Clone()
	d.Item.Customization.Properties[0].Value = ScalarValue("M")
	if orig.Customization.Properties[0].Value.Scalar != "XL" {
		t.Errorf("DiscountItem.Clone aliases the cart line")
	}

	plain := CartItem{Key: "p", ProductID: 1}.Clone()
	if plain.Customization != nil {
		t.Errorf("Clone invented a customization")
	}
}

func TestCart_Find(t *testing.T) {
	cart := Cart{{Key: "a", ProductID: 1}, {Key: "b", ProductID: 2}}
	if it, ok := cart.Find("b"); !ok || it.ProductID != 2 {
		t.Errorf("Find(b) = %+v, %v", it, ok)
	}
	if _, ok := cart.Find("z"); ok {
		t.Errorf("Find(z) = true, want false")
	}
}

func TestParseItemKey(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"a1b2c3", false},
		{"line with spaces", false},
		{"", true},
		{"   ", true},
		{" padded", true},
		{"padded\t", true},
	}
	for _, tt := range tests {
		_, err := ParseItemKey(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseItemKey(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidItemKey) {
			t.Errorf("ParseItemKey(%q) error = %v, want ErrInvalidItemKey", tt.in, err)
		}
	}
}

func TestNewItemKey(t *testing.T) {
	before := time.Now().Add(-time.Second)
	a, b := NewItemKey(), NewItemKey()
	if a == b {
		t.Fatalf("NewItemKey returned duplicate %q", a)
	}
	if _, err := ParseItemKey(string(a)); err != nil {
		t.Errorf("generated key %q rejected: %v", a, err)
	}
	if ts := ItemKeyTime(a); ts.Before(before) {
		t.Errorf("ItemKeyTime(%q) = %v, want after %v", a, ts, before)
	}
	if !ItemKeyTime("host-key-17").IsZero() {
		t.Errorf("ItemKeyTime on a host key should be zero")
	}
	if NewRequestID() == "" {
		t.Errorf("NewRequestID returned empty id")
	}
}
