// internal/rules/matcher_test.go
package rules

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/couponkeeper/internal/types"
)

func customized(props ...types.Property) types.CartItem {
	return types.CartItem{
		Key:       "line-1",
		ProductID: 900,
		Quantity:  1,
		Customization: &types.Customization{
			OriginalProductID: 100,
			Properties:        props,
		},
	}
}

func prop_(key, value string) types.Property {
	return types.Property{Key: key, Value: types.ScalarValue(value)}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name  string
		item  types.CartItem
		rules []types.PropertyRule
		want  bool
	}{
		{
			name:  "empty rules never match",
			item:  customized(prop_("Size", "Large")),
			rules: nil,
			want:  false,
		},
		{
			name:  "plain item never matches",
			item:  types.CartItem{Key: "plain", ProductID: 1},
			rules: []types.PropertyRule{{Key: "Size", Value: "Large"}},
			want:  false,
		},
		{
			name:  "customization with empty bag is not customized",
			item:  types.CartItem{Key: "empty", ProductID: 1, Customization: &types.Customization{OriginalProductID: 5}},
			rules: []types.PropertyRule{{Key: "Size", Value: "Large"}},
			want:  false,
		},
		{
			name:  "exact match",
			item:  customized(prop_("Size", "Large")),
			rules: []types.PropertyRule{{Key: "Size", Value: "Large"}},
			want:  true,
		},
		{
			name:  "case-insensitive key and value",
			item:  customized(prop_("ARMOR TYPE", "hyperline level iiia")),
			rules: []types.PropertyRule{{Key: "armor type", Value: "HYPERLINE"}},
			want:  true,
		},
		{
			name:  "partial key match",
			item:  customized(prop_("Selected Armor Type (front)", "HG2 Standard")),
			rules: []types.PropertyRule{{Key: "Armor Type", Value: "HG2"}},
			want:  true,
		},
		{
			name: "AND across rules: one failing rule fails the match",
			item: customized(
				prop_("Armor Type", "Hyperline Level IIIA"),
				prop_("Size", "Medium"),
			),
			rules: []types.PropertyRule{
				{Key: "Armor Type", Value: "Hyperline"},
				{Key: "Size", Value: "Large"},
			},
			want: false,
		},
		{
			name: "AND across rules: all satisfied",
			item: customized(
				prop_("Armor Type", "Hyperline Level IIIA"),
				prop_("Size", "Large"),
			),
			rules: []types.PropertyRule{
				{Key: "Armor Type", Value: "Hyperline"},
				{Key: "Size", Value: "Large"},
			},
			want: true,
		},
		{
			name:  "OR within rule: first alternative",
			item:  customized(prop_("Armor Type", "Hyperline Level IIIA")),
			rules: []types.PropertyRule{{Key: "Armor Type", Value: "Hyperline|HG2"}},
			want:  true,
		},
		{
			name:  "OR within rule: second alternative",
			item:  customized(prop_("Armor Type", "HG2 Standard")),
			rules: []types.PropertyRule{{Key: "Armor Type", Value: "Hyperline|HG2"}},
			want:  true,
		},
		{
			name:  "OR within rule: no alternative",
			item:  customized(prop_("Armor Type", "SRT Basic")),
			rules: []types.PropertyRule{{Key: "Armor Type", Value: "Hyperline|HG2"}},
			want:  false,
		},
		{
			name:  "alternatives are trimmed",
			item:  customized(prop_("Size", "Extra Large (XL)")),
			rules: []types.PropertyRule{{Key: "Size", Value: " Large | XL "}},
			want:  true,
		},
		{
			name:  "blank alternatives dropped",
			item:  customized(prop_("Size", "XL")),
			rules: []types.PropertyRule{{Key: "Size", Value: "||XL|"}},
			want:  true,
		},
		{
			name:  "whitespace-only value never matches",
			item:  customized(prop_("Size", "Large")),
			rules: []types.PropertyRule{{Key: "Size", Value: "   "}},
			want:  false,
		},
		{
			name:  "pipes-only value never matches",
			item:  customized(prop_("Size", "Large")),
			rules: []types.PropertyRule{{Key: "Size", Value: " | | "}},
			want:  false,
		},
		{
			name: "empty key rule skipped",
			item: customized(prop_("Size", "Large")),
			rules: []types.PropertyRule{
				{Key: "", Value: "anything"},
				{Key: "Size", Value: "Large"},
			},
			want: true,
		},
		{
			name: "empty value rule skipped",
			item: customized(prop_("Size", "Large")),
			rules: []types.PropertyRule{
				{Key: "Color", Value: ""},
				{Key: "Size", Value: "Large"},
			},
			want: true,
		},
		{
			name:  "missing property fails rule",
			item:  customized(prop_("Size", "Large")),
			rules: []types.PropertyRule{{Key: "Color", Value: "Red"}},
			want:  false,
		},
		{
			name: "list value joined before comparison",
			item: customized(types.Property{
				Key:   "Add-ons",
				Value: types.ListValue("Trauma Plate", "Side Panels"),
			}),
			rules: []types.PropertyRule{{Key: "add-ons", Value: "side panels"}},
			want:  true,
		},
		{
			name: "list join separator is matchable",
			item: customized(types.Property{
				Key:   "Add-ons",
				Value: types.ListValue("A", "B"),
			}),
			rules: []types.PropertyRule{{Key: "Add-ons", Value: "a, b"}},
			want:  true,
		},
		{
			name: "second property with same key satisfies rule",
			item: customized(
				prop_("Size", "Medium"),
				prop_("Size (torso)", "Large"),
			),
			rules: []types.PropertyRule{{Key: "size", Value: "large"}},
			want:  true,
		},
		{
			name: "value must come from a property whose key matched",
			item: customized(
				prop_("Size", "Medium"),
				prop_("Color", "Large Print"),
			),
			rules: []types.PropertyRule{{Key: "size", Value: "large"}},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.item, tt.rules); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlternatives(t *testing.T) {
	tests := []struct {
		value string
		want  []string
	}{
		{"Large", []string{"Large"}},
		{"Large|XL", []string{"Large", "XL"}},
		{" Large | XL ", []string{"Large", "XL"}},
		{"|Large||", []string{"Large"}},
		{"   ", []string{}},
		{"", []string{}},
	}

	for _, tt := range tests {
		got := Alternatives(tt.value)
		if len(got) != len(tt.want) {
			t.Errorf("Alternatives(%q) = %v, want %v", tt.value, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Alternatives(%q)[%d] = %q, want %q", tt.value, i, got[i], tt.want[i])
			}
		}
	}
}

func TestCompile_SkipsEmptyRules(t *testing.T) {
	set := Compile([]types.PropertyRule{
		{Key: "", Value: "x"},
		{Key: "Size", Value: ""},
		{Key: "Size", Value: "Large|XL"},
	})

	if !set.Configured {
		t.Errorf("Configured = false, want true")
	}
	if len(set.Rules) != 1 {
		t.Fatalf("len(Rules) = %d, want 1", len(set.Rules))
	}
	if set.Rules[0].Key != "size" {
		t.Errorf("Rules[0].Key = %q, want size", set.Rules[0].Key)
	}
	if len(set.Rules[0].Alternatives) != 2 || set.Rules[0].Alternatives[1] != "xl" {
		t.Errorf("Rules[0].Alternatives = %v, want [large xl]", set.Rules[0].Alternatives)
	}
}

// genWord generates short alphabetic strings (never blank, never containing '|').
func genWord() gopter.Gen {
	return gen.RegexMatch("[a-zA-Z]{1,11}")
}

// Property-based test: matching ignores case on both sides
func TestMatches_PropertyCaseInsensitive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("upper/lower casing of rule key and value never changes the result", prop.ForAll(
		func(propKey, propValue, ruleKey, ruleValue string) bool {
			item := customized(prop_(propKey, propValue))
			base := Matches(item, []types.PropertyRule{{Key: ruleKey, Value: ruleValue}})
			upper := Matches(item, []types.PropertyRule{{Key: strings.ToUpper(ruleKey), Value: strings.ToUpper(ruleValue)}})
			lower := Matches(item, []types.PropertyRule{{Key: strings.ToLower(ruleKey), Value: strings.ToLower(ruleValue)}})
			return base == upper && base == lower
		},
		genWord(), genWord(), genWord(), genWord(),
	))

	properties.Property("a property always matches a rule built from its own substrings", prop.ForAll(
		func(key, value string) bool {
			item := customized(prop_(key, value))
			rule := types.PropertyRule{
				Key:   strings.ToUpper(key[:len(key)/2+1]),
				Value: strings.ToLower(value[len(value)/2:]),
			}
			return Matches(item, []types.PropertyRule{rule})
		},
		genWord(), genWord(),
	))

	properties.TestingRun(t)
}

// Property-based test: AND/OR composition
func TestMatches_PropertyComposition(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("adding a rule never turns a non-match into a match", prop.ForAll(
		func(value, first, second string) bool {
			item := customized(prop_("Size", value))
			one := []types.PropertyRule{{Key: "Size", Value: first}}
			two := []types.PropertyRule{{Key: "Size", Value: first}, {Key: "Size", Value: second}}
			return !(Matches(item, two) && !Matches(item, one))
		},
		genWord(), genWord(), genWord(),
	))

	properties.Property("adding an alternative never turns a match into a non-match", prop.ForAll(
		func(value, first, second string) bool {
			item := customized(prop_("Size", value))
			narrow := []types.PropertyRule{{Key: "Size", Value: first}}
			wide := []types.PropertyRule{{Key: "Size", Value: first + "|" + second}}
			return !(Matches(item, narrow) && !Matches(item, wide))
		},
		genWord(), genWord(), genWord(),
	))

	properties.Property("matching is deterministic", prop.ForAll(
		func(value, ruleValue string) bool {
			item := customized(prop_("Size", value))
			rules := []types.PropertyRule{{Key: "size", Value: ruleValue}}
			return Matches(item, rules) == Matches(item, rules)
		},
		genWord(), genWord(),
	))

	properties.TestingRun(t)
}
