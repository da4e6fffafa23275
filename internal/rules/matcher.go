// internal/rules/matcher.go
package rules

import (
	"strings"

	"github.com/solatis/couponkeeper/internal/types"
)

/*
 * Property rule matching.
 *
 * Evaluates a coupon's property rules against a customized item's property
 * bag. Semantics:
 *
 *   - AND across rules: every compiled rule must be satisfied; the first
 *     failing rule short-circuits the whole match to false
 *   - OR within a rule: the value is split on '|', each segment trimmed,
 *     blank segments dropped; any alternative satisfies the rule
 *   - Partial, case-insensitive: a property is considered when its key
 *     contains the rule key; it satisfies the rule when its flattened value
 *     contains an alternative
 *
 * Skipped vs failing: a rule with an empty key or an empty value is skipped
 * (it constrains nothing). A rule whose value is non-empty but has no
 * non-blank alternatives ("   ", "|") can never be satisfied and fails.
 *
 * Compilation lowercases keys and alternatives once so a scan over N cart
 * lines does not repeat the work N times. Property side is lowercased per
 * comparison; bags are small.
 */

// CompiledRule is a pre-processed property rule ready for matching.
type CompiledRule struct {
	Key          string   // lowercased rule key
	Alternatives []string // lowercased, trimmed, non-empty
}

// CompiledRuleSet is an ordered list of compiled rules.
// Skipped rules are absent; Configured reports whether any rule was given.
type CompiledRuleSet struct {
	Rules      []CompiledRule
	Configured bool
}

// Compile pre-processes rules for matching. Never fails: malformed rules are
// either skipped or compiled to a never-satisfied rule.
func Compile(rules []types.PropertyRule) CompiledRuleSet {
	set := CompiledRuleSet{
		Rules:      make([]CompiledRule, 0, len(rules)),
		Configured: len(rules) > 0,
	}

	for _, r := range rules {
		if r.Key == "" || r.Value == "" {
			continue
		}
		alts := Alternatives(r.Value)
		for i := range alts {
			alts[i] = strings.ToLower(alts[i])
		}
		set.Rules = append(set.Rules, CompiledRule{
			Key:          strings.ToLower(r.Key),
			Alternatives: alts,
		})
	}

	return set
}

// Alternatives splits a rule value on '|' and returns the trimmed, non-blank
// segments in their original case and order.
func Alternatives(value string) []string {
	parts := strings.Split(value, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Matches reports whether item satisfies every rule.
// False for an empty rule list and for items that are not customized.
func Matches(item types.CartItem, rules []types.PropertyRule) bool {
	return MatchCompiled(item, Compile(rules))
}

// MatchCompiled is Matches for a pre-compiled rule set.
func MatchCompiled(item types.CartItem, set CompiledRuleSet) bool {
	if !set.Configured || !IsCustomized(item) {
		return false
	}

	props := flattenProperties(item.Customization.Properties)

	for _, rule := range set.Rules {
		if !matchRule(rule, props) {
			return false
		}
	}
	return true
}

// flatProperty is a property with lowercased key and flattened lowercased value.
type flatProperty struct {
	key   string
	value string
}

// flattenProperties lowercases keys and joins list values with ", ".
func flattenProperties(props []types.Property) []flatProperty {
	out := make([]flatProperty, len(props))
	for i, p := range props {
		out[i] = flatProperty{
			key:   strings.ToLower(p.Key),
			value: strings.ToLower(p.Value.Flatten()),
		}
	}
	return out
}

// matchRule reports whether any property whose key contains rule.Key has a
// value containing any alternative. First hit wins.
func matchRule(rule CompiledRule, props []flatProperty) bool {
	if len(rule.Alternatives) == 0 {
		return false
	}
	for _, p := range props {
		if !strings.Contains(p.key, rule.Key) {
			continue
		}
		for _, alt := range rule.Alternatives {
			if strings.Contains(p.value, alt) {
				return true
			}
		}
	}
	return false
}
