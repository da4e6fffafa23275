// internal/rules/coercion.go
package rules

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/solatis/couponkeeper/internal/types"
)

/*
 * Metadata coercion for coupon rule sets.
 *
 * Coupon metadata arrives from the host as whatever its storage layer decoded:
 * JSON-decoded []any, typed slices, JSON text, or comma separated text. The
 * engine never rejects configuration; coercion drops what it cannot read.
 *
 * Accepted shapes:
 *   - Restricted ids: []any, []int, []int64, []ProductID, []string,
 *     JSON array text, comma separated text
 *   - Property rules: []any of {key, value} maps, []map[string]any,
 *     []PropertyRule, JSON array text
 *
 * Id policy: positive integers only. float64 must be integral (JSON numbers
 * decode as float64). Strings are trimmed then parsed base 10. Booleans,
 * zero, negatives, fractions and anything else are dropped.
 *
 * Rule policy: both key and value must be strings (numbers are formatted so
 * an admin typing 42 as a value still works). Entries that are not maps are
 * dropped. Empty key/value entries are kept; the matcher skips them.
 */

// CoerceProductIDs normalizes raw restricted-id metadata into a set.
// Nil, unknown shapes and malformed entries yield an empty set.
func CoerceProductIDs(raw any) types.ProductIDSet {
	out := make(types.ProductIDSet)

	switch v := raw.(type) {
	case nil:
	case types.ProductIDSet:
		out.Union(v)
	case []types.ProductID:
		for _, id := range v {
			if id > 0 {
				out.Add(id)
			}
		}
	case []int64:
		for _, id := range v {
			if id > 0 {
				out.Add(types.ProductID(id))
			}
		}
	case []int:
		for _, id := range v {
			if id > 0 {
				out.Add(types.ProductID(id))
			}
		}
	case []string:
		for _, s := range v {
			if id, ok := coerceProductID(s); ok {
				out.Add(id)
			}
		}
	case []any:
		for _, elem := range v {
			if id, ok := coerceProductID(elem); ok {
				out.Add(id)
			}
		}
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "[") {
			var decoded []any
			if err := json.Unmarshal([]byte(s), &decoded); err != nil {
				return out
			}
			return CoerceProductIDs(decoded)
		}
		for _, part := range strings.Split(s, ",") {
			if id, ok := coerceProductID(part); ok {
				out.Add(id)
			}
		}
	}

	return out
}

// coerceProductID converts a single scalar to a positive id.
func coerceProductID(value any) (types.ProductID, bool) {
	switch v := value.(type) {
	case float64:
		if v <= 0 || v != math.Trunc(v) || v >= math.MaxInt64 {
			return 0, false
		}
		return types.ProductID(v), true
	case int:
		if v <= 0 {
			return 0, false
		}
		return types.ProductID(v), true
	case int64:
		if v <= 0 {
			return 0, false
		}
		return types.ProductID(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil || n <= 0 {
			return 0, false
		}
		return types.ProductID(n), true
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, false
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return 0, false
		}
		return types.ProductID(n), true
	default:
		return 0, false
	}
}

// CoercePropertyRules normalizes raw rule metadata into an ordered list.
// Order is preserved; it only affects which failing rule short-circuits first.
// Lists longer than MaxPropertyRules are truncated.
func CoercePropertyRules(raw any) []types.PropertyRule {
	var out []types.PropertyRule

	switch v := raw.(type) {
	case nil:
	case []types.PropertyRule:
		out = append(out, v...)
	case []map[string]any:
		for _, m := range v {
			if r, ok := coercePropertyRule(m); ok {
				out = append(out, r)
			}
		}
	case []map[string]string:
		for _, m := range v {
			out = append(out, types.PropertyRule{Key: m["key"], Value: m["value"]})
		}
	case []any:
		for _, elem := range v {
			m, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			if r, ok := coercePropertyRule(m); ok {
				out = append(out, r)
			}
		}
	case string:
		var decoded []any
		if err := json.Unmarshal([]byte(strings.TrimSpace(v)), &decoded); err != nil {
			return nil
		}
		return CoercePropertyRules(decoded)
	}

	if len(out) > types.MaxPropertyRules {
		out = out[:types.MaxPropertyRules]
	}
	return out
}

// coercePropertyRule reads {key, value} from a decoded map.
// Missing fields read as empty; non-text fields drop the entry.
func coercePropertyRule(m map[string]any) (types.PropertyRule, bool) {
	key, ok := coerceRuleText(m["key"])
	if !ok {
		return types.PropertyRule{}, false
	}
	value, ok := coerceRuleText(m["value"])
	if !ok {
		return types.PropertyRule{}, false
	}
	return types.PropertyRule{Key: key, Value: value}, true
}

// coerceRuleText accepts strings and numbers. nil reads as empty.
func coerceRuleText(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}
