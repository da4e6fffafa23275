package api

import (
	"fmt"
	"strconv"

	"github.com/solatis/couponkeeper/internal/types"
)

// EvaluateRequest asks for one coupon to be evaluated against a cart.
// Exactly one of CouponID and CouponCode identifies the coupon.
type EvaluateRequest struct {
	CouponID   int64       `json:"coupon_id,omitempty"`
	CouponCode string      `json:"coupon_code,omitempty"`
	Cart       []LineInput `json:"cart"`
}

// LineInput is one cart line as submitted by a client.
type LineInput struct {
	Key             string              `json:"key,omitempty"`
	ProductID       int64               `json:"product_id"`
	VariationID     int64               `json:"variation_id,omitempty"`
	Quantity        int                 `json:"quantity,omitempty"`
	CompositeRole   string              `json:"composite_role,omitempty"`
	CompositeParent string              `json:"composite_parent,omitempty"`
	Customization   *CustomizationInput `json:"customization,omitempty"`
}

// CustomizationInput is a configurator payload. Property values are strings,
// numbers or lists of those.
type CustomizationInput struct {
	OriginalProductID int64           `json:"original_product_id,omitempty"`
	Properties        []PropertyInput `json:"properties"`
}

// PropertyInput is one submitted property.
type PropertyInput struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// toCart validates the submitted lines and converts them. Lines without a
// key get a generated one.
func (r *EvaluateRequest) toCart(maxItems int) (types.Cart, error) {
	if r.CouponID <= 0 && r.CouponCode == "" {
		return nil, fmt.Errorf("%w: coupon_id or coupon_code required", ErrInvalidRequest)
	}
	if r.CouponID > 0 && r.CouponCode != "" {
		return nil, fmt.Errorf("%w: coupon_id and coupon_code are mutually exclusive", ErrInvalidRequest)
	}
	if len(r.Cart) > maxItems {
		return nil, fmt.Errorf("%d items, limit %d: %w", len(r.Cart), maxItems, types.ErrCartTooLarge)
	}

	cart := make(types.Cart, 0, len(r.Cart))
	seen := make(types.KeySet, len(r.Cart))
	for i, in := range r.Cart {
		item, err := in.toItem()
		if err != nil {
			return nil, fmt.Errorf("cart[%d]: %w", i, err)
		}
		if seen.Has(item.Key) {
			return nil, fmt.Errorf("cart[%d] %q: %w", i, item.Key, types.ErrDuplicateItemKey)
		}
		seen.Add(item.Key)
		cart = append(cart, item)
	}
	return cart, nil
}

func (in LineInput) toItem() (types.CartItem, error) {
	key := types.NewItemKey()
	if in.Key != "" {
		k, err := types.ParseItemKey(in.Key)
		if err != nil {
			return types.CartItem{}, fmt.Errorf("%q: %w", in.Key, err)
		}
		key = k
	}
	if in.ProductID <= 0 {
		return types.CartItem{}, fmt.Errorf("%w: product_id must be positive", ErrInvalidRequest)
	}

	item := types.CartItem{
		Key:             key,
		ProductID:       types.ProductID(in.ProductID),
		VariationID:     types.ProductID(in.VariationID),
		Quantity:        in.Quantity,
		CompositeRole:   types.ParseCompositeRole(in.CompositeRole),
		CompositeParent: types.ItemKey(in.CompositeParent),
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	if in.Customization != nil {
		props := in.Customization.Properties
		if len(props) > types.MaxPropertiesPerItem {
			return types.CartItem{}, fmt.Errorf("%d properties: %w", len(props), types.ErrTooManyProperties)
		}
		c := &types.Customization{OriginalProductID: types.ProductID(in.Customization.OriginalProductID)}
		for _, p := range props {
			c.Properties = append(c.Properties, types.Property{Key: p.Key, Value: propertyValue(p.Value)})
		}
		item.Customization = c
	}
	return item, nil
}

// propertyValue converts a decoded JSON value. Lists become list values;
// anything else is rendered as a scalar.
func propertyValue(v any) types.PropertyValue {
	switch x := v.(type) {
	case []any:
		items := make([]string, 0, len(x))
		for _, e := range x {
			items = append(items, scalarText(e))
		}
		return types.ListValue(items...)
	case []string:
		return types.ListValue(x...)
	default:
		return types.ScalarValue(scalarText(v))
	}
}

func scalarText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
