package types

import "errors"

// Sentinel errors for couponkeeper operations.
var (
	// ErrCouponNotApplicable is the single user-visible failure the engine
	// originates: restrictions are configured, no cart line satisfies them and
	// no standard product from the allow-list is in the cart.
	ErrCouponNotApplicable = errors.New("coupon is not applicable to any item in the cart")

	// ErrCouponNotFound indicates the coupon store has no such coupon.
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrCartTooLarge indicates a submitted cart exceeds the configured limit.
	ErrCartTooLarge = errors.New("cart exceeds maximum number of items")

	// ErrInvalidItemKey indicates a blank or padded cart line key.
	ErrInvalidItemKey = errors.New("invalid cart item key")

	// ErrDuplicateItemKey indicates two lines in one snapshot share a key.
	ErrDuplicateItemKey = errors.New("duplicate cart item key")

	// ErrTooManyProperties indicates a property bag exceeds MaxPropertiesPerItem.
	ErrTooManyProperties = errors.New("item has too many custom properties")
)
