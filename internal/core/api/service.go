// Package api provides the reference host around the eligibility engine:
// it loads a stored coupon, builds a cart snapshot from a request and drives
// the engine hooks in the order a coupon pipeline calls them.
package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/solatis/couponkeeper/internal/core/couponstore"
	"github.com/solatis/couponkeeper/internal/eligibility"
	"github.com/solatis/couponkeeper/internal/rules"
	"github.com/solatis/couponkeeper/internal/types"
)

// CouponSource loads coupons and catalog products.
type CouponSource interface {
	Coupon(ctx context.Context, id types.CouponID) (*couponstore.Coupon, error)
	CouponByCode(ctx context.Context, code string) (*couponstore.Coupon, error)
	Products(ctx context.Context, ids types.ProductIDSet) (map[types.ProductID]types.Product, error)
}

// Service evaluates coupons against submitted carts. Safe for concurrent
// use; every evaluation builds its own coordinator and cache.
type Service struct {
	coupons      CouponSource
	metrics      *eligibility.Metrics
	maxCartItems int
}

// NewService creates service instance with dependencies.
func NewService(coupons CouponSource, metrics *eligibility.Metrics, maxCartItems int) (*Service, error) {
	if coupons == nil {
		return nil, fmt.Errorf("coupons cannot be nil")
	}
	if metrics == nil {
		return nil, fmt.Errorf("metrics cannot be nil")
	}
	if maxCartItems <= 0 || maxCartItems > types.MaxCartItems {
		maxCartItems = types.MaxCartItems
	}
	return &Service{coupons: coupons, metrics: metrics, maxCartItems: maxCartItems}, nil
}

// Evaluate runs one coupon through the full hook sequence:
//
//  1. cart-loaded event
//  2. allow-list lookup (expanded)
//  3. validation list normalisation
//  4. native product check, then per-line verdicts
//  5. overall verdict, seeded with "any line valid"
//  6. discount-application list
//
// ErrCouponNotApplicable is reported in the Evaluation, not returned.
func (s *Service) Evaluate(ctx context.Context, req *EvaluateRequest) (*Evaluation, error) {
	cart, err := req.toCart(s.maxCartItems)
	if err != nil {
		return nil, err
	}

	stored, err := s.loadCoupon(ctx, req)
	if err != nil {
		return nil, err
	}

	products, err := s.coupons.Products(ctx, catalogIDs(cart))
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Int64("coupon_id", int64(stored.ID())).Logger()
	host := &requestHost{cart: cart, products: products}
	coord, err := eligibility.NewCoordinator(eligibility.Deps{
		Host:    host,
		Bundles: rules.CompositeRoles{},
		Metrics: s.metrics,
		Logger:  &logger,
	})
	if err != nil {
		return nil, err
	}
	coupon := &filteredCoupon{stored: stored, coord: coord}

	coord.OnCartEvent(eligibility.EventCartLoaded)

	raw := types.NewProductIDSet(stored.ProductIDs()...)
	allowed := coupon.ProductIDs()
	allowedSet := types.NewProductIDSet(allowed...)

	lines := host.registry()
	toValidate := coord.ItemsToValidate(lines)

	eval := &Evaluation{
		CouponID:          int64(stored.ID()),
		Code:              stored.Code,
		AllowedProductIDs: toInt64s(allowed),
		Items:             make([]ItemResult, 0, len(cart)),
	}

	anyValid := false
	verdicts := make(map[types.ItemKey]eligibility.Verdict, len(cart))
	for i, line := range toValidate {
		v := coord.ItemVerdict(nativeCheck(allowedSet, line), coupon, line.Item)
		verdicts[line.Key] = v
		anyValid = anyValid || v.Valid
		eval.Items = append(eval.Items, ItemResult{
			Key:       string(line.Key),
			ProductID: int64(lines[i].Item.ProductID),
			Valid:     v.Valid,
			Reason:    string(v.Reason),
		})
	}

	valid, err := coord.ValidateCoupon(anyValid, coupon)
	switch {
	case errors.Is(err, types.ErrCouponNotApplicable):
		eval.NotApplicable = true
		eval.Message = types.ErrCouponNotApplicable.Error()
	case err != nil:
		return nil, err
	}
	eval.Valid = valid

	if valid {
		// The host's own list: lines on the stored allow-list that kept a
		// valid verdict.
		var base []types.DiscountItem
		for _, line := range lines {
			if verdicts[line.Key].Valid && (len(raw) == 0 || rules.InSet(line.Item, raw)) {
				base = append(base, line)
			}
		}
		for _, d := range coord.ItemsToApply(base, coupon) {
			eval.ApplyKeys = append(eval.ApplyKeys, string(d.Key))
		}
	}

	logger.Info().
		Bool("valid", eval.Valid).
		Bool("not_applicable", eval.NotApplicable).
		Int("items", len(cart)).
		Int("apply", len(eval.ApplyKeys)).
		Msg("coupon evaluated")

	return eval, nil
}

func (s *Service) loadCoupon(ctx context.Context, req *EvaluateRequest) (*couponstore.Coupon, error) {
	if req.CouponCode != "" {
		return s.coupons.CouponByCode(ctx, req.CouponCode)
	}
	return s.coupons.Coupon(ctx, types.CouponID(req.CouponID))
}

// nativeCheck is the host's id-based test: an empty allow-list admits every
// line, otherwise the line's product, variation or validation product must
// be listed.
func nativeCheck(allowed types.ProductIDSet, line types.DiscountItem) bool {
	if len(allowed) == 0 {
		return true
	}
	return rules.InSet(line.Item, allowed) || allowed.Has(line.Product.ID)
}

// catalogIDs lists every product the engine may resolve for cart.
func catalogIDs(cart types.Cart) types.ProductIDSet {
	ids := types.NewProductIDSet()
	for _, item := range cart {
		ids.Add(item.ProductID)
		ids.Add(item.VariationID)
		ids.Add(rules.OriginalProductID(item))
	}
	return ids
}

func toInt64s(ids []types.ProductID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
