// Package couponstore loads coupons, their metadata and catalog products
// from the database.
package couponstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/solatis/couponkeeper/internal/core/db"
	"github.com/solatis/couponkeeper/internal/rules"
	"github.com/solatis/couponkeeper/internal/types"
)

// Coupon is a stored coupon. It satisfies eligibility.Coupon with the raw,
// unexpanded allow-list.
type Coupon struct {
	CouponID   types.CouponID
	Code       string
	AllowList  []types.ProductID
	Attributes map[string]any
}

// ID returns the coupon id.
func (c *Coupon) ID() types.CouponID { return c.CouponID }

// ProductIDs returns the stored allow-list.
func (c *Coupon) ProductIDs() []types.ProductID { return c.AllowList }

// Meta returns the decoded metadata value for key, or nil.
func (c *Coupon) Meta(key string) any { return c.Attributes[key] }

type couponRow struct {
	ID         int64  `db:"coupon_id"`
	Code       string `db:"code"`
	ProductIDs string `db:"product_ids"`
}

type metaRow struct {
	Key   string `db:"meta_key"`
	Value string `db:"meta_value"`
}

// Store reads and writes coupons and products through named queries.
type Store struct {
	q *db.Queries
}

// New returns a Store over q.
func New(q *db.Queries) *Store {
	return &Store{q: q}
}

// Coupon loads a coupon and its metadata by id.
func (s *Store) Coupon(ctx context.Context, id types.CouponID) (*Coupon, error) {
	return s.load(ctx, "get-coupon", int64(id))
}

// CouponByCode loads a coupon and its metadata by code.
func (s *Store) CouponByCode(ctx context.Context, code string) (*Coupon, error) {
	return s.load(ctx, "get-coupon-by-code", code)
}

func (s *Store) load(ctx context.Context, query string, arg any) (*Coupon, error) {
	var row couponRow
	if err := s.q.Get(ctx, query, &row, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("coupon %v: %w", arg, types.ErrCouponNotFound)
		}
		return nil, fmt.Errorf("failed to load coupon %v: %w", arg, err)
	}

	var meta []metaRow
	if err := s.q.Select(ctx, "list-coupon-meta", &meta, row.ID); err != nil {
		return nil, fmt.Errorf("failed to load meta for coupon %d: %w", row.ID, err)
	}

	c := &Coupon{
		CouponID:   types.CouponID(row.ID),
		Code:       row.Code,
		AllowList:  rules.CoerceProductIDs(row.ProductIDs).Sorted(),
		Attributes: make(map[string]any, len(meta)),
	}
	for _, m := range meta {
		c.Attributes[m.Key] = decodeMeta(m.Value)
	}
	return c, nil
}

// decodeMeta parses a stored JSON value. Values that are not JSON are kept
// as text; the rule store decides what to make of them.
func decodeMeta(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// Product resolves a catalog product. The bool is false when absent.
func (s *Store) Product(ctx context.Context, id types.ProductID) (types.Product, bool, error) {
	var p types.Product
	if err := s.q.Get(ctx, "get-product", &p, int64(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, false, nil
		}
		return types.Product{}, false, fmt.Errorf("failed to load product %d: %w", id, err)
	}
	return p, true, nil
}

// Products resolves every id it can. Missing ids are skipped.
func (s *Store) Products(ctx context.Context, ids types.ProductIDSet) (map[types.ProductID]types.Product, error) {
	out := make(map[types.ProductID]types.Product, len(ids))
	for _, id := range ids.Sorted() {
		p, ok, err := s.Product(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out[id] = p
		}
	}
	return out, nil
}

// SaveCoupon inserts a coupon with its metadata in one transaction. Meta
// values are stored as JSON.
func (s *Store) SaveCoupon(ctx context.Context, c *Coupon) error {
	allow, err := json.Marshal(nonNil(c.AllowList))
	if err != nil {
		return fmt.Errorf("failed to encode allow-list: %w", err)
	}

	return s.q.Tx(ctx, func(tx *db.TxQueries) error {
		if _, err := tx.Exec(ctx, "insert-coupon", int64(c.CouponID), c.Code, string(allow)); err != nil {
			return fmt.Errorf("failed to insert coupon %d: %w", c.CouponID, err)
		}
		for key, value := range c.Attributes {
			encoded, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("failed to encode meta %q: %w", key, err)
			}
			if _, err := tx.Exec(ctx, "upsert-coupon-meta", int64(c.CouponID), key, string(encoded)); err != nil {
				return fmt.Errorf("failed to store meta %q: %w", key, err)
			}
		}
		return nil
	})
}

// SaveProduct inserts or updates a catalog product.
func (s *Store) SaveProduct(ctx context.Context, p types.Product) error {
	if _, err := s.q.Exec(ctx, "upsert-product", int64(p.ID), int64(p.ParentID), p.Name); err != nil {
		return fmt.Errorf("failed to store product %d: %w", p.ID, err)
	}
	return nil
}

func nonNil(ids []types.ProductID) []types.ProductID {
	if ids == nil {
		return []types.ProductID{}
	}
	return ids
}
