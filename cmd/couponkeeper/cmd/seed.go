package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/couponkeeper/internal/core/couponstore"
	"github.com/solatis/couponkeeper/internal/core/db"
	"github.com/solatis/couponkeeper/internal/types"
)

// seedFile is the fixture format accepted by the seed command.
type seedFile struct {
	Products []types.Product `json:"products"`
	Coupons  []struct {
		ID         int64          `json:"id"`
		Code       string         `json:"code"`
		ProductIDs []int64        `json:"product_ids"`
		Meta       map[string]any `json:"meta"`
	} `json:"coupons"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <fixtures.json>",
	Short: "Load products and coupons from a fixture file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read fixtures: %w", err)
		}
		var fixtures seedFile
		if err := json.Unmarshal(raw, &fixtures); err != nil {
			return fmt.Errorf("failed to decode fixtures: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer database.Close()

		queries, err := db.LoadQueries(database)
		if err != nil {
			return fmt.Errorf("failed to load queries: %w", err)
		}
		store := couponstore.New(queries)

		for _, p := range fixtures.Products {
			if err := store.SaveProduct(ctx, p); err != nil {
				return err
			}
		}
		for _, c := range fixtures.Coupons {
			allow := make([]types.ProductID, len(c.ProductIDs))
			for i, id := range c.ProductIDs {
				allow[i] = types.ProductID(id)
			}
			err := store.SaveCoupon(ctx, &couponstore.Coupon{
				CouponID:   types.CouponID(c.ID),
				Code:       c.Code,
				AllowList:  allow,
				Attributes: c.Meta,
			})
			if err != nil {
				return err
			}
		}

		logger.Info().
			Int("products", len(fixtures.Products)).
			Int("coupons", len(fixtures.Coupons)).
			Msg("fixtures loaded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
