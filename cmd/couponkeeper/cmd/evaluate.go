package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/couponkeeper/internal/core/api"
	"github.com/solatis/couponkeeper/internal/core/couponstore"
	"github.com/solatis/couponkeeper/internal/core/db"
	"github.com/solatis/couponkeeper/internal/eligibility"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <request.json>",
	Short: "Evaluate a stored coupon against a cart file and print the report",
	Long: `Reads an evaluation request ({"coupon_id": ..., "cart": [...]}) from a file,
or stdin when the path is "-", and prints the evaluation as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().Int64("coupon-id", 0, "override the request's coupon_id")
	evaluateCmd.Flags().String("coupon-code", "", "override the request's coupon_code")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := readRequest(args[0])
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("coupon-id") {
		req.CouponID, _ = cmd.Flags().GetInt64("coupon-id")
		req.CouponCode = ""
	}
	if cmd.Flags().Changed("coupon-code") {
		req.CouponCode, _ = cmd.Flags().GetString("coupon-code")
		req.CouponID = 0
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
	service, err := api.NewService(couponstore.New(queries), eligibility.NewMetrics(nil), cfg.MaxCartItems)
	if err != nil {
		return err
	}

	eval, err := service.Evaluate(logger.WithContext(ctx), req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(eval)
}

func readRequest(path string) (*api.EvaluateRequest, error) {
	in := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open request: %w", err)
		}
		defer f.Close()
		in = f
	}

	var req api.EvaluateRequest
	dec := json.NewDecoder(in)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	return &req, nil
}
