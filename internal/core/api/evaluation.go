package api

// Evaluation is the outcome of one coupon evaluation.
type Evaluation struct {
	CouponID          int64        `json:"coupon_id"`
	Code              string       `json:"code"`
	AllowedProductIDs []int64      `json:"allowed_product_ids"`
	Valid             bool         `json:"valid"`
	NotApplicable     bool         `json:"not_applicable"`
	Message           string       `json:"message,omitempty"`
	Items             []ItemResult `json:"items"`
	ApplyKeys         []string     `json:"apply_keys"`
}

// ItemResult is the verdict for one cart line. Reason names the policy that
// decided it (host, customized, bundle-child, bundle-standalone,
// composite-parent).
type ItemResult struct {
	Key       string `json:"key"`
	ProductID int64  `json:"product_id"`
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason"`
}
