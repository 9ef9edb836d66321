package service

// FeatureColumns is the single ordered enumeration of snapshot feature
// columns. Tiers are prefixes of this list: Tier 1 is the first 8 columns,
// Tier 2 the first 16, Tier 3 all 20. A consumer requesting a tier receives
// exactly that named list, in this order.
var FeatureColumns = []string{
	// Tier 1
	"news_score",
	"sentiment_score",
	"news_count",
	"prev_change_pct",
	"price_change_5d",
	"ma5_ratio",
	"volatility_5d",
	"market_return",
	// Tier 2 adds
	"news_count_3d",
	"avg_score_3d",
	"disclosure_ratio",
	"sentiment_trend",
	"ma20_ratio",
	"rsi_14",
	"vix_change",
	"fx_change",
	// Tier 3 adds
	"cross_theme_score",
	"bb_position",
	"prev_close",
	"peer_disclosure",
}

var tierSizes = map[int]int{1: 8, 2: 16, 3: 20}

// Minimum snapshot counts required before a model of each tier may train.
var tierMinSamples = map[int]int64{1: 200, 2: 500, 3: 1000}

// TierFeatures returns the ordered feature list of a tier.
func TierFeatures(tier int) ([]string, error) {
	size, ok := tierSizes[tier]
	if !ok {
		return nil, ErrInvalidTier
	}
	features := make([]string, size)
	copy(features, FeatureColumns[:size])
	return features, nil
}

// TierMinSamples returns the sample-size gate of a tier.
func TierMinSamples(tier int) (int64, error) {
	min, ok := tierMinSamples[tier]
	if !ok {
		return 0, ErrInvalidTier
	}
	return min, nil
}
