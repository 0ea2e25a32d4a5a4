package contracts

// RankedAsset is one scored asset in a Top-K result
type RankedAsset struct {
	Asset string  `json:"ticker"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"` // 1-based ranking
}

// TopKResult is the response of a Top-K query
// ⭐ SSOT: 랭킹 결과 전달 (selection → API/CLI)
type TopKResult struct {
	AsOfMonth   Month         `json:"as_of_month"`
	K           int           `json:"k"`
	Bins        int           `json:"n_bins"`
	FeatureCols []string      `json:"feature_cols"`
	TopK        []RankedAsset `json:"topk"`
}

// IsTopRanked checks if the asset is in top N ranks
func (r *RankedAsset) IsTopRanked(n int) bool {
	return r.Rank <= n && r.Rank > 0
}

// Assets returns the ranked asset identifiers in order
func (r *TopKResult) Assets() []string {
	assets := make([]string, len(r.TopK))
	for i, item := range r.TopK {
		assets[i] = item.Asset
	}
	return assets
}
