package quality

import (
	"math"
	"sort"

	"github.com/wonny/ffrank/internal/contracts"
)

// QualityGate summarizes coverage of the aligned raw data
type QualityGate struct {
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MinAssetCoverage  float64 `yaml:"min_asset_coverage"`  // 0.5: 이하 자산은 sparse 로 보고
	MinFactorCoverage float64 `yaml:"min_factor_coverage"` // 1.0
}

// DefaultConfig returns the thresholds used at startup
func DefaultConfig() Config {
	return Config{
		MinAssetCoverage:  0.5,
		MinFactorCoverage: 1.0,
	}
}

// Snapshot is the coverage report of one aligned dataset
type Snapshot struct {
	Months            int                `json:"months"`
	Assets            int                `json:"assets"`
	FactorCoverage    float64            `json:"factor_coverage"`
	AssetCoverage     map[string]float64 `json:"-"`
	MeanAssetCoverage float64            `json:"mean_asset_coverage"`
	SparseAssets      []string           `json:"sparse_assets,omitempty"`
	QualityScore      float64            `json:"quality_score"`
	Passed            bool               `json:"passed"`
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check computes coverage for the aligned factors and asset returns
// ⭐ SSOT: S0 → S2 품질 검증
func (g *QualityGate) Check(data *contracts.AlignedData) *Snapshot {
	snapshot := &Snapshot{
		Months:        len(data.Factors),
		AssetCoverage: make(map[string]float64),
	}
	if data.Assets != nil {
		snapshot.Assets = len(data.Assets.Assets)
	}
	if snapshot.Months == 0 {
		return snapshot
	}

	// 1. 팩터 커버리지: 5개 팩터 + RF 모두 유한한 월 비율
	complete := 0
	for _, f := range data.Factors {
		if allFinite(f.MktRF, f.SMB, f.HML, f.RMW, f.CMA, f.RF) {
			complete++
		}
	}
	snapshot.FactorCoverage = float64(complete) / float64(snapshot.Months)

	// 2. 자산별 커버리지
	total := 0.0
	for j, asset := range data.Assets.Assets {
		finite := 0
		for i := range data.Assets.Months {
			if allFinite(data.Assets.Returns[i][j]) {
				finite++
			}
		}
		cov := float64(finite) / float64(snapshot.Months)
		snapshot.AssetCoverage[asset] = cov
		total += cov
		if cov < g.config.MinAssetCoverage {
			snapshot.SparseAssets = append(snapshot.SparseAssets, asset)
		}
	}
	sort.Strings(snapshot.SparseAssets)
	if snapshot.Assets > 0 {
		snapshot.MeanAssetCoverage = total / float64(snapshot.Assets)
	}

	// 3. 품질 점수 계산
	snapshot.QualityScore = g.calculateScore(snapshot)
	snapshot.Passed = snapshot.FactorCoverage >= g.config.MinFactorCoverage && len(snapshot.SparseAssets) < snapshot.Assets

	return snapshot
}

// calculateScore weights factor completeness and asset coverage equally
func (g *QualityGate) calculateScore(s *Snapshot) float64 {
	return 0.5*s.FactorCoverage + 0.5*s.MeanAssetCoverage
}

func allFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
