package s2_panel

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/ffrank/internal/contracts"
	"github.com/wonny/ffrank/internal/s1_exposure"
	"github.com/wonny/ffrank/pkg/logger"
)

// Builder assembles the (month, asset) panel from aligned raw data
type Builder struct {
	estimator *s1_exposure.Estimator
	stages    func() []FilterStage
	logger    *logger.Logger
}

// NewBuilder creates a new panel Builder
func NewBuilder(estimator *s1_exposure.Estimator, log *logger.Logger) *Builder {
	return &Builder{
		estimator: estimator,
		stages:    DefaultStages,
		logger:    log,
	}
}

// Build produces the base panel sorted by (month, asset)
// ⭐ SSOT: S1 노출도 + 초과수익률 → S2 패널
func (b *Builder) Build(ctx context.Context, data *contracts.AlignedData) (*contracts.Panel, *DropReport, error) {
	start := time.Now()

	if data == nil || data.Assets == nil || len(data.Factors) == 0 {
		return nil, nil, fmt.Errorf("build panel: no aligned data")
	}
	table := data.Assets
	if table.NumMonths() != len(data.Factors) {
		return nil, nil, fmt.Errorf("build panel: %d factor months vs %d return months", len(data.Factors), table.NumMonths())
	}

	// 1. 초과수익률 = raw - RF
	months := make([]contracts.Month, len(data.Factors))
	factors := make([][contracts.NumFactors]float64, len(data.Factors))
	for i, f := range data.Factors {
		months[i] = f.Month
		factors[i] = f.Factors()
	}
	excess := ExcessReturns(data)

	// 2. 자산별 롤링 노출도
	records, err := b.estimator.EstimateAll(ctx, months, factors, table.Assets, excess)
	if err != nil {
		return nil, nil, err
	}

	// 3. 노출도 기준 left-merge 로 y 부착
	monthIdx := make(map[contracts.Month]int, len(months))
	for i, m := range months {
		monthIdx[m] = i
	}
	assetIdx := make(map[string]int, len(table.Assets))
	for j, a := range table.Assets {
		assetIdx[a] = j
	}

	candidates := make([]contracts.PanelRow, 0, len(records))
	withExposure := make(map[string]bool, len(table.Assets))
	for _, rec := range records {
		withExposure[rec.Asset] = true
		candidates = append(candidates, contracts.PanelRow{
			Month:    rec.Month,
			Asset:    rec.Asset,
			Features: rec.Betas,
			Y:        excess[assetIdx[rec.Asset]][monthIdx[rec.Month]],
		})
	}

	// 4. 필터 + 정렬
	report := NewDropReport()
	for _, a := range table.Assets {
		if !withExposure[a] {
			report.AssetsWithoutExposure = append(report.AssetsWithoutExposure, a)
		}
	}
	sort.Strings(report.AssetsWithoutExposure)

	rows := ApplyStages(candidates, b.stages(), report)
	contracts.SortRows(rows)
	panel := &contracts.Panel{Rows: rows}

	fields := report.Fields()
	fields["months"] = len(panel.Months())
	fields["duration"] = time.Since(start).String()
	b.logger.WithFields(fields).Info("Panel built")

	return panel, report, nil
}

// ExcessReturns returns per-asset excess return series (asset-major)
func ExcessReturns(data *contracts.AlignedData) [][]float64 {
	table := data.Assets
	excess := make([][]float64, len(table.Assets))
	for j := range table.Assets {
		col := make([]float64, len(data.Factors))
		for i, f := range data.Factors {
			col[i] = table.Returns[i][j] - f.RF
		}
		excess[j] = col
	}
	return excess
}
