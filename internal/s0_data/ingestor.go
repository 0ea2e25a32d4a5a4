package s0_data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/ffrank/internal/contracts"
	"github.com/wonny/ffrank/internal/s0_data/quality"
	"github.com/wonny/ffrank/pkg/logger"
)

// Ingest errors
var (
	ErrNoDailyFactors = errors.New("no daily factor rows")
	ErrNoOverlap      = errors.New("factor and market data share no month")
)

// IngestReport describes one raw data load
type IngestReport struct {
	DailyRows     int               `json:"daily_rows"`
	FactorMonths  int               `json:"factor_months"`
	MarketMonths  int               `json:"market_months"`
	Assets        int               `json:"assets"`
	AlignedMonths int               `json:"aligned_months"`
	FirstMonth    string            `json:"first_month,omitempty"`
	LastMonth     string            `json:"last_month,omitempty"`
	Quality       *quality.Snapshot `json:"quality"`
	Duration      time.Duration     `json:"duration"`
}

// DataIngestor loads the raw inputs and aligns them by month
// ⭐ SSOT: S0 원천 데이터 → 월 정렬 데이터
type DataIngestor struct {
	source contracts.RawDataSource
	gate   *quality.QualityGate
	logger *logger.Logger
}

// NewDataIngestor creates a new ingestor over a raw source
func NewDataIngestor(source contracts.RawDataSource, log *logger.Logger) *DataIngestor {
	return &DataIngestor{
		source: source,
		gate:   quality.NewQualityGate(quality.DefaultConfig()),
		logger: log,
	}
}

// Load reads both tables, compounds factors to months and inner-joins on month
func (d *DataIngestor) Load(ctx context.Context) (*contracts.AlignedData, *IngestReport, error) {
	start := time.Now()
	report := &IngestReport{}

	// 1. 일별 팩터
	daily, err := d.source.LoadDailyFactors(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load daily factors: %w", err)
	}
	if len(daily) == 0 {
		return nil, nil, ErrNoDailyFactors
	}
	report.DailyRows = len(daily)

	// 2. 월별 복리 집계
	factors := AggregateMonthly(daily)
	report.FactorMonths = len(factors)

	// 3. 월별 자산 수익률
	table, err := d.source.LoadMonthlyReturns(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load monthly returns: %w", err)
	}
	report.MarketMonths = table.NumMonths()
	report.Assets = len(table.Assets)

	// 4. 월 기준 inner join
	aligned := Align(factors, table)
	report.AlignedMonths = len(aligned.Factors)
	if report.AlignedMonths == 0 {
		return nil, nil, ErrNoOverlap
	}
	report.FirstMonth = aligned.Factors[0].Month.String()
	report.LastMonth = aligned.Factors[len(aligned.Factors)-1].Month.String()

	// 5. 품질 스냅샷
	report.Quality = d.gate.Check(aligned)
	report.Duration = time.Since(start)

	d.logger.WithFields(map[string]interface{}{
		"daily_rows":     report.DailyRows,
		"factor_months":  report.FactorMonths,
		"market_months":  report.MarketMonths,
		"aligned_months": report.AlignedMonths,
		"assets":         report.Assets,
		"first_month":    report.FirstMonth,
		"last_month":     report.LastMonth,
		"quality_score":  report.Quality.QualityScore,
		"sparse_assets":  len(report.Quality.SparseAssets),
		"duration":       report.Duration.String(),
	}).Info("Raw data aligned")

	if !report.Quality.Passed {
		d.logger.WithField("quality_score", report.Quality.QualityScore).Warn("Raw data below quality thresholds")
	}

	return aligned, report, nil
}
