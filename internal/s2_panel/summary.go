package s2_panel

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/ffrank/internal/contracts"
)

// ColumnStats describes one numeric panel column
type ColumnStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Summary is the inspection view of a base panel
type Summary struct {
	Rows          int                    `json:"rows"`
	Months        int                    `json:"months"`
	Assets        int                    `json:"assets"`
	FirstMonth    string                 `json:"first_month,omitempty"`
	LastMonth     string                 `json:"last_month,omitempty"`
	MinPerMonth   int                    `json:"min_rows_per_month"`
	MaxPerMonth   int                    `json:"max_rows_per_month"`
	MeanPerMonth  float64                `json:"mean_rows_per_month"`
	PositiveShare float64                `json:"positive_share"`
	Y             ColumnStats            `json:"y_excess"`
	Features      map[string]ColumnStats `json:"features"`
	Drops         *DropReport            `json:"drops,omitempty"`
	Fingerprint   string                 `json:"fingerprint"`
}

// Summarize computes row counts and column statistics of a panel
func Summarize(panel *contracts.Panel, report *DropReport) *Summary {
	s := &Summary{
		Rows:        panel.Len(),
		Assets:      len(panel.Assets()),
		Features:    make(map[string]ColumnStats, len(contracts.FeatureCols)),
		Drops:       report,
		Fingerprint: panel.Fingerprint(),
	}

	months := panel.Months()
	s.Months = len(months)
	if s.Rows == 0 {
		return s
	}
	s.FirstMonth = months[0].String()
	s.LastMonth = months[len(months)-1].String()

	// 월별 행 수
	sorted := append([]contracts.PanelRow(nil), panel.Rows...)
	contracts.SortRows(sorted)
	sizes := contracts.GroupSizes(sorted)
	perMonth := make([]float64, len(sizes))
	for i, n := range sizes {
		perMonth[i] = float64(n)
	}
	s.MinPerMonth = int(floats.Min(perMonth))
	s.MaxPerMonth = int(floats.Max(perMonth))
	s.MeanPerMonth = stat.Mean(perMonth, nil)

	// 컬럼 통계
	y := make([]float64, s.Rows)
	cols := make([][]float64, contracts.NumFactors)
	for k := range cols {
		cols[k] = make([]float64, s.Rows)
	}
	positive := 0
	for i, row := range panel.Rows {
		y[i] = row.Y
		if row.Y > 0 {
			positive++
		}
		for k, v := range row.Features {
			cols[k][i] = v
		}
	}

	s.Y = columnStats(y)
	s.PositiveShare = float64(positive) / float64(s.Rows)
	for k, name := range contracts.FeatureCols {
		s.Features[name] = columnStats(cols[k])
	}

	return s
}

func columnStats(x []float64) ColumnStats {
	mean, std := stat.MeanStdDev(x, nil)
	if len(x) < 2 {
		std = 0
	}
	return ColumnStats{
		Mean: mean,
		Std:  std,
		Min:  floats.Min(x),
		Max:  floats.Max(x),
	}
}
