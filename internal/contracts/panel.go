package contracts

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
)

// FeatureCols are the model feature names in feature order
// ⭐ SSOT: 피처 컬럼 순서는 여기서만 정의
var FeatureCols = []string{"MKT", "SMB", "HML", "RMW", "CMA"}

// BetaRecord is one rolling-window regression result
type BetaRecord struct {
	Month Month               `json:"month"`
	Asset string              `json:"asset"`
	Alpha float64             `json:"alpha"`
	Betas [NumFactors]float64 `json:"betas"`
}

// PanelRow is one (month, asset) observation of the panel
type PanelRow struct {
	Month    Month               `json:"month"`
	Asset    string              `json:"asset"`
	Features [NumFactors]float64 `json:"features"`
	Y        float64             `json:"y_excess"`
	Grade    int                 `json:"rel"`
}

// Panel is the long-format table sorted by (month, asset)
// ⭐ SSOT: S2 → S3 패널 데이터 전달
type Panel struct {
	Rows []PanelRow `json:"rows"`
}

// LabeledPanel is a panel whose grades were assigned for a specific bin count
type LabeledPanel struct {
	Bins int `json:"n_bins"`
	Panel
}

// Len returns the number of rows
func (p *Panel) Len() int {
	return len(p.Rows)
}

// Months returns the distinct months in ascending order
func (p *Panel) Months() []Month {
	months := make([]Month, 0)
	for i, row := range p.Rows {
		if i == 0 || row.Month != p.Rows[i-1].Month {
			months = append(months, row.Month)
		}
	}
	// Rows are sorted, but be safe for hand-built panels
	sort.SliceStable(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return dedupeMonths(months)
}

// LatestMonth returns the most recent month, false if the panel is empty
func (p *Panel) LatestMonth() (Month, bool) {
	months := p.Months()
	if len(months) == 0 {
		return Month{}, false
	}
	return months[len(months)-1], true
}

// HasMonth reports whether any row belongs to m
func (p *Panel) HasMonth(m Month) bool {
	for _, row := range p.Rows {
		if row.Month == m {
			return true
		}
	}
	return false
}

// RowsIn returns copies of the rows in month m sorted by asset
func (p *Panel) RowsIn(m Month) []PanelRow {
	rows := make([]PanelRow, 0)
	for _, row := range p.Rows {
		if row.Month == m {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Asset < rows[j].Asset })
	return rows
}

// RowsBefore returns copies of the rows strictly earlier than m, sorted by (month, asset)
func (p *Panel) RowsBefore(m Month) []PanelRow {
	rows := make([]PanelRow, 0)
	for _, row := range p.Rows {
		if row.Month.Before(m) {
			rows = append(rows, row)
		}
	}
	SortRows(rows)
	return rows
}

// Assets returns the distinct asset identifiers in ascending order
func (p *Panel) Assets() []string {
	seen := make(map[string]struct{})
	for _, row := range p.Rows {
		seen[row.Asset] = struct{}{}
	}
	assets := make([]string, 0, len(seen))
	for a := range seen {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	return assets
}

// Fingerprint hashes the panel content (months, assets, features, labels)
// 응답 캐시 키에 사용: 데이터가 바뀌면 키도 바뀜
func (p *Panel) Fingerprint() string {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, row := range p.Rows {
		h.Write([]byte(row.Month.String()))
		h.Write([]byte(row.Asset))
		for _, v := range row.Features {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			h.Write(buf)
		}
		binary.LittleEndian.PutUint64(buf, math.Float64bits(row.Y))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// SortRows sorts rows by (month, asset) in place
func SortRows(rows []PanelRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Month != rows[j].Month {
			return rows[i].Month.Before(rows[j].Month)
		}
		return rows[i].Asset < rows[j].Asset
	})
}

// GroupSizes returns the number of consecutive rows per month (rows must be sorted)
func GroupSizes(rows []PanelRow) []int {
	sizes := make([]int, 0)
	for i, row := range rows {
		if i == 0 || row.Month != rows[i-1].Month {
			sizes = append(sizes, 0)
		}
		sizes[len(sizes)-1]++
	}
	return sizes
}

func dedupeMonths(months []Month) []Month {
	out := months[:0]
	for i, m := range months {
		if i == 0 || m != months[i-1] {
			out = append(out, m)
		}
	}
	return out
}
