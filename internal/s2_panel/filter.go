package s2_panel

import (
	"math"
	"sort"

	"github.com/wonny/ffrank/internal/contracts"
)

// DropReason names why a candidate row left the panel
type DropReason string

const (
	DropNonFiniteFeature DropReason = "non_finite_feature"
	DropMissingLabel     DropReason = "missing_label"
	DropInfiniteLabel    DropReason = "infinite_label"
	DropDuplicateKey     DropReason = "duplicate_key"
)

// FilterStage keeps or drops one candidate row
// The first stage that rejects a row is charged with the drop.
type FilterStage struct {
	Reason DropReason
	Keep   func(row *contracts.PanelRow) bool
}

// DropReport counts excluded rows per reason
type DropReport struct {
	Candidates            int                `json:"candidates"`
	Kept                  int                `json:"kept"`
	Dropped               map[DropReason]int `json:"dropped"`
	AssetsWithoutExposure []string           `json:"assets_without_exposure,omitempty"`
}

// NewDropReport creates an empty report
func NewDropReport() *DropReport {
	return &DropReport{Dropped: make(map[DropReason]int)}
}

// Total returns the number of dropped rows
func (r *DropReport) Total() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// Fields flattens the report for structured logging
func (r *DropReport) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"candidates":              r.Candidates,
		"kept":                    r.Kept,
		"dropped":                 r.Total(),
		"assets_without_exposure": len(r.AssetsWithoutExposure),
	}
	for reason, n := range r.Dropped {
		fields["drop_"+string(reason)] = n
	}
	return fields
}

// DefaultStages returns the panel filters in evaluation order
// A fresh slice is required per build because the duplicate filter is stateful.
func DefaultStages() []FilterStage {
	return []FilterStage{
		{Reason: DropNonFiniteFeature, Keep: finiteFeatures},
		{Reason: DropMissingLabel, Keep: func(row *contracts.PanelRow) bool { return !math.IsNaN(row.Y) }},
		{Reason: DropInfiniteLabel, Keep: func(row *contracts.PanelRow) bool { return !math.IsInf(row.Y, 0) }},
		uniqueKeyStage(),
	}
}

// ApplyStages filters rows and records drops in report
func ApplyStages(rows []contracts.PanelRow, stages []FilterStage, report *DropReport) []contracts.PanelRow {
	report.Candidates += len(rows)
	kept := make([]contracts.PanelRow, 0, len(rows))

	for i := range rows {
		row := &rows[i]
		rejected := false
		for _, stage := range stages {
			if !stage.Keep(row) {
				report.Dropped[stage.Reason]++
				rejected = true
				break
			}
		}
		if !rejected {
			kept = append(kept, *row)
		}
	}

	report.Kept += len(kept)
	return kept
}

func finiteFeatures(row *contracts.PanelRow) bool {
	for _, v := range row.Features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type panelKey struct {
	month contracts.Month
	asset string
}

// uniqueKeyStage keeps the first row seen per (month, asset)
func uniqueKeyStage() FilterStage {
	seen := make(map[panelKey]struct{})
	return FilterStage{
		Reason: DropDuplicateKey,
		Keep: func(row *contracts.PanelRow) bool {
			key := panelKey{month: row.Month, asset: row.Asset}
			if _, dup := seen[key]; dup {
				return false
			}
			seen[key] = struct{}{}
			return true
		},
	}
}

// SortedReasons returns report reasons in a stable order
func SortedReasons(dropped map[DropReason]int) []DropReason {
	reasons := make([]DropReason, 0, len(dropped))
	for r := range dropped {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	return reasons
}
