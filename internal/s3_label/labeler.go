package s3_label

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/ffrank/internal/contracts"
)

// MinBins is the smallest supported number of relevance grades
const MinBins = 3

// Grade maps a 1-based ascending rank among n positive rows to a grade in [1, bins-1]
//
//	pct   = rank / n
//	grade = 1 + clip(floor(pct·(bins-1)), 0, bins-2)
func Grade(rank, n, bins int) int {
	pct := float64(rank) / float64(n)
	g := int(math.Floor(pct * float64(bins-1)))
	if g < 0 {
		g = 0
	}
	if g > bins-2 {
		g = bins - 2
	}
	return 1 + g
}

// Label assigns within-month relevance grades for the given bin count
// ⭐ SSOT: S2 패널 → S3 라벨 패널 (입력 패널은 변경하지 않음)
//
// Rows with y <= 0 get grade 0. Positive rows are ranked by y ascending per
// month; ties keep panel row order, the earlier row taking the lower rank.
func Label(panel *contracts.Panel, bins int) (*contracts.LabeledPanel, error) {
	if bins < MinBins {
		return nil, fmt.Errorf("label panel with %d bins: %w", bins, contracts.ErrInvalidBins)
	}

	rows := make([]contracts.PanelRow, len(panel.Rows))
	copy(rows, panel.Rows)

	// 월별 양수 행 인덱스 (행 순서 유지)
	positives := make(map[contracts.Month][]int)
	order := make([]contracts.Month, 0)
	for i := range rows {
		rows[i].Grade = 0
		if rows[i].Y > 0 {
			m := rows[i].Month
			if _, ok := positives[m]; !ok {
				order = append(order, m)
			}
			positives[m] = append(positives[m], i)
		}
	}

	for _, m := range order {
		idx := positives[m]
		sort.SliceStable(idx, func(a, b int) bool { return rows[idx[a]].Y < rows[idx[b]].Y })
		for rank, i := range idx {
			rows[i].Grade = Grade(rank+1, len(idx), bins)
		}
	}

	return &contracts.LabeledPanel{
		Bins:  bins,
		Panel: contracts.Panel{Rows: rows},
	}, nil
}

// Distribution counts rows per grade (index = grade)
func Distribution(panel *contracts.LabeledPanel) []int {
	counts := make([]int, panel.Bins)
	for _, row := range panel.Rows {
		if row.Grade >= 0 && row.Grade < len(counts) {
			counts[row.Grade]++
		}
	}
	return counts
}
