package ltr

import (
	"github.com/wonny/ffrank/internal/contracts"
)

// ModelName identifies models produced by this package
const ModelName = "pairwise-gbdt"

// Model is a trained boosted-tree ranker
// implements contracts.RankModel; immutable and safe for concurrent use
type Model struct {
	baseScore float64
	trees     []*tree
	rows      int
	groups    int
}

// Name implements contracts.RankModel
func (m *Model) Name() string {
	return ModelName
}

// Score implements contracts.RankModel
func (m *Model) Score(features [contracts.NumFactors]float64) float64 {
	score := m.baseScore
	for _, t := range m.trees {
		score += t.predict(features)
	}
	return score
}

// Predict scores each row in order
func (m *Model) Predict(rows []contracts.PanelRow) []float64 {
	scores := make([]float64, len(rows))
	for i, row := range rows {
		scores[i] = m.Score(row.Features)
	}
	return scores
}

// NumTrees returns the number of boosting rounds
func (m *Model) NumTrees() int {
	return len(m.trees)
}

// TrainedOn returns the training row and group counts
func (m *Model) TrainedOn() (rows, groups int) {
	return m.rows, m.groups
}

// FeatureImportance counts splits per feature name
func (m *Model) FeatureImportance() map[string]int {
	counts := make([]int, contracts.NumFactors)
	for _, t := range m.trees {
		t.splits(counts)
	}
	out := make(map[string]int, len(counts))
	for f, name := range contracts.FeatureCols {
		out[name] = counts[f]
	}
	return out
}
