package ltr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/wonny/ffrank/internal/contracts"
)

// Training input errors
var (
	ErrEmptyTrainingSet = errors.New("empty training set")
	ErrGroupMismatch    = errors.New("group sizes do not cover the training rows")
)

// BaseScore is the initial prediction of every row
const BaseScore = 0.5

// hessianFloor keeps pair hessians strictly positive
const hessianFloor = 1e-16

// Trainer fits pairwise learning-to-rank boosted trees
// implements contracts.ModelTrainer
// ⭐ SSOT: 랭킹 모델 학습은 여기서만
type Trainer struct {
	params Params
}

// NewTrainer creates a Trainer with validated hyperparameters
func NewTrainer(params Params) (*Trainer, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("trainer params: %w", err)
	}
	return &Trainer{params: params}, nil
}

// Params returns the trainer hyperparameters
func (t *Trainer) Params() Params {
	return t.params
}

// Train implements contracts.ModelTrainer
// The context is only checked before training starts; a fit runs to completion.
// Training is single-threaded and seeded, so equal inputs give equal models.
func (t *Trainer) Train(ctx context.Context, set *contracts.TrainingSet) (contracts.RankModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if set == nil || len(set.Rows) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	offsets, err := groupOffsets(set.Groups, len(set.Rows))
	if err != nil {
		return nil, err
	}

	p := t.params
	n := len(set.Rows)
	nf := contracts.NumFactors

	// 1. 피처 히스토그램 구간화
	bins := make([]featureBins, nf)
	binned := make([][]int32, nf)
	col := make([]float64, n)
	for f := 0; f < nf; f++ {
		for i, row := range set.Rows {
			col[i] = row.Features[f]
		}
		bins[f] = buildBins(col, p.MaxBin)
		binned[f] = make([]int32, n)
		for i, v := range col {
			binned[f][i] = int32(bins[f].bin(v))
		}
	}

	// 2. 그룹별 라벨 정렬 인덱스 (쌍 샘플링용)
	sampler := newPairSampler(set.Rows, offsets)

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = BaseScore
	}

	g := &grower{
		params: p,
		bins:   bins,
		binned: binned,
		grad:   make([]float64, n),
		hess:   make([]float64, n),
	}
	featuresPerTree := max(1, int(math.Floor(p.ColsampleByTree*float64(nf))))

	model := &Model{
		baseScore: BaseScore,
		trees:     make([]*tree, 0, p.NEstimators),
		rows:      n,
		groups:    len(set.Groups),
	}

	for round := 0; round < p.NEstimators; round++ {
		// 3. 쌍별 그래디언트
		sampler.gradients(scores, g.grad, g.hess, p.PairsPerSample, rng)

		// 4. 행/열 샘플링
		rows := sampleRows(n, p.Subsample, rng)
		g.features = sampleFeatures(nf, featuresPerTree, rng)

		// 5. 트리 성장 + 점수 갱신
		tr := g.build(rows)
		for i, row := range set.Rows {
			scores[i] += tr.predict(row.Features)
		}
		model.trees = append(model.trees, tr)
	}

	return model, nil
}

// groupOffsets converts group sizes into start offsets (last entry = total)
func groupOffsets(groups []int, total int) ([]int, error) {
	offsets := make([]int, 0, len(groups)+1)
	pos := 0
	for _, size := range groups {
		if size <= 0 {
			return nil, fmt.Errorf("%w: non-positive group size %d", ErrGroupMismatch, size)
		}
		offsets = append(offsets, pos)
		pos += size
	}
	if pos != total {
		return nil, fmt.Errorf("%w: groups sum to %d, rows %d", ErrGroupMismatch, pos, total)
	}
	return append(offsets, pos), nil
}

// sampleRows draws a Bernoulli row subsample (never empty)
func sampleRows(n int, rate float64, rng *rand.Rand) []int {
	rows := make([]int, 0, n)
	if rate >= 1 {
		for i := 0; i < n; i++ {
			rows = append(rows, i)
		}
		return rows
	}
	for i := 0; i < n; i++ {
		if rng.Float64() < rate {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, rng.IntN(n))
	}
	return rows
}

// sampleFeatures picks k distinct features in ascending order
func sampleFeatures(nf, k int, rng *rand.Rand) []int {
	if k >= nf {
		all := make([]int, nf)
		for i := range all {
			all[i] = i
		}
		return all
	}
	chosen := rng.Perm(nf)[:k]
	sort.Ints(chosen)
	return chosen
}

// pairSampler draws, per row, partners with a different grade in the same group
type pairSampler struct {
	labels  []int
	offsets []int
	byLabel [][]int // per group: row indices sorted by label
	runs    [][]labelRun
}

// labelRun is the [start, end) span of one label inside byLabel[group]
type labelRun struct {
	label      int
	start, end int
}

func newPairSampler(rows []contracts.PanelRow, offsets []int) *pairSampler {
	s := &pairSampler{
		labels:  make([]int, len(rows)),
		offsets: offsets,
	}
	for i, row := range rows {
		s.labels[i] = row.Grade
	}

	groups := len(offsets) - 1
	s.byLabel = make([][]int, groups)
	s.runs = make([][]labelRun, groups)
	for gi := 0; gi < groups; gi++ {
		idx := make([]int, 0, offsets[gi+1]-offsets[gi])
		for i := offsets[gi]; i < offsets[gi+1]; i++ {
			idx = append(idx, i)
		}
		sort.SliceStable(idx, func(a, b int) bool { return s.labels[idx[a]] < s.labels[idx[b]] })
		s.byLabel[gi] = idx

		runs := make([]labelRun, 0)
		for k, i := range idx {
			if k == 0 || s.labels[i] != runs[len(runs)-1].label {
				runs = append(runs, labelRun{label: s.labels[i], start: k})
			}
			runs[len(runs)-1].end = k + 1
		}
		s.runs[gi] = runs
	}
	return s
}

// gradients fills grad/hess with RankNet pair gradients for the current scores
//
//	p = sigmoid(s_hi - s_lo); g_hi += p-1; g_lo += 1-p; h_hi, h_lo += max(p(1-p), floor)
func (s *pairSampler) gradients(scores, grad, hess []float64, pairsPerSample int, rng *rand.Rand) {
	for i := range grad {
		grad[i] = 0
		hess[i] = 0
	}

	for gi, idx := range s.byLabel {
		runs := s.runs[gi]
		if len(runs) < 2 {
			continue
		}
		for _, r := range runs {
			others := len(idx) - (r.end - r.start)
			for _, i := range idx[r.start:r.end] {
				for k := 0; k < pairsPerSample; k++ {
					pick := rng.IntN(others)
					if pick >= r.start {
						pick += r.end - r.start
					}
					j := idx[pick]

					hi, lo := i, j
					if s.labels[j] > s.labels[i] {
						hi, lo = j, i
					}
					p := sigmoid(scores[hi] - scores[lo])
					h := math.Max(p*(1-p), hessianFloor)
					grad[hi] += p - 1
					grad[lo] += 1 - p
					hess[hi] += h
					hess[lo] += h
				}
			}
		}
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
