package s1_exposure

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/wonny/ffrank/internal/contracts"
)

// Config holds the rolling-window parameters
type Config struct {
	Window int // 36
	MinObs int // 24
}

// DefaultConfig returns the default rolling-window parameters
func DefaultConfig() Config {
	return Config{Window: 36, MinObs: 24}
}

// Validate checks the window parameters
func (c Config) Validate() error {
	if c.Window < 1 {
		return fmt.Errorf("window must be >= 1, got %d", c.Window)
	}
	if c.MinObs < 1 || c.MinObs > c.Window {
		return fmt.Errorf("min_obs must be in [1, window=%d], got %d", c.Window, c.MinObs)
	}
	return nil
}

// Estimator computes rolling five-factor exposures per asset
// ⭐ SSOT: S1 롤링 팩터 노출도 추정
type Estimator struct {
	config  Config
	workers int
}

// NewEstimator creates a new Estimator
func NewEstimator(config Config) (*Estimator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("exposure config: %w", err)
	}
	return &Estimator{
		config:  config,
		workers: runtime.GOMAXPROCS(0),
	}, nil
}

// Config returns the estimator parameters
func (e *Estimator) Config() Config {
	return e.config
}

// WithWorkers limits the number of assets estimated concurrently
func (e *Estimator) WithWorkers(n int) *Estimator {
	if n < 1 {
		n = 1
	}
	e.workers = n
	return e
}

// EstimateAsset runs the rolling regression for one asset
//
// For each index i >= window the trailing rows [i-window, i) are used, keeping
// only rows where y and all five factors are finite. When at least min_obs rows
// remain, y is regressed on an intercept plus the five factors and the record is
// dated at months[i]. Series of at most window months produce nothing.
func (e *Estimator) EstimateAsset(asset string, months []contracts.Month, y []float64, factors [][contracts.NumFactors]float64) []contracts.BetaRecord {
	window, minObs := e.config.Window, e.config.MinObs
	n := len(months)
	if len(y) != n || len(factors) != n || n <= window {
		return nil
	}

	const cols = contracts.NumFactors + 1
	records := make([]contracts.BetaRecord, 0, n-window)

	design := make([]float64, 0, window*cols)
	target := make([]float64, 0, window)

	for i := window; i < n; i++ {
		design = design[:0]
		target = target[:0]

		for t := i - window; t < i; t++ {
			if !finiteRow(y[t], factors[t]) {
				continue
			}
			design = append(design, 1)
			design = append(design, factors[t][:]...)
			target = append(target, y[t])
		}

		obs := len(target)
		if obs < minObs {
			continue
		}

		coef := LeastSquares(mat.NewDense(obs, cols, design), target)

		rec := contracts.BetaRecord{
			Month: months[i],
			Asset: asset,
			Alpha: coef[0],
		}
		copy(rec.Betas[:], coef[1:])
		records = append(records, rec)
	}

	return records
}

// EstimateAll estimates every asset of the aligned data against excess returns
// Assets are processed concurrently; output order is asset column order, then month.
func (e *Estimator) EstimateAll(ctx context.Context, months []contracts.Month, factors [][contracts.NumFactors]float64, assets []string, excess [][]float64) ([]contracts.BetaRecord, error) {
	results := make([][]contracts.BetaRecord, len(assets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for j := range assets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[j] = e.EstimateAsset(assets[j], months, excess[j], factors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("estimate exposures: %w", err)
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	records := make([]contracts.BetaRecord, 0, total)
	for _, r := range results {
		records = append(records, r...)
	}
	return records, nil
}

func finiteRow(y float64, x [contracts.NumFactors]float64) bool {
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return false
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
