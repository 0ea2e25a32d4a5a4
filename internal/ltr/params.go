package ltr

import "fmt"

// Params holds the gradient-boosting hyperparameters
type Params struct {
	NEstimators     int
	MaxDepth        int
	LearningRate    float64
	Subsample       float64
	ColsampleByTree float64
	RegLambda       float64
	MinChildWeight  float64
	MaxBin          int
	Seed            uint64
	PairsPerSample  int
}

// DefaultParams returns the production hyperparameters
func DefaultParams() Params {
	return Params{
		NEstimators:     120,
		MaxDepth:        3,
		LearningRate:    0.05,
		Subsample:       0.8,
		ColsampleByTree: 0.8,
		RegLambda:       1.0,
		MinChildWeight:  1.0,
		MaxBin:          256,
		Seed:            42,
		PairsPerSample:  1,
	}
}

// Validate checks hyperparameter ranges
func (p Params) Validate() error {
	switch {
	case p.NEstimators < 1:
		return fmt.Errorf("n_estimators must be >= 1, got %d", p.NEstimators)
	case p.MaxDepth < 1 || p.MaxDepth > 16:
		return fmt.Errorf("max_depth must be in [1, 16], got %d", p.MaxDepth)
	case p.LearningRate <= 0 || p.LearningRate > 1:
		return fmt.Errorf("learning_rate must be in (0, 1], got %v", p.LearningRate)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1], got %v", p.Subsample)
	case p.ColsampleByTree <= 0 || p.ColsampleByTree > 1:
		return fmt.Errorf("colsample_bytree must be in (0, 1], got %v", p.ColsampleByTree)
	case p.RegLambda < 0:
		return fmt.Errorf("reg_lambda must be >= 0, got %v", p.RegLambda)
	case p.MinChildWeight < 0:
		return fmt.Errorf("min_child_weight must be >= 0, got %v", p.MinChildWeight)
	case p.MaxBin < 2:
		return fmt.Errorf("max_bin must be >= 2, got %d", p.MaxBin)
	case p.PairsPerSample < 1:
		return fmt.Errorf("pairs_per_sample must be >= 1, got %d", p.PairsPerSample)
	}
	return nil
}
