package rankconfig

import (
	"github.com/wonny/ffrank/internal/ltr"
	"github.com/wonny/ffrank/internal/s1_exposure"
)

// Config는 랭킹 서비스의 전체 설정
type Config struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Exposure Exposure `yaml:"exposure" json:"exposure"`
	Labels   Labels   `yaml:"labels" json:"labels"`
	Trainer  Trainer  `yaml:"trainer" json:"trainer"`
	Query    Query    `yaml:"query" json:"query"`
}

// Meta 메타 정보
type Meta struct {
	ConfigID string `yaml:"config_id" json:"config_id"`
	Version  string `yaml:"version" json:"version"`
}

// Exposure S1: 롤링 회귀 창
type Exposure struct {
	Window int `yaml:"window" json:"window"`   // 36개월
	MinObs int `yaml:"min_obs" json:"min_obs"` // 24개월
}

// Labels S3: 관련도 등급 수
type Labels struct {
	DefaultBins int   `yaml:"default_bins" json:"default_bins"` // 5
	MinBins     int   `yaml:"min_bins" json:"min_bins"`         // 3
	MaxBins     int   `yaml:"max_bins" json:"max_bins"`         // 10
	WarmBins    []int `yaml:"warm_bins" json:"warm_bins"`       // 스케줄러가 미리 학습할 B 목록
}

// Trainer 쌍별 LTR 부스팅 파라미터
type Trainer struct {
	NEstimators     int     `yaml:"n_estimators" json:"n_estimators"`
	MaxDepth        int     `yaml:"max_depth" json:"max_depth"`
	LearningRate    float64 `yaml:"learning_rate" json:"learning_rate"`
	Subsample       float64 `yaml:"subsample" json:"subsample"`
	ColsampleByTree float64 `yaml:"colsample_bytree" json:"colsample_bytree"`
	RegLambda       float64 `yaml:"reg_lambda" json:"reg_lambda"`
	MinChildWeight  float64 `yaml:"min_child_weight" json:"min_child_weight"`
	MaxBin          int     `yaml:"max_bin" json:"max_bin"`
	Seed            uint64  `yaml:"seed" json:"seed"`
	PairsPerSample  int     `yaml:"pairs_per_sample" json:"pairs_per_sample"`
}

// Query Top-K 조회 범위
type Query struct {
	DefaultK int `yaml:"default_k" json:"default_k"` // 50
	MaxK     int `yaml:"max_k" json:"max_k"`         // 500
}

// Default returns the built-in configuration
func Default() *Config {
	params := ltr.DefaultParams()
	exposure := s1_exposure.DefaultConfig()

	return &Config{
		Meta: Meta{
			ConfigID: "ff5_pairwise_topk",
			Version:  "1",
		},
		Exposure: Exposure{
			Window: exposure.Window,
			MinObs: exposure.MinObs,
		},
		Labels: Labels{
			DefaultBins: 5,
			MinBins:     3,
			MaxBins:     10,
			WarmBins:    []int{5},
		},
		Trainer: Trainer{
			NEstimators:     params.NEstimators,
			MaxDepth:        params.MaxDepth,
			LearningRate:    params.LearningRate,
			Subsample:       params.Subsample,
			ColsampleByTree: params.ColsampleByTree,
			RegLambda:       params.RegLambda,
			MinChildWeight:  params.MinChildWeight,
			MaxBin:          params.MaxBin,
			Seed:            params.Seed,
			PairsPerSample:  params.PairsPerSample,
		},
		Query: Query{
			DefaultK: 50,
			MaxK:     500,
		},
	}
}

// ExposureConfig converts to the estimator configuration
func (c *Config) ExposureConfig() s1_exposure.Config {
	return s1_exposure.Config{
		Window: c.Exposure.Window,
		MinObs: c.Exposure.MinObs,
	}
}

// TrainerParams converts to the booster hyperparameters
func (c *Config) TrainerParams() ltr.Params {
	t := c.Trainer
	return ltr.Params{
		NEstimators:     t.NEstimators,
		MaxDepth:        t.MaxDepth,
		LearningRate:    t.LearningRate,
		Subsample:       t.Subsample,
		ColsampleByTree: t.ColsampleByTree,
		RegLambda:       t.RegLambda,
		MinChildWeight:  t.MinChildWeight,
		MaxBin:          t.MaxBin,
		Seed:            t.Seed,
		PairsPerSample:  t.PairsPerSample,
	}
}

// BinsAllowed reports whether b is within [min_bins, max_bins]
func (l Labels) BinsAllowed(b int) bool {
	return b >= l.MinBins && b <= l.MaxBins
}
