package rankconfig

import (
	"fmt"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ConfigID == "" {
		return ValidationError{"meta.config_id", "required"}
	}

	// === Exposure ===
	if cfg.Exposure.Window < 1 {
		return ValidationError{"exposure.window", "must be >= 1"}
	}
	if cfg.Exposure.MinObs < 1 || cfg.Exposure.MinObs > cfg.Exposure.Window {
		return ValidationError{"exposure.min_obs", fmt.Sprintf("must be in [1, window=%d]", cfg.Exposure.Window)}
	}

	// === Labels ===
	l := cfg.Labels
	if l.MinBins < 3 {
		return ValidationError{"labels.min_bins", "must be >= 3"}
	}
	if l.MinBins > l.MaxBins {
		return ValidationError{"labels", "min_bins must be <= max_bins"}
	}
	if !l.BinsAllowed(l.DefaultBins) {
		return ValidationError{"labels.default_bins", fmt.Sprintf("must be in [%d, %d]", l.MinBins, l.MaxBins)}
	}
	for i, b := range l.WarmBins {
		if !l.BinsAllowed(b) {
			return ValidationError{
				Field:   fmt.Sprintf("labels.warm_bins[%d]", i),
				Message: fmt.Sprintf("%d not in [%d, %d]", b, l.MinBins, l.MaxBins),
			}
		}
	}

	// === Trainer ===
	if err := cfg.TrainerParams().Validate(); err != nil {
		return ValidationError{"trainer", err.Error()}
	}

	// === Query ===
	if cfg.Query.MaxK < 1 {
		return ValidationError{"query.max_k", "must be >= 1"}
	}
	if cfg.Query.DefaultK < 1 || cfg.Query.DefaultK > cfg.Query.MaxK {
		return ValidationError{"query.default_k", fmt.Sprintf("must be in [1, max_k=%d]", cfg.Query.MaxK)}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 관측치가 팩터 수 + 절편보다 적으면 회귀가 과소결정
	if cfg.Exposure.MinObs < 6 {
		warnings = append(warnings, Warning{
			Code:    "UNDERDETERMINED_OLS",
			Message: "min_obs < 6: 절편 + 5팩터 회귀가 최소노름 해로 대체됨",
		})
	}

	// 트리 수 과다 → lazy 학습 지연
	if cfg.Trainer.NEstimators > 1000 {
		warnings = append(warnings, Warning{
			Code:    "SLOW_TRAINING",
			Message: "n_estimators > 1000: 요청 경로 학습 지연 우려",
		})
	}

	if len(cfg.Labels.WarmBins) == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_WARM_BINS",
			Message: "warm_bins 비어있음: 모든 모델이 첫 요청에서 학습됨",
		})
	}

	return warnings
}
