package rankconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ffrank/internal/ltr"
	"github.com/wonny/ffrank/internal/s1_exposure"
)

func TestDefault_MatchesPackageDefaults(t *testing.T) {
	cfg := Default()

	require.NoError(t, Validate(cfg))
	assert.Equal(t, ltr.DefaultParams(), cfg.TrainerParams())
	assert.Equal(t, s1_exposure.DefaultConfig(), cfg.ExposureConfig())
	assert.Equal(t, 5, cfg.Labels.DefaultBins)
	assert.Equal(t, 50, cfg.Query.DefaultK)
	assert.Equal(t, 500, cfg.Query.MaxK)
}

func TestLoad_RepoConfigMatchesDefault(t *testing.T) {
	cfg, raw, err := Load(filepath.Join("..", "..", "config", "ranker.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	want, err := Hash(Default())
	require.NoError(t, err)
	got, err := Hash(cfg)
	require.NoError(t, err)
	assert.Equal(t, want, got, "config/ranker.yaml should mirror Default()")
}

func TestParse_PartialOverride(t *testing.T) {
	cfg, err := Parse([]byte("exposure:\n  window: 24\n  min_obs: 12\n"))
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.Exposure.Window)
	assert.Equal(t, 12, cfg.Exposure.MinObs)
	// 나머지는 기본값 유지
	assert.Equal(t, 120, cfg.Trainer.NEstimators)
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	_, err := Parse([]byte("trainer:\n  n_estimator: 10\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "n_estimator")
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "r.yaml")
	require.NoError(t, os.WriteFile(path, []byte("query:\n  default_k: 10\n"), 0o600))
	cfg, err = LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Query.DefaultK)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing config id", func(c *Config) { c.Meta.ConfigID = "" }, "meta.config_id"},
		{"zero window", func(c *Config) { c.Exposure.Window = 0 }, "exposure.window"},
		{"min_obs above window", func(c *Config) { c.Exposure.MinObs = 40 }, "exposure.min_obs"},
		{"min_bins below 3", func(c *Config) { c.Labels.MinBins = 2 }, "labels.min_bins"},
		{"min above max", func(c *Config) { c.Labels.MinBins = 8; c.Labels.MaxBins = 6; c.Labels.DefaultBins = 7 }, "labels"},
		{"default bins out of range", func(c *Config) { c.Labels.DefaultBins = 11 }, "labels.default_bins"},
		{"warm bins out of range", func(c *Config) { c.Labels.WarmBins = []int{5, 2} }, "labels.warm_bins[1]"},
		{"bad learning rate", func(c *Config) { c.Trainer.LearningRate = 0 }, "trainer"},
		{"zero max_k", func(c *Config) { c.Query.MaxK = 0 }, "query.max_k"},
		{"default_k above max_k", func(c *Config) { c.Query.DefaultK = 600 }, "query.default_k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			var ve ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestHash_ChangesWithContent(t *testing.T) {
	a, err := Hash(Default())
	require.NoError(t, err)

	cfg := Default()
	cfg.Trainer.Seed = 7
	b, err := Hash(cfg)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestWarn(t *testing.T) {
	assert.Empty(t, Warn(Default()))

	cfg := Default()
	cfg.Exposure.MinObs = 4
	cfg.Trainer.NEstimators = 2000
	cfg.Labels.WarmBins = nil

	codes := make([]string, 0)
	for _, w := range Warn(cfg) {
		codes = append(codes, w.Code)
	}
	assert.ElementsMatch(t, []string{"UNDERDETERMINED_OLS", "SLOW_TRAINING", "NO_WARM_BINS"}, codes)
}
