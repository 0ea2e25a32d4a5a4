package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wonny/ffrank/internal/brain"
	"github.com/wonny/ffrank/internal/contracts"
	"github.com/wonny/ffrank/internal/ltr"
	"github.com/wonny/ffrank/internal/metrics"
	"github.com/wonny/ffrank/internal/modelcache"
	"github.com/wonny/ffrank/internal/rankconfig"
	"github.com/wonny/ffrank/internal/s0_data"
	"github.com/wonny/ffrank/internal/s1_exposure"
	"github.com/wonny/ffrank/internal/s2_panel"
	"github.com/wonny/ffrank/internal/selection"
	"github.com/wonny/ffrank/pkg/config"
	"github.com/wonny/ffrank/pkg/database"
	"github.com/wonny/ffrank/pkg/httputil"
	"github.com/wonny/ffrank/pkg/logger"
)

// app holds the wired ranking components shared by the commands
type app struct {
	cfg     *config.Config
	ranker  *rankconfig.Config
	hash    string // rankconfig.Hash(ranker)
	logger  *logger.Logger
	db      *database.DB // nil unless DATA_SOURCE=postgres
	metrics *metrics.Recorder
	source  contracts.RawDataSource

	cache        *modelcache.Cache
	orchestrator *brain.Orchestrator
	service      *selection.Service
}

// newApp loads configuration and wires S0 → S4
// withMetrics registers the recorder on the default Prometheus registry when METRICS_ENABLED
func newApp(ctx context.Context, withMetrics bool) (*app, error) {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Ranker config (YAML SSOT)
	path := rankerConfig
	if path == "" {
		path = cfg.RankerConfigPath
	}
	rcfg, err := rankconfig.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load ranker config: %w", err)
	}
	hash, err := rankconfig.Hash(rcfg)
	if err != nil {
		return nil, fmt.Errorf("hash ranker config: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"config_id": rcfg.Meta.ConfigID,
		"path":      path,
		"hash":      hash[:12],
	}).Info("Ranker config loaded")
	for _, w := range rankconfig.Warn(rcfg) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	a := &app{cfg: cfg, ranker: rcfg, hash: hash, logger: log}
	if withMetrics && cfg.MetricsEnabled {
		a.metrics = metrics.New(prometheus.DefaultRegisterer)
	}

	// 4. Raw data source
	if err := a.openSource(ctx); err != nil {
		return nil, err
	}

	// 5. Pipeline components
	estimator, err := s1_exposure.NewEstimator(rcfg.ExposureConfig())
	if err != nil {
		a.Close()
		return nil, err
	}
	trainer, err := ltr.NewTrainer(rcfg.TrainerParams())
	if err != nil {
		a.Close()
		return nil, err
	}

	a.cache = modelcache.New(trainer, log, a.metrics)
	a.orchestrator = brain.NewOrchestrator(
		s0_data.NewDataIngestor(a.source, log),
		s2_panel.NewBuilder(estimator, log),
		a.cache,
		a.metrics,
		log,
	)
	a.service = selection.NewService(a.cache, selection.Limits{
		MinBins: rcfg.Labels.MinBins,
		MaxBins: rcfg.Labels.MaxBins,
		MaxK:    rcfg.Query.MaxK,
	}, log, a.metrics)

	return a, nil
}

func loadConfig() (*config.Config, error) {
	if env != "" {
		os.Setenv("ENV", env)
	}
	if verbose {
		os.Setenv("LOG_LEVEL", "debug")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (a *app) openSource(ctx context.Context) error {
	switch a.cfg.Data.Source {
	case config.DataSourcePostgres:
		db, err := database.New(ctx, a.cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.source = s0_data.NewRepository(db.Pool)
		a.logger.Info("Raw data source: postgres")
	default:
		a.source = s0_data.NewCSVSource(
			a.cfg.Data.FactorsPath(),
			a.cfg.Data.MarketPath(),
			httputil.New(a.logger),
			a.logger,
		)
		a.logger.WithFields(map[string]interface{}{
			"factors": a.cfg.Data.FactorsPath(),
			"market":  a.cfg.Data.MarketPath(),
		}).Info("Raw data source: csv")
	}
	return nil
}

// build runs the pipeline once, warming the given bin counts
func (a *app) build(ctx context.Context, warm []int) (*brain.RunResult, error) {
	result, err := a.orchestrator.Run(ctx, brain.RunConfig{WarmBins: warm})
	if err != nil {
		return result, fmt.Errorf("build base panel: %w", err)
	}
	return result, nil
}

// Close releases the cache and the database pool
func (a *app) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
