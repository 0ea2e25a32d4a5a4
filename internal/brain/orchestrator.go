package brain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/ffrank/internal/contracts"
	"github.com/wonny/ffrank/internal/metrics"
	"github.com/wonny/ffrank/internal/modelcache"
	"github.com/wonny/ffrank/internal/s0_data"
	"github.com/wonny/ffrank/internal/s2_panel"
	"github.com/wonny/ffrank/pkg/logger"
)

// Loader produces month-aligned raw data (S0)
type Loader interface {
	Load(ctx context.Context) (*contracts.AlignedData, *s0_data.IngestReport, error)
}

// PanelBuilder assembles the base panel (S1 + S2)
type PanelBuilder interface {
	Build(ctx context.Context, data *contracts.AlignedData) (*contracts.Panel, *s2_panel.DropReport, error)
}

// Orchestrator coordinates the load → panel → cache → warmup pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	loader  Loader
	builder PanelBuilder
	cache   *modelcache.Cache
	metrics *metrics.Recorder
	logger  *logger.Logger

	// 동시 실행 방지 (스케줄러 + 수동 실행)
	runMu sync.Mutex

	mu      sync.RWMutex
	summary *s2_panel.Summary
	lastRun *RunResult
}

// RunConfig holds configuration for a pipeline run
type RunConfig struct {
	RunID    string // empty = generated
	WarmBins []int  // bin counts whose latest-month model is trained eagerly
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	RunID           string                `json:"run_id"`
	Success         bool                  `json:"success"`
	Error           string                `json:"error,omitempty"`
	CompletedStages []string              `json:"completed_stages"`
	Ingest          *s0_data.IngestReport `json:"ingest,omitempty"`
	Summary         *s2_panel.Summary     `json:"summary,omitempty"`
	StartedAt       time.Time             `json:"started_at"`
	Duration        time.Duration         `json:"duration"`
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	loader Loader,
	builder PanelBuilder,
	cache *modelcache.Cache,
	rec *metrics.Recorder,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		loader:  loader,
		builder: builder,
		cache:   cache,
		metrics: rec,
		logger:  log,
	}
}

// Run executes the pipeline
// S0:Ingest → S2:Panel → S3:Cache → S4:Warmup
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	if config.RunID == "" {
		config.RunID = uuid.NewString()
	}
	result := &RunResult{
		RunID:           config.RunID,
		CompletedStages: make([]string, 0, 4),
		StartedAt:       time.Now(),
	}

	err := o.run(ctx, config, result)
	result.Duration = time.Since(result.StartedAt)
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
	}

	o.mu.Lock()
	o.lastRun = result
	o.mu.Unlock()

	if err != nil {
		o.logger.WithFields(map[string]interface{}{
			"run_id": config.RunID,
			"stages": result.CompletedStages,
		}).WithError(err).Error("Pipeline run failed")
		return result, err
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":   config.RunID,
		"duration": result.Duration.Seconds(),
		"stages":   len(result.CompletedStages),
	}).Info("Pipeline run completed successfully")
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, config RunConfig, result *RunResult) error {
	o.logger.WithFields(map[string]interface{}{
		"run_id":    config.RunID,
		"warm_bins": config.WarmBins,
	}).Info("Starting pipeline run")

	// S0: Ingest
	data, report, err := o.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("S0 failed: %w", err)
	}
	result.Ingest = report
	result.CompletedStages = append(result.CompletedStages, "S0:Ingest")

	// S1 + S2: Exposure + Panel
	panel, drops, err := o.builder.Build(ctx, data)
	if err != nil {
		return fmt.Errorf("S2 failed: %w", err)
	}
	summary := s2_panel.Summarize(panel, drops)
	result.Summary = summary
	result.CompletedStages = append(result.CompletedStages, "S2:Panel")

	// S3: Install base panel (drops stale variants/models)
	if err := o.cache.SetPanel(panel); err != nil {
		return fmt.Errorf("S3 failed: %w", err)
	}
	o.mu.Lock()
	o.summary = summary
	o.mu.Unlock()
	o.metrics.SetPanel(summary.Rows, summary.Months, dropCounts(drops))
	result.CompletedStages = append(result.CompletedStages, "S3:Cache")

	o.logger.WithFields(map[string]interface{}{
		"last_month": summary.LastMonth,
		"rows":       summary.Rows,
		"assets":     summary.Assets,
	}).Info("Base panel ready")

	// S4: Warmup
	if len(config.WarmBins) > 0 {
		if err := o.cache.Warmup(ctx, config.WarmBins...); err != nil {
			return fmt.Errorf("S4 failed: %w", err)
		}
		result.CompletedStages = append(result.CompletedStages, "S4:Warmup")
	}

	return nil
}

// Summary returns the summary of the installed base panel
func (o *Orchestrator) Summary() (*s2_panel.Summary, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.summary, o.summary != nil
}

// LastRun returns the most recent run result (nil before the first run)
func (o *Orchestrator) LastRun() *RunResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastRun
}

func dropCounts(report *s2_panel.DropReport) map[string]int {
	if report == nil {
		return nil
	}
	out := make(map[string]int, len(report.Dropped))
	for reason, n := range report.Dropped {
		out[string(reason)] = n
	}
	return out
}
