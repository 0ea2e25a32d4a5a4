package handlers

import (
	"net/http"

	"github.com/wonny/ffrank/internal/brain"
	"github.com/wonny/ffrank/internal/s2_panel"
	"github.com/wonny/ffrank/pkg/logger"
)

// SummarySource exposes the served panel summary and last pipeline run
type SummarySource interface {
	Summary() (*s2_panel.Summary, bool)
	LastRun() *brain.RunResult
}

// PanelHandler handles panel inspection endpoints
type PanelHandler struct {
	source SummarySource
	logger *logger.Logger
}

// NewPanelHandler creates a new panel handler
func NewPanelHandler(source SummarySource, log *logger.Logger) *PanelHandler {
	return &PanelHandler{source: source, logger: log}
}

// GetSummary returns row/month counts, column statistics and the drop report
// GET /api/panel/summary
func (h *PanelHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.source.Summary()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "base panel is not initialized")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// GetLastRun returns the most recent pipeline run
// GET /api/pipeline/last
func (h *PanelHandler) GetLastRun(w http.ResponseWriter, r *http.Request) {
	run := h.source.LastRun()
	if run == nil {
		respondError(w, http.StatusNotFound, "no pipeline run yet")
		return
	}
	respondJSON(w, http.StatusOK, run)
}
