package s0_data

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/wonny/ffrank/internal/contracts"
	"github.com/wonny/ffrank/pkg/config"
	"github.com/wonny/ffrank/pkg/httputil"
	"github.com/wonny/ffrank/pkg/logger"
)

// CSVSource reads the two raw tables from local files or http(s) URLs
// implements contracts.RawDataSource
type CSVSource struct {
	factorsPath string
	marketPath  string
	http        *httputil.Client
	logger      *logger.Logger

	lastDaily  DailyParseStats
	lastMarket MarketParseStats
}

// NewCSVSource creates a CSV-backed raw data source
func NewCSVSource(factorsPath, marketPath string, http *httputil.Client, log *logger.Logger) *CSVSource {
	return &CSVSource{
		factorsPath: factorsPath,
		marketPath:  marketPath,
		http:        http,
		logger:      log,
	}
}

// LoadDailyFactors implements contracts.RawDataSource
func (s *CSVSource) LoadDailyFactors(ctx context.Context) ([]contracts.DailyFactorRow, error) {
	r, err := s.open(ctx, s.factorsPath)
	if err != nil {
		return nil, fmt.Errorf("open factor file: %w", err)
	}
	defer r.Close()

	rows, stats, err := ParseDailyFactors(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.factorsPath, err)
	}
	s.lastDaily = stats

	s.logger.WithFields(map[string]interface{}{
		"path":          s.factorsPath,
		"rows":          stats.Kept,
		"bad_dates":     stats.BadDates,
		"forward_fills": stats.ForwardFills,
	}).Info("Daily factors loaded")

	return rows, nil
}

// LoadMonthlyReturns implements contracts.RawDataSource
func (s *CSVSource) LoadMonthlyReturns(ctx context.Context) (*contracts.AssetReturnTable, error) {
	r, err := s.open(ctx, s.marketPath)
	if err != nil {
		return nil, fmt.Errorf("open market file: %w", err)
	}
	defer r.Close()

	table, stats, err := ParseMonthlyReturns(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.marketPath, err)
	}
	s.lastMarket = stats

	s.logger.WithFields(map[string]interface{}{
		"path":             s.marketPath,
		"months":           stats.Months,
		"assets":           len(table.Assets),
		"bad_dates":        stats.BadDates,
		"duplicate_months": stats.DuplicateMonths,
		"ignored_columns":  len(stats.IgnoredColumns),
	}).Info("Monthly returns loaded")

	return table, nil
}

// Stats returns the parse statistics of the last load
func (s *CSVSource) Stats() (DailyParseStats, MarketParseStats) {
	return s.lastDaily, s.lastMarket
}

func (s *CSVSource) open(ctx context.Context, path string) (io.ReadCloser, error) {
	if config.IsURL(path) {
		if s.http == nil {
			return nil, fmt.Errorf("no http client configured for %s", path)
		}
		body, err := s.http.Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return os.Open(path)
}
