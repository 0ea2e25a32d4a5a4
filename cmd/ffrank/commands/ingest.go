package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/ffrank/internal/s0_data"
	"github.com/wonny/ffrank/pkg/database"
	"github.com/wonny/ffrank/pkg/httputil"
	"github.com/wonny/ffrank/pkg/logger"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "CSV 원천 데이터를 PostgreSQL 에 적재",
	Long: `일별 팩터 CSV 와 월별 자산 수익률 CSV 를 읽어 PostgreSQL 에 upsert 합니다.
적재 후 DATA_SOURCE=postgres 로 같은 데이터를 사용할 수 있습니다.

Example:
  go run ./cmd/ffrank ingest
  go run ./cmd/ffrank ingest --factors data/raw/ff5_data.csv --market data/raw/market_data.csv`,
	RunE: runIngest,
}

var (
	ingestFactors string
	ingestMarket  string
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestFactors, "factors", "", "일별 팩터 CSV (default: $DATA_DIR/$FACTORS_FILE)")
	ingestCmd.Flags().StringVar(&ingestMarket, "market", "", "월별 수익률 CSV (default: $DATA_DIR/$MARKET_FILE)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg)

	factorsPath := cfg.Data.FactorsPath()
	if ingestFactors != "" {
		factorsPath = ingestFactors
	}
	marketPath := cfg.Data.MarketPath()
	if ingestMarket != "" {
		marketPath = ingestMarket
	}

	// 2. Parse CSV
	source := s0_data.NewCSVSource(factorsPath, marketPath, httputil.New(log), log)
	daily, err := source.LoadDailyFactors(ctx)
	if err != nil {
		return err
	}
	table, err := source.LoadMonthlyReturns(ctx)
	if err != nil {
		return err
	}

	// 3. Connect + schema
	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	// 4. Upsert
	repo := s0_data.NewRepository(db.Pool)
	dailyN, err := repo.SaveDailyFactors(ctx, daily)
	if err != nil {
		return fmt.Errorf("save daily factors: %w", err)
	}
	returnN, err := repo.SaveMonthlyReturns(ctx, table)
	if err != nil {
		return fmt.Errorf("save monthly returns: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"daily_rows":   dailyN,
		"return_cells": returnN,
		"duration":     time.Since(start).String(),
	}).Info("Raw data ingested")

	PrintTitle("Ingest")
	PrintKeyValue("Daily rows", fmt.Sprintf("%d", dailyN), 14)
	PrintKeyValue("Return cells", fmt.Sprintf("%d", returnN), 14)
	PrintKeyValue("Assets", fmt.Sprintf("%d", len(table.Assets)), 14)
	PrintSeparator()
	PrintSuccess("Ingest completed")
	return nil
}
