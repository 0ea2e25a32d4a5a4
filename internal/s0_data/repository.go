package s0_data

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/ffrank/internal/contracts"
)

// Repository handles raw-data persistence in Postgres
// implements contracts.RawDataSource for DATA_SOURCE=postgres
// ⭐ SSOT: 원천 데이터 저장소는 여기서만
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Pool returns the underlying database pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.db
}

// LoadDailyFactors implements contracts.RawDataSource
func (r *Repository) LoadDailyFactors(ctx context.Context) ([]contracts.DailyFactorRow, error) {
	query := `
		SELECT trade_date, mkt_rf, smb, hml, rmw, cma, rf
		FROM ff5_daily
		ORDER BY trade_date ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query daily factors: %w", err)
	}
	defer rows.Close()

	out := make([]contracts.DailyFactorRow, 0, 4096)
	for rows.Next() {
		var date time.Time
		var cells [6]*float64
		if err := rows.Scan(&date, &cells[0], &cells[1], &cells[2], &cells[3], &cells[4], &cells[5]); err != nil {
			return nil, fmt.Errorf("scan daily factor: %w", err)
		}

		var values [6]float64
		for k, c := range cells {
			values[k] = fromNullable(c)
		}
		row := contracts.DailyFactorRow{Date: date}
		row.SetValues(values)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily factors: %w", err)
	}

	return out, nil
}

// LoadMonthlyReturns implements contracts.RawDataSource
// long (month, asset, ret) rows are pivoted to the wide table
func (r *Repository) LoadMonthlyReturns(ctx context.Context) (*contracts.AssetReturnTable, error) {
	query := `
		SELECT month, asset, ret
		FROM asset_monthly_returns
		ORDER BY month ASC, asset ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query monthly returns: %w", err)
	}
	defer rows.Close()

	cells := make([]returnCell, 0, 4096)

	for rows.Next() {
		var month time.Time
		var asset string
		var ret *float64
		if err := rows.Scan(&month, &asset, &ret); err != nil {
			return nil, fmt.Errorf("scan monthly return: %w", err)
		}
		cells = append(cells, returnCell{month: contracts.MonthOf(month), asset: asset, ret: fromNullable(ret)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly returns: %w", err)
	}

	return pivot(cells), nil
}

// SaveDailyFactors upserts daily factor rows (fractions) via COPY into a staging table
func (r *Repository) SaveDailyFactors(ctx context.Context, rows []contracts.DailyFactorRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	copyRows := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		v := row.Values()
		copyRows = append(copyRows, []interface{}{
			row.Date, toNullable(v[0]), toNullable(v[1]), toNullable(v[2]),
			toNullable(v[3]), toNullable(v[4]), toNullable(v[5]),
		})
	}

	return r.copyUpsert(ctx, "ff5_daily",
		[]string{"trade_date", "mkt_rf", "smb", "hml", "rmw", "cma", "rf"},
		copyRows,
		`INSERT INTO ff5_daily (trade_date, mkt_rf, smb, hml, rmw, cma, rf)
		 SELECT trade_date, mkt_rf, smb, hml, rmw, cma, rf FROM ff5_daily_stage
		 ON CONFLICT (trade_date) DO UPDATE SET
			mkt_rf = EXCLUDED.mkt_rf,
			smb = EXCLUDED.smb,
			hml = EXCLUDED.hml,
			rmw = EXCLUDED.rmw,
			cma = EXCLUDED.cma,
			rf = EXCLUDED.rf`,
	)
}

// SaveMonthlyReturns upserts the finite cells of a wide return table
func (r *Repository) SaveMonthlyReturns(ctx context.Context, table *contracts.AssetReturnTable) (int64, error) {
	copyRows := make([][]interface{}, 0, len(table.Months)*len(table.Assets))
	for i, m := range table.Months {
		for j, asset := range table.Assets {
			v := table.Returns[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			copyRows = append(copyRows, []interface{}{m.Start(), asset, v})
		}
	}
	if len(copyRows) == 0 {
		return 0, nil
	}

	return r.copyUpsert(ctx, "asset_monthly_returns",
		[]string{"month", "asset", "ret"},
		copyRows,
		`INSERT INTO asset_monthly_returns (month, asset, ret)
		 SELECT month, asset, ret FROM asset_monthly_returns_stage
		 ON CONFLICT (month, asset) DO UPDATE SET ret = EXCLUDED.ret`,
	)
}

// TableCounts summarizes the stored raw data
type TableCounts struct {
	DailyRows    int64      `json:"daily_rows"`
	FirstDay     *time.Time `json:"first_day,omitempty"`
	LastDay      *time.Time `json:"last_day,omitempty"`
	ReturnCells  int64      `json:"return_cells"`
	ReturnAssets int64      `json:"return_assets"`
}

// Counts returns row counts and the daily date range
func (r *Repository) Counts(ctx context.Context) (*TableCounts, error) {
	c := &TableCounts{}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), MIN(trade_date), MAX(trade_date) FROM ff5_daily`,
	).Scan(&c.DailyRows, &c.FirstDay, &c.LastDay); err != nil {
		return nil, fmt.Errorf("count daily factors: %w", err)
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT asset) FROM asset_monthly_returns`,
	).Scan(&c.ReturnCells, &c.ReturnAssets); err != nil {
		return nil, fmt.Errorf("count monthly returns: %w", err)
	}

	return c, nil
}

// copyUpsert streams rows into <table>_stage with COPY and merges them in one transaction
func (r *Repository) copyUpsert(ctx context.Context, table string, columns []string, rows [][]interface{}, merge string) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stage := table + "_stage"
	createStage := fmt.Sprintf(`CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP`, stage, table)
	if _, err := tx.Exec(ctx, createStage); err != nil {
		return 0, fmt.Errorf("create stage table: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, fmt.Errorf("copy into %s: %w", stage, err)
	}

	tag, err := tx.Exec(ctx, merge)
	if err != nil {
		return 0, fmt.Errorf("merge into %s: %w", table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return tag.RowsAffected(), nil
}

// returnCell is one long-format asset return
type returnCell struct {
	month contracts.Month
	asset string
	ret   float64
}

// pivot builds a wide table from long cells (missing cells are NaN)
func pivot(cells []returnCell) *contracts.AssetReturnTable {
	assetSet := make(map[string]struct{})
	monthSet := make(map[contracts.Month]struct{})
	for _, c := range cells {
		assetSet[c.asset] = struct{}{}
		monthSet[c.month] = struct{}{}
	}

	table := &contracts.AssetReturnTable{
		Assets: make([]string, 0, len(assetSet)),
		Months: make([]contracts.Month, 0, len(monthSet)),
	}
	for a := range assetSet {
		table.Assets = append(table.Assets, a)
	}
	sort.Strings(table.Assets)
	for m := range monthSet {
		table.Months = append(table.Months, m)
	}
	sort.Slice(table.Months, func(i, j int) bool { return table.Months[i].Before(table.Months[j]) })

	assetIdx := make(map[string]int, len(table.Assets))
	for j, a := range table.Assets {
		assetIdx[a] = j
	}
	monthIdx := make(map[contracts.Month]int, len(table.Months))
	for i, m := range table.Months {
		monthIdx[m] = i
	}

	table.Returns = make([][]float64, len(table.Months))
	for i := range table.Returns {
		row := make([]float64, len(table.Assets))
		for j := range row {
			row[j] = math.NaN()
		}
		table.Returns[i] = row
	}
	for _, c := range cells {
		table.Returns[monthIdx[c.month]][assetIdx[c.asset]] = c.ret
	}

	return table
}

func fromNullable(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func toNullable(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
