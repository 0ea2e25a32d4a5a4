package s0_data

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ffrank/internal/contracts"
	"github.com/wonny/ffrank/pkg/database"
)

func TestPivot(t *testing.T) {
	jan := contracts.NewMonth(2020, time.January)
	feb := contracts.NewMonth(2020, time.February)

	table := pivot([]returnCell{
		{month: feb, asset: "BBB", ret: 0.4},
		{month: jan, asset: "AAA", ret: 0.1},
		{month: feb, asset: "AAA", ret: 0.2},
	})

	assert.Equal(t, []string{"AAA", "BBB"}, table.Assets)
	assert.Equal(t, []contracts.Month{jan, feb}, table.Months)
	assert.Equal(t, 0.1, table.Returns[0][0])
	assert.True(t, math.IsNaN(table.Returns[0][1]))
	assert.Equal(t, []float64{0.2, 0.4}, table.Returns[1])
}

func TestNullableRoundTrip(t *testing.T) {
	assert.Nil(t, toNullable(math.NaN()))
	assert.Equal(t, 0.5, toNullable(0.5))

	assert.True(t, math.IsNaN(fromNullable(nil)))
	v := 0.25
	assert.Equal(t, 0.25, fromNullable(&v))
}

func TestRepository_Integration(t *testing.T) {
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
	require.NoError(t, err, "database connection failed")
	defer pool.Close()

	db := &database.DB{Pool: pool}
	require.NoError(t, db.EnsureSchema(ctx))

	repo := NewRepository(pool)

	daily := []contracts.DailyFactorRow{
		{Date: time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC), MktRF: 0.01, SMB: math.NaN(), RF: 0.0001},
	}
	n, err := repo.SaveDailyFactors(ctx, daily)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	table := &contracts.AssetReturnTable{
		Months:  []contracts.Month{contracts.NewMonth(1990, time.January)},
		Assets:  []string{"ZZZ_TEST"},
		Returns: [][]float64{{0.05}},
	}
	n, err = repo.SaveMonthlyReturns(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	loaded, err := repo.LoadDailyFactors(ctx)
	require.NoError(t, err)
	found := false
	for _, row := range loaded {
		if row.Date.Equal(daily[0].Date) {
			found = true
			assert.True(t, math.IsNaN(row.SMB), "NULL loads as NaN")
			assert.InDelta(t, 0.01, row.MktRF, 1e-12)
		}
	}
	assert.True(t, found)

	returns, err := repo.LoadMonthlyReturns(ctx)
	require.NoError(t, err)
	assert.Contains(t, returns.Assets, "ZZZ_TEST")

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, counts.DailyRows, int64(1))
	assert.GreaterOrEqual(t, counts.ReturnAssets, int64(1))
	require.NotNil(t, counts.FirstDay)

	_, err = pool.Exec(ctx, `DELETE FROM ff5_daily WHERE trade_date = '1990-01-02'`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM asset_monthly_returns WHERE asset = 'ZZZ_TEST'`)
	require.NoError(t, err)
}
