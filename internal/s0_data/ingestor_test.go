package s0_data

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ffrank/internal/contracts"
	"github.com/wonny/ffrank/pkg/httputil"
	"github.com/wonny/ffrank/pkg/logger"
)

// fakeSource is an in-memory contracts.RawDataSource
type fakeSource struct {
	daily    []contracts.DailyFactorRow
	table    *contracts.AssetReturnTable
	dailyErr error
}

func (f *fakeSource) LoadDailyFactors(ctx context.Context) ([]contracts.DailyFactorRow, error) {
	return f.daily, f.dailyErr
}

func (f *fakeSource) LoadMonthlyReturns(ctx context.Context) (*contracts.AssetReturnTable, error) {
	return f.table, nil
}

func TestDataIngestor_Load(t *testing.T) {
	source := &fakeSource{
		daily: []contracts.DailyFactorRow{
			day(2020, time.January, 2, 0.01, 0, 0),
			day(2020, time.February, 3, 0.02, 0, 0),
			day(2020, time.March, 2, 0.03, 0, 0),
		},
		table: &contracts.AssetReturnTable{
			Months: []contracts.Month{
				contracts.NewMonth(2020, time.February),
				contracts.NewMonth(2020, time.March),
				contracts.NewMonth(2020, time.April),
			},
			Assets:  []string{"AAA", "BBB"},
			Returns: [][]float64{{0.1, math.NaN()}, {0.2, 0.3}, {0.4, 0.5}},
		},
	}

	aligned, report, err := NewDataIngestor(source, logger.NewNop()).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.DailyRows)
	assert.Equal(t, 3, report.FactorMonths)
	assert.Equal(t, 3, report.MarketMonths)
	assert.Equal(t, 2, report.AlignedMonths)
	assert.Equal(t, "2020-02", report.FirstMonth)
	assert.Equal(t, "2020-03", report.LastMonth)
	require.NotNil(t, report.Quality)
	assert.InDelta(t, 0.5, report.Quality.AssetCoverage["BBB"], 1e-12)

	require.Len(t, aligned.Factors, 2)
	assert.InDelta(t, 0.02, aligned.Factors[0].MktRF, 1e-12)
}

func TestDataIngestor_Errors(t *testing.T) {
	loadErr := errors.New("disk on fire")

	tests := []struct {
		name    string
		source  *fakeSource
		wantErr error
	}{
		{
			name:    "source error is wrapped",
			source:  &fakeSource{dailyErr: loadErr},
			wantErr: loadErr,
		},
		{
			name:    "no daily rows",
			source:  &fakeSource{},
			wantErr: ErrNoDailyFactors,
		},
		{
			name: "no overlapping month",
			source: &fakeSource{
				daily: []contracts.DailyFactorRow{day(2020, time.January, 2, 0.01, 0, 0)},
				table: &contracts.AssetReturnTable{
					Months:  []contracts.Month{contracts.NewMonth(2021, time.January)},
					Assets:  []string{"AAA"},
					Returns: [][]float64{{0.1}},
				},
			},
			wantErr: ErrNoOverlap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewDataIngestor(tt.source, logger.NewNop()).Load(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCSVSource_Files(t *testing.T) {
	dir := t.TempDir()
	factorsPath := filepath.Join(dir, "ff5_data.csv")
	marketPath := filepath.Join(dir, "market_data.csv")
	require.NoError(t, os.WriteFile(factorsPath, []byte(dailyCSV), 0o644))
	require.NoError(t, os.WriteFile(marketPath, []byte(marketCSV), 0o644))

	source := NewCSVSource(factorsPath, marketPath, nil, logger.NewNop())
	aligned, report, err := NewDataIngestor(source, logger.NewNop()).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.AlignedMonths)
	assert.Equal(t, []string{"AAA", "BBB"}, aligned.Assets.Assets)

	daily, market := source.Stats()
	assert.Equal(t, 2, daily.BadDates)
	assert.Equal(t, 1, market.DuplicateMonths)
}

func TestCSVSource_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ff5.csv":
			w.Write([]byte(dailyCSV))
		case "/market.csv":
			w.Write([]byte(marketCSV))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := httputil.New(logger.NewNop()).DisableRetry()
	source := NewCSVSource(server.URL+"/ff5.csv", server.URL+"/market.csv", client, logger.NewNop())

	daily, err := source.LoadDailyFactors(context.Background())
	require.NoError(t, err)
	assert.Len(t, daily, 3)

	table, err := source.LoadMonthlyReturns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, table.NumMonths())

	missing := NewCSVSource(server.URL+"/nope.csv", server.URL+"/market.csv", client, logger.NewNop())
	_, err = missing.LoadDailyFactors(context.Background())
	var statusErr *httputil.StatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestCSVSource_MissingFile(t *testing.T) {
	source := NewCSVSource("/nonexistent/ff5.csv", "/nonexistent/m.csv", nil, logger.NewNop())
	_, err := source.LoadDailyFactors(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
