package s0_data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/wonny/ffrank/internal/contracts"
)

// DailyParseStats counts what the daily factor parser discarded
type DailyParseStats struct {
	Lines        int `json:"lines"`
	Kept         int `json:"kept"`
	BadDates     int `json:"bad_dates"`     // footer/copyright lines, malformed dates
	ForwardFills int `json:"forward_fills"` // cells filled from the previous day
}

// MarketParseStats counts what the monthly return parser discarded
type MarketParseStats struct {
	Lines           int      `json:"lines"`
	Months          int      `json:"months"`
	BadDates        int      `json:"bad_dates"`
	DuplicateMonths int      `json:"duplicate_months"` // later row wins
	IgnoredColumns  []string `json:"ignored_columns,omitempty"`
}

// ErrMissingColumn is returned when a required header column is absent
var ErrMissingColumn = errors.New("missing required column")

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // footer lines have fewer cells
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = false
	return reader
}

// ParseDailyFactors reads the daily five-factor table
// Date must be 8 digits (YYYYMMDD); other rows are dropped. Values are
// forward-filled per column and converted from percentage points to fractions.
func ParseDailyFactors(r io.Reader) ([]contracts.DailyFactorRow, DailyParseStats, error) {
	var stats DailyParseStats
	reader := newCSVReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("read factor header: %w", err)
	}

	// 1. 헤더에서 컬럼 위치 찾기
	dateIdx := findColumn(header, "Date")
	if dateIdx < 0 {
		// Ken French files leave the date column unnamed
		dateIdx = 0
	}
	var valueIdx [6]int
	for k, name := range contracts.FactorSourceColumns {
		valueIdx[k] = findColumn(header, name)
		if valueIdx[k] < 0 {
			return nil, stats, fmt.Errorf("factor file: %w %q", ErrMissingColumn, name)
		}
	}

	// 2. 행 파싱 (날짜 규칙으로 푸터 제거)
	rows := make([]contracts.DailyFactorRow, 0, 4096)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read factor line %d: %w", stats.Lines+2, err)
		}
		stats.Lines++

		if dateIdx >= len(record) {
			stats.BadDates++
			continue
		}
		date, ok := contracts.ParseCompactDate(record[dateIdx])
		if !ok {
			stats.BadDates++
			continue
		}

		var values [6]float64
		for k, idx := range valueIdx {
			values[k] = parseCell(record, idx)
		}
		row := contracts.DailyFactorRow{Date: date}
		row.SetValues(values)
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	// 3. forward-fill 후 퍼센트 → 소수
	var last [6]float64
	for k := range last {
		last[k] = math.NaN()
	}
	for i := range rows {
		values := rows[i].Values()
		for k, v := range values {
			if math.IsNaN(v) {
				if !math.IsNaN(last[k]) {
					stats.ForwardFills++
				}
				values[k] = last[k]
			} else {
				last[k] = v
			}
		}
		for k := range values {
			values[k] /= 100.0
		}
		rows[i].SetValues(values)
	}

	stats.Kept = len(rows)
	return rows, stats, nil
}

// ParseMonthlyReturns reads the wide monthly asset-return table
// Dates are truncated to the month; columns named like factor columns are ignored.
func ParseMonthlyReturns(r io.Reader) (*contracts.AssetReturnTable, MarketParseStats, error) {
	var stats MarketParseStats
	reader := newCSVReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("read market header: %w", err)
	}

	dateIdx := findColumn(header, "Date")
	if dateIdx < 0 {
		return nil, stats, fmt.Errorf("market file: %w %q", ErrMissingColumn, "Date")
	}

	// 자산 컬럼 = Date 와 팩터 컬럼을 제외한 나머지
	assetIdx := make([]int, 0, len(header))
	assets := make([]string, 0, len(header))
	seen := make(map[string]bool)
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == dateIdx {
			continue
		}
		if name == "" || isFactorColumn(name) || seen[name] {
			stats.IgnoredColumns = append(stats.IgnoredColumns, name)
			continue
		}
		seen[name] = true
		assetIdx = append(assetIdx, i)
		assets = append(assets, name)
	}

	byMonth := make(map[contracts.Month][]float64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read market line %d: %w", stats.Lines+2, err)
		}
		stats.Lines++

		if dateIdx >= len(record) {
			stats.BadDates++
			continue
		}
		month, err := contracts.ParseMonth(record[dateIdx])
		if err != nil {
			stats.BadDates++
			continue
		}

		values := make([]float64, len(assetIdx))
		for j, idx := range assetIdx {
			values[j] = parseCell(record, idx)
		}
		if _, dup := byMonth[month]; dup {
			stats.DuplicateMonths++
		}
		byMonth[month] = values
	}

	table := &contracts.AssetReturnTable{
		Months:  make([]contracts.Month, 0, len(byMonth)),
		Assets:  assets,
		Returns: make([][]float64, 0, len(byMonth)),
	}
	for m := range byMonth {
		table.Months = append(table.Months, m)
	}
	sort.Slice(table.Months, func(i, j int) bool { return table.Months[i].Before(table.Months[j]) })
	for _, m := range table.Months {
		table.Returns = append(table.Returns, byMonth[m])
	}

	stats.Months = len(table.Months)
	return table, stats, nil
}

// parseCell returns NaN for missing or non-numeric cells
func parseCell(record []string, idx int) float64 {
	if idx >= len(record) {
		return math.NaN()
	}
	s := strings.TrimSpace(record[idx])
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func findColumn(header []string, name string) int {
	for i, h := range header {
		// BOM 이 붙은 첫 컬럼 대응
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

func isFactorColumn(name string) bool {
	for _, c := range contracts.FactorSourceColumns {
		if name == c {
			return true
		}
	}
	return false
}
