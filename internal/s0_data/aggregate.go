package s0_data

import (
	"math"
	"sort"

	"github.com/wonny/ffrank/internal/contracts"
)

// AggregateMonthly compounds daily factor returns into monthly returns
// ⭐ SSOT: 일별 → 월별 복리 집계는 여기서만
//
// Each factor is prod(1+r)-1 over the month's days. The market factor is
// compounded on the total market return: compound(MKT-RF + RF) - compound(RF).
// Missing (NaN) days are skipped. Every calendar month between the first and
// the last observed month is emitted; a month with no daily rows compounds to
// a zero return on every factor.
func AggregateMonthly(daily []contracts.DailyFactorRow) []contracts.FactorRow {
	type acc struct {
		mktTotal, smb, hml, rmw, cma, rf float64
	}

	byMonth := make(map[contracts.Month]*acc)
	for _, d := range daily {
		m := contracts.MonthOf(d.Date)
		a, ok := byMonth[m]
		if !ok {
			a = &acc{1, 1, 1, 1, 1, 1}
			byMonth[m] = a
		}
		a.mktTotal = compoundStep(a.mktTotal, d.MktRF+d.RF)
		a.smb = compoundStep(a.smb, d.SMB)
		a.hml = compoundStep(a.hml, d.HML)
		a.rmw = compoundStep(a.rmw, d.RMW)
		a.cma = compoundStep(a.cma, d.CMA)
		a.rf = compoundStep(a.rf, d.RF)
	}

	if len(byMonth) == 0 {
		return []contracts.FactorRow{}
	}

	var first, last contracts.Month
	for m := range byMonth {
		if first.IsZero() || m.Before(first) {
			first = m
		}
		if last.IsZero() || m.After(last) {
			last = m
		}
	}

	out := make([]contracts.FactorRow, 0, len(byMonth))
	for m := first; !m.After(last); m = m.AddMonths(1) {
		a, ok := byMonth[m]
		if !ok {
			// 빈 달: 곱할 일별 수익률이 없으므로 성장률 1
			a = &acc{1, 1, 1, 1, 1, 1}
		}
		rf := a.rf - 1
		out = append(out, contracts.FactorRow{
			Month: m,
			MktRF: (a.mktTotal - 1) - rf,
			SMB:   a.smb - 1,
			HML:   a.hml - 1,
			RMW:   a.rmw - 1,
			CMA:   a.cma - 1,
			RF:    rf,
		})
	}
	return out
}

// compoundStep multiplies in (1+r), skipping missing values
func compoundStep(growth, r float64) float64 {
	if math.IsNaN(r) {
		return growth
	}
	return growth * (1 + r)
}

// Align inner-joins monthly factors with the asset-return table on month
// The result is ordered by month and the asset column order is preserved.
func Align(factors []contracts.FactorRow, table *contracts.AssetReturnTable) *contracts.AlignedData {
	rowByMonth := make(map[contracts.Month]int, len(table.Months))
	for i, m := range table.Months {
		rowByMonth[m] = i
	}

	aligned := &contracts.AlignedData{
		Factors: make([]contracts.FactorRow, 0, len(factors)),
		Assets: &contracts.AssetReturnTable{
			Assets:  append([]string(nil), table.Assets...),
			Months:  make([]contracts.Month, 0, len(factors)),
			Returns: make([][]float64, 0, len(factors)),
		},
	}

	sorted := append([]contracts.FactorRow(nil), factors...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Month.Before(sorted[j].Month) })

	for _, f := range sorted {
		i, ok := rowByMonth[f.Month]
		if !ok {
			continue
		}
		aligned.Factors = append(aligned.Factors, f)
		aligned.Assets.Months = append(aligned.Assets.Months, f.Month)
		aligned.Assets.Returns = append(aligned.Assets.Returns, append([]float64(nil), table.Returns[i]...))
	}

	return aligned
}
