package contracts

import "time"

// Factor column names as they appear in the daily source file
const (
	ColMktRF = "Mkt-RF"
	ColSMB   = "SMB"
	ColHML   = "HML"
	ColRMW   = "RMW"
	ColCMA   = "CMA"
	ColRF    = "RF"
)

// FactorSourceColumns lists every factor column of the source (also excluded from asset columns)
var FactorSourceColumns = []string{ColMktRF, ColSMB, ColHML, ColRMW, ColCMA, ColRF}

// NumFactors is the number of model factors (RF excluded)
const NumFactors = 5

// DailyFactorRow is one day of factor returns in percentage points
// Missing cells are NaN until forward-filled
type DailyFactorRow struct {
	Date  time.Time `json:"date"`
	MktRF float64   `json:"mkt_rf"`
	SMB   float64   `json:"smb"`
	HML   float64   `json:"hml"`
	RMW   float64   `json:"rmw"`
	CMA   float64   `json:"cma"`
	RF    float64   `json:"rf"`
}

// Values returns the six columns in source order
func (r *DailyFactorRow) Values() [6]float64 {
	return [6]float64{r.MktRF, r.SMB, r.HML, r.RMW, r.CMA, r.RF}
}

// SetValues writes the six columns in source order
func (r *DailyFactorRow) SetValues(v [6]float64) {
	r.MktRF, r.SMB, r.HML, r.RMW, r.CMA, r.RF = v[0], v[1], v[2], v[3], v[4], v[5]
}

// FactorRow is one month of compounded factor returns (fractional units)
type FactorRow struct {
	Month Month   `json:"month"`
	MktRF float64 `json:"mkt_rf"`
	SMB   float64 `json:"smb"`
	HML   float64 `json:"hml"`
	RMW   float64 `json:"rmw"`
	CMA   float64 `json:"cma"`
	RF    float64 `json:"rf"`
}

// Factors returns the five model factors in feature order
func (r FactorRow) Factors() [NumFactors]float64 {
	return [NumFactors]float64{r.MktRF, r.SMB, r.HML, r.RMW, r.CMA}
}

// AssetReturnTable is the wide monthly asset-return table
// Returns[i][j] is the raw return of Assets[j] in Months[i] (NaN when missing)
type AssetReturnTable struct {
	Months  []Month     `json:"months"`
	Assets  []string    `json:"assets"`
	Returns [][]float64 `json:"returns"`
}

// NumMonths returns the number of month rows
func (t *AssetReturnTable) NumMonths() int {
	return len(t.Months)
}

// Column returns the return series for asset index j
func (t *AssetReturnTable) Column(j int) []float64 {
	col := make([]float64, len(t.Months))
	for i := range t.Months {
		col[i] = t.Returns[i][j]
	}
	return col
}

// AlignedData is the month-aligned inner join of factors and asset returns
type AlignedData struct {
	Factors []FactorRow
	Assets  *AssetReturnTable
}
