package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/ffrank/internal/contracts"
	"github.com/wonny/ffrank/internal/s0_data"
	"github.com/wonny/ffrank/internal/s2_panel"
)

// panelCmd represents the panel command
var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "기본 패널 생성 + 요약/제외 리포트 출력",
	Long: `원천 데이터로 기본 패널을 만들고 요약과 행 제외 사유별 건수를 출력합니다.

Example:
  go run ./cmd/ffrank panel
  go run ./cmd/ffrank panel --json`,
	RunE: runPanel,
}

var panelJSON bool

func init() {
	rootCmd.AddCommand(panelCmd)
	panelCmd.Flags().BoolVar(&panelJSON, "json", false, "JSON 출력")
}

func runPanel(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.build(ctx, nil)
	if err != nil {
		return err
	}

	if panelJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printIngest(result.Ingest)
	printSummary(result.Summary)
	return nil
}

func printSummary(s *s2_panel.Summary) {
	PrintTitle("Base Panel")
	PrintKeyValue("Rows", strconv.Itoa(s.Rows), 14)
	PrintKeyValue("Months", strconv.Itoa(s.Months), 14)
	PrintKeyValue("Assets", strconv.Itoa(s.Assets), 14)
	PrintKeyValue("Range", s.FirstMonth+" ~ "+s.LastMonth, 14)
	PrintKeyValue("Rows/month", fmt.Sprintf("%d ~ %d (mean %.1f)", s.MinPerMonth, s.MaxPerMonth, s.MeanPerMonth), 14)
	PrintKeyValue("y > 0", fmt.Sprintf("%.1f%%", 100*s.PositiveShare), 14)
	PrintKeyValue("Fingerprint", s.Fingerprint, 14)

	PrintSeparator()
	widths := []int{6, 10, 10, 10, 10}
	PrintTableHeader([]string{"Col", "Mean", "Std", "Min", "Max"}, widths)
	PrintTableRow(statsRow("y", s.Y), widths)
	for _, name := range contracts.FeatureCols {
		PrintTableRow(statsRow(name, s.Features[name]), widths)
	}

	if s.Drops == nil {
		return
	}
	PrintSeparator()
	PrintKeyValue("Candidates", strconv.Itoa(s.Drops.Candidates), 14)
	PrintKeyValue("Kept", strconv.Itoa(s.Drops.Kept), 14)
	for _, reason := range s2_panel.SortedReasons(s.Drops.Dropped) {
		PrintKeyValue("drop "+string(reason), strconv.Itoa(s.Drops.Dropped[reason]), 14)
	}
	if n := len(s.Drops.AssetsWithoutExposure); n > 0 {
		PrintWarning(fmt.Sprintf("%d assets without any exposure window: %s", n, strings.Join(s.Drops.AssetsWithoutExposure, ", ")))
	}
}

func statsRow(name string, c s2_panel.ColumnStats) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	return []string{name, f(c.Mean), f(c.Std), f(c.Min), f(c.Max)}
}

func printIngest(r *s0_data.IngestReport) {
	if r == nil {
		return
	}
	PrintTitle("Raw Data")
	PrintKeyValue("Daily rows", strconv.Itoa(r.DailyRows), 14)
	PrintKeyValue("Factor months", strconv.Itoa(r.FactorMonths), 14)
	PrintKeyValue("Market months", strconv.Itoa(r.MarketMonths), 14)
	PrintKeyValue("Aligned", fmt.Sprintf("%d (%s ~ %s)", r.AlignedMonths, r.FirstMonth, r.LastMonth), 14)
	PrintKeyValue("Assets", strconv.Itoa(r.Assets), 14)
	if r.Quality != nil {
		PrintKeyValue("Quality", fmt.Sprintf("%.3f (passed=%t)", r.Quality.QualityScore, r.Quality.Passed), 14)
		if n := len(r.Quality.SparseAssets); n > 0 {
			PrintKeyValue("Sparse assets", strconv.Itoa(n), 14)
		}
	}
}
