package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/ffrank/internal/contracts"
)

// topkCmd represents the topk command
var topkCmd = &cobra.Command{
	Use:   "topk",
	Short: "Top-K 랭킹 1회 조회",
	Long: `원천 데이터로 패널을 만들고 요청한 월의 Top-K 를 출력합니다.

Example:
  go run ./cmd/ffrank topk
  go run ./cmd/ffrank topk --k 20 --bins 7 --as-of 2020-06
  go run ./cmd/ffrank topk --json`,
	RunE: runTopK,
}

var (
	topkK    int
	topkBins int
	topkAsOf string
	topkJSON bool
)

func init() {
	rootCmd.AddCommand(topkCmd)

	topkCmd.Flags().IntVar(&topkK, "k", 0, "결과 수 (default: query.default_k)")
	topkCmd.Flags().IntVar(&topkBins, "bins", 0, "관련도 등급 수 B (default: labels.default_bins)")
	topkCmd.Flags().StringVar(&topkAsOf, "as-of", "", "기준월 YYYY-MM (default: 최신월)")
	topkCmd.Flags().BoolVar(&topkJSON, "json", false, "JSON 출력")
}

func runTopK(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if topkK == 0 {
		topkK = a.ranker.Query.DefaultK
	}
	if topkBins == 0 {
		topkBins = a.ranker.Labels.DefaultBins
	}

	if _, err := a.build(ctx, nil); err != nil {
		return err
	}

	result, err := a.service.TopK(ctx, contracts.TopKRequest{K: topkK, Bins: topkBins, AsOf: topkAsOf})
	if err != nil {
		return err
	}

	if topkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	PrintTitle(fmt.Sprintf("Top-%d as of %s (B=%d)", result.K, result.AsOfMonth, result.Bins))
	widths := []int{6, 16, 12}
	PrintTableHeader([]string{"Rank", "Asset", "Score"}, widths)
	for _, item := range result.TopK {
		PrintTableRow([]string{
			strconv.Itoa(item.Rank),
			item.Asset,
			strconv.FormatFloat(item.Score, 'f', 6, 64),
		}, widths)
	}
	PrintSeparator()
	PrintSuccess(fmt.Sprintf("%d assets ranked", len(result.TopK)))
	return nil
}
