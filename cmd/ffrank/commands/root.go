package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	rankerConfig string
	env          string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ffrank",
	Short: "FF5 factor-exposure Top-K ranking service",
	Long: `ffrank CLI

Fama-French 5팩터 롤링 노출도를 피처로, 쌍별 LTR 부스팅 트리로
월별 자산 순위를 매기는 서비스.

Usage:
  go run ./cmd/ffrank [command]

Examples:
  go run ./cmd/ffrank api
  go run ./cmd/ffrank topk --k 20 --as-of 2020-06
  go run ./cmd/ffrank panel
  go run ./cmd/ffrank ingest`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&rankerConfig, "config", "", "ranker YAML config (default: $RANKER_CONFIG or built-in)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
