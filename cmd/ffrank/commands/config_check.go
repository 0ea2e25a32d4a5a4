package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/ffrank/internal/rankconfig"
)

// configCmd represents the config command group
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "랭커 설정(YAML) 점검",
}

var configCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "랭커 설정 검증 + 해시/경고 출력",
	Long: `랭커 YAML 을 로드/검증하고 설정 해시와 경고를 출력합니다.
경로를 생략하면 --config, $RANKER_CONFIG, 기본값 순으로 사용합니다.

Example:
  go run ./cmd/ffrank config check config/ranker.yaml
  go run ./cmd/ffrank config check --print`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigCheck,
}

var configPrint bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)

	configCheckCmd.Flags().BoolVar(&configPrint, "print", false, "유효 설정을 YAML 로 출력")
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	path := rankerConfig
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		path = os.Getenv("RANKER_CONFIG")
	}

	cfg, err := rankconfig.LoadOrDefault(path)
	if err != nil {
		return err
	}
	hash, err := rankconfig.Hash(cfg)
	if err != nil {
		return err
	}

	source := path
	if source == "" {
		source = "(built-in defaults)"
	}
	PrintTitle("Ranker Config")
	PrintKeyValue("Source", source, 12)
	PrintKeyValue("Config ID", cfg.Meta.ConfigID, 12)
	PrintKeyValue("Version", cfg.Meta.Version, 12)
	PrintKeyValue("Hash", hash, 12)

	if warnings := rankconfig.Warn(cfg); len(warnings) > 0 {
		PrintSeparator()
		for _, w := range warnings {
			fmt.Printf("⚠️  [%s] %s\n", w.Code, w.Message)
		}
	}

	if configPrint {
		PrintSeparator()
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	}

	PrintSeparator()
	PrintSuccess("Config is valid")
	return nil
}
