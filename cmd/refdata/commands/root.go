package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	catalogFile string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "refdata",
	Short: "시점 기준 레퍼런스 데이터 조회",
	Long: `refdata Unified CLI

유니버스 구성, 거래일 계산, 일별/분봉 데이터 일괄 조회.
모든 조회는 요청 날짜 시점의 스냅샷 기준.

Usage:
  go run ./cmd/refdata [command]

Examples:
  go run ./cmd/refdata universe members 沪深300 --date 2020-05-31
  go run ./cmd/refdata bars range --ids 000001.SZ,600000.SH --start 2020-01-02 --end 2020-03-31
  go run ./cmd/refdata calendar prev 2020-01-06 --n 5
  go run ./cmd/refdata serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "universe catalog yaml (default: UNIVERSE_CATALOG or built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
