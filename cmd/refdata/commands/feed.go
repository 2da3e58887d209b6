package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/refdata/internal/backend/feed"
	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/pkg/config"
	"github.com/wonny/refdata/pkg/logger"
)

// feedCmd represents the feed command
var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "벤더 HTTP 피드 조회",
	Long: `벤더 HTTP API 에서 CSV 테이블을 직접 조회 (FEED_TOKEN 필요).

Subcommands:
  stocks              - 종목 마스터
  industry            - 업종 분류 (--scheme)
  futures             - 선물 계약 (--exchange)
  daily <security>    - 수정주가 일봉
  bins <security>     - 1분봉

Example:
  go run ./cmd/refdata feed stocks --limit 10
  go run ./cmd/refdata feed daily 600000.XSHG --start 2020-01-02 --end 2020-01-31`,
}

var (
	feedScheme   string
	feedExchange string
	feedStart    string
	feedEnd      string
	feedLimit    int
)

func init() {
	rootCmd.AddCommand(feedCmd)

	stocks := &cobra.Command{
		Use:   "stocks",
		Short: "종목 마스터",
		RunE: runFeed(func(ctx context.Context, c *feed.Client, args []string) ([]contracts.Row, error) {
			return c.Stocks(ctx)
		}),
	}
	industry := &cobra.Command{
		Use:   "industry",
		Short: "업종 분류",
		RunE: runFeed(func(ctx context.Context, c *feed.Client, args []string) ([]contracts.Row, error) {
			return c.IndustryClassification(ctx, feedScheme)
		}),
	}
	futures := &cobra.Command{
		Use:   "futures",
		Short: "선물 계약",
		RunE: runFeed(func(ctx context.Context, c *feed.Client, args []string) ([]contracts.Row, error) {
			return c.FuturesContracts(ctx, feedExchange)
		}),
	}
	daily := &cobra.Command{
		Use:   "daily <security>",
		Short: "수정주가 일봉",
		Args:  cobra.ExactArgs(1),
		RunE: runFeed(func(ctx context.Context, c *feed.Client, args []string) ([]contracts.Row, error) {
			start, end, err := feedPeriod()
			if err != nil {
				return nil, err
			}
			return c.AdjustedDaily(ctx, args[0], start, end)
		}),
	}
	bins := &cobra.Command{
		Use:   "bins <security>",
		Short: "1분봉",
		Args:  cobra.ExactArgs(1),
		RunE: runFeed(func(ctx context.Context, c *feed.Client, args []string) ([]contracts.Row, error) {
			start, end, err := feedPeriod()
			if err != nil {
				return nil, err
			}
			return c.HistoryBins(ctx, args[0], start, end)
		}),
	}
	feedCmd.AddCommand(stocks, industry, futures, daily, bins)

	// Flags
	feedCmd.PersistentFlags().IntVar(&feedLimit, "limit", 20, "출력 행 수 (0 = 전체)")
	industry.Flags().StringVar(&feedScheme, "scheme", feed.DefaultIndustry, "분류 체계")
	futures.Flags().StringVar(&feedExchange, "exchange", "", "거래소 코드 (CCFX, ...)")
	for _, c := range []*cobra.Command{daily, bins} {
		c.Flags().StringVar(&feedStart, "start", "", "시작일 (YYYY-MM-DD)")
		c.Flags().StringVar(&feedEnd, "end", "", "종료일 (기본: 오늘)")
		_ = c.MarkFlagRequired("start")
	}
}

type feedCall func(ctx context.Context, c *feed.Client, args []string) ([]contracts.Row, error)

func runFeed(call feedCall) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		log := logger.New(cfg)

		client, err := feed.NewFromConfig(cfg, log)
		if err != nil {
			return err
		}
		rows, err := call(cmd.Context(), client, args)
		if err != nil {
			return err
		}

		PrintHeader("Feed "+cmd.Name(), [][2]string{{"Rows", fmt.Sprint(len(rows))}})
		printRows(rows, feedLimit)
		return nil
	}
}

func feedPeriod() (start, end time.Time, err error) {
	if start, err = parseDateArg(feedStart); err != nil {
		return
	}
	end, err = parseDateArg(feedEnd)
	return
}

// printRows prints raw rows with the columns of the first row
func printRows(rows []contracts.Row, limit int) {
	if len(rows) == 0 {
		PrintInfo("No rows")
		return
	}
	columns := sortedKeys(rows[0])
	widths := make([]int, len(columns))
	for i := range widths {
		widths[i] = 14
	}
	PrintTableHeader(columns, widths)
	for i, r := range rows {
		if limit > 0 && i >= limit {
			PrintInfo(fmt.Sprintf("... %d more", len(rows)-i))
			break
		}
		values := make([]string, len(columns))
		for j, c := range columns {
			values[j] = r.String(c)
		}
		PrintTableRow(values, widths)
	}
}
