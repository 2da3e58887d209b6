package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/internal/source"
)

// barsCmd represents the bars command
var barsCmd = &cobra.Command{
	Use:   "bars",
	Short: "일별/분봉 데이터 조회",
	Long: `일별 테이블과 분봉 테이블을 종목 배치 단위로 조회.

Subcommands:
  range     - 기간 조회 (--cached: 거래일 패딩 창을 한 번에 적재)
  on-date   - 특정일 조회 (종목당 1행)
  intraday  - 분봉 조회

Example:
  go run ./cmd/refdata bars range --universe 上证50 --start 2020-01-02 --end 2020-03-31 --fields S_DQ_CLOSE
  go run ./cmd/refdata bars on-date --ids 000001.SZ --date 2020-03-02
  go run ./cmd/refdata bars intraday --ids 600000.SH --start 2020-03-02 --end 2020-03-02 --bin 5`,
}

var barsRangeCmd = &cobra.Command{
	Use:   "range",
	Short: "기간 조회",
	RunE:  runBarsRange,
}

var barsOnDateCmd = &cobra.Command{
	Use:   "on-date",
	Short: "특정일 조회",
	RunE:  runBarsOnDate,
}

var barsIntradayCmd = &cobra.Command{
	Use:   "intraday",
	Short: "분봉 조회",
	RunE:  runBarsIntraday,
}

var (
	barsIDs      string
	barsUniverse string
	barsFields   string
	barsStart    string
	barsEnd      string
	barsDate     string
	barsCached   bool
	barsUnpadded bool
	barsBinSize  int
	barsLimit    int
)

func init() {
	rootCmd.AddCommand(barsCmd)
	barsCmd.AddCommand(barsRangeCmd, barsOnDateCmd, barsIntradayCmd)

	// Flags
	barsCmd.PersistentFlags().StringVar(&barsIDs, "ids", "", "종목 코드 (쉼표 구분)")
	barsCmd.PersistentFlags().StringVar(&barsUniverse, "universe", "", "유니버스 이름 (--ids 대신)")
	barsCmd.PersistentFlags().IntVar(&barsLimit, "limit", 20, "출력 행 수 (0 = 전체)")

	barsRangeCmd.Flags().StringVar(&barsStart, "start", "", "시작일 (YYYY-MM-DD)")
	barsRangeCmd.Flags().StringVar(&barsEnd, "end", "", "종료일 (YYYY-MM-DD, 기본: 오늘)")
	barsRangeCmd.Flags().StringVar(&barsFields, "fields", "", "조회 컬럼 (쉼표 구분, 기본: 전체)")
	barsRangeCmd.Flags().BoolVar(&barsCached, "cached", false, "패딩 창을 메모리에 적재 후 조회")
	barsRangeCmd.Flags().BoolVar(&barsUnpadded, "unpadded", false, "--cached 사용 시 패딩 없이 적재")
	_ = barsRangeCmd.MarkFlagRequired("start")

	barsOnDateCmd.Flags().StringVar(&barsDate, "date", "", "기준일 (YYYY-MM-DD, 기본: 오늘)")

	barsIntradayCmd.Flags().StringVar(&barsStart, "start", "", "시작일 (YYYY-MM-DD)")
	barsIntradayCmd.Flags().StringVar(&barsEnd, "end", "", "종료일 (YYYY-MM-DD, 기본: 오늘)")
	barsIntradayCmd.Flags().IntVar(&barsBinSize, "bin", 1, "분봉 크기 (분)")
	_ = barsIntradayCmd.MarkFlagRequired("start")
}

// resolveIDs returns --ids, or the members of --universe on date
func resolveIDs(ctx context.Context, d *deps, date time.Time) ([]string, error) {
	if barsUniverse == "" {
		ids := splitList(barsIDs)
		if len(ids) == 0 {
			return nil, contracts.Configuration("bars", "--ids or --universe is required")
		}
		return ids, nil
	}
	u, err := d.registry.Open(ctx, barsUniverse)
	if err != nil {
		return nil, err
	}
	set, err := u.MemberSet(date)
	if err != nil {
		return nil, err
	}
	return set.Sorted(), nil
}

func runBarsRange(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start, err := parseDateArg(barsStart)
	if err != nil {
		return err
	}
	end, err := parseDateArg(barsEnd)
	if err != nil {
		return err
	}

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	ids, err := resolveIDs(ctx, d, end)
	if err != nil {
		return err
	}
	fields := splitList(barsFields)

	var daily source.DailySource = d.source
	if barsCached {
		cached, err := loadCached(ctx, d, ids, start, end)
		if err != nil {
			return err
		}
		daily = cached
	}

	var table contracts.Table
	if len(fields) > 0 {
		table, err = daily.FetchRangeWithFields(ctx, ids, fields, start, end)
	} else {
		table, err = daily.FetchRange(ctx, ids, start, end)
	}
	if err != nil {
		return err
	}

	PrintHeader("Daily Range", [][2]string{
		{"Period", isoDate(start) + " ~ " + isoDate(end)},
		{"Securities", fmt.Sprint(len(ids))},
		{"Rows", fmt.Sprint(len(table))},
	})
	printRecords(table, fields)
	return nil
}

// loadCached builds a padded in-memory window and reports a degraded padding
func loadCached(ctx context.Context, d *deps, ids []string, start, end time.Time) (*source.Cached, error) {
	opts := d.cachedOptions(barsUnpadded)

	// 패딩 여유분: 거래일 기준 lookback 을 달력일로 넉넉히
	calStart := start.AddDate(0, 0, -2*opts.LookbackDays-30)
	calEnd := end.AddDate(0, 0, 2*opts.LookaheadDays+30)
	cal, err := d.tradingCalendar(ctx, calStart, calEnd)
	if err != nil {
		return nil, err
	}

	cached, err := source.NewCached(ctx, d.source, cal, ids, start, end, opts, d.metrics)
	if err != nil {
		return nil, err
	}

	w := cached.Window()
	if w.Degraded() {
		d.log.WithPeriod(w.EffectiveStart, w.EffectiveEnd).WithFields(map[string]interface{}{
			"start_degraded": w.StartDegraded,
			"end_degraded":   w.EndDegraded,
		}).Warn("Calendar padding unavailable, using requested window")
		PrintWarning("거래일 패딩 실패: 요청 구간만 적재됨")
	}
	PrintInfo(fmt.Sprintf("Cached window %s ~ %s (%d rows)", isoDate(w.EffectiveStart), isoDate(w.EffectiveEnd), cached.Len()))
	return cached, nil
}

func runBarsOnDate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, err := parseDateArg(barsDate)
	if err != nil {
		return err
	}

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	ids, err := resolveIDs(ctx, d, date)
	if err != nil {
		return err
	}
	table, err := d.source.FetchOnDate(ctx, ids, date)
	if err != nil {
		return err
	}

	PrintHeader("Daily On Date", [][2]string{
		{"Date", isoDate(date)},
		{"Securities", fmt.Sprint(len(ids))},
		{"Rows", fmt.Sprint(len(table))},
	})
	printRecords(table, nil)
	return nil
}

func runBarsIntraday(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start, err := parseDateArg(barsStart)
	if err != nil {
		return err
	}
	end, err := parseDateArg(barsEnd)
	if err != nil {
		return err
	}

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	ids, err := resolveIDs(ctx, d, end)
	if err != nil {
		return err
	}
	bins, err := d.binSource(ctx)
	if err != nil {
		return err
	}
	bars, err := bins.FetchBins(ctx, ids, start, end, barsBinSize)
	if err != nil {
		return err
	}

	PrintHeader("Intraday Bins", [][2]string{
		{"Period", isoDate(start) + " ~ " + isoDate(end)},
		{"Bin", fmt.Sprintf("%dm", barsBinSize)},
		{"Bars", fmt.Sprint(len(bars))},
	})
	widths := []int{12, 20, 10, 10, 10, 10, 12}
	PrintTableHeader([]string{"Security", "Time", "Open", "High", "Low", "Close", "Volume"}, widths)
	for i, b := range bars {
		if barsLimit > 0 && i >= barsLimit {
			PrintInfo(fmt.Sprintf("... %d more", len(bars)-i))
			break
		}
		PrintTableRow([]string{
			b.SecurityID,
			b.Timestamp.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.3f", b.Open),
			fmt.Sprintf("%.3f", b.High),
			fmt.Sprintf("%.3f", b.Low),
			fmt.Sprintf("%.3f", b.Close),
			fmt.Sprint(b.Volume),
		}, widths)
	}
	return nil
}

// printRecords prints up to --limit records; fields nil = every value column
func printRecords(table contracts.Table, fields []string) {
	if len(table) == 0 {
		PrintInfo("No rows")
		return
	}
	if len(fields) == 0 {
		fields = sortedKeys(table[0].Values)
	}

	columns := append([]string{"Date", "Security"}, fields...)
	widths := make([]int, len(columns))
	for i := range widths {
		widths[i] = 12
	}
	PrintTableHeader(columns, widths)
	for i, r := range table {
		if barsLimit > 0 && i >= barsLimit {
			PrintInfo(fmt.Sprintf("... %d more", len(table)-i))
			break
		}
		values := []string{isoDate(r.Date), r.SecurityID}
		for _, f := range fields {
			v, _ := r.Value(f)
			values = append(values, formatValue(v))
		}
		PrintTableRow(values, widths)
	}
}
