package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/refdata/internal/contracts"
)

// refCmd represents the ref command
var refCmd = &cobra.Command{
	Use:   "ref",
	Short: "레퍼런스 정보 조회",
	Long: `시점 기준 종목 분류, 상장 정보, 선물 계약, 배당 조회.

Subcommands:
  classification  - 업종 분류 (--exchange, --alive)
  stocks          - 상장 정보
  futures         - 선물 계약 (--ticker, --listed)
  dividends       - 배당 이력
  delisted        - 기간 내 상장폐지 종목

Example:
  go run ./cmd/refdata ref classification --date 2020-05-31 --exchange SH --alive
  go run ./cmd/refdata ref futures --date 2020-05-31 --ticker IF --listed
  go run ./cmd/refdata ref dividends 600000.SH --start 2015-01-01 --end 2020-12-31`,
}

var refClassificationCmd = &cobra.Command{
	Use:   "classification",
	Short: "업종 분류 조회",
	RunE:  runRefClassification,
}

var refStocksCmd = &cobra.Command{
	Use:   "stocks",
	Short: "상장 정보 조회",
	RunE:  runRefStocks,
}

var refFuturesCmd = &cobra.Command{
	Use:   "futures",
	Short: "선물 계약 조회",
	RunE:  runRefFutures,
}

var refDividendsCmd = &cobra.Command{
	Use:   "dividends <security>",
	Short: "배당 이력 조회",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefDividends,
}

var refDelistedCmd = &cobra.Command{
	Use:   "delisted",
	Short: "상장폐지 종목 조회",
	RunE:  runRefDelisted,
}

var (
	refDate     string
	refExchange string
	refAlive    bool
	refTicker   string
	refListed   bool
	refStart    string
	refEnd      string
	refRealized bool
)

func init() {
	rootCmd.AddCommand(refCmd)
	refCmd.AddCommand(refClassificationCmd, refStocksCmd, refFuturesCmd, refDividendsCmd, refDelistedCmd)

	// Flags
	refCmd.PersistentFlags().StringVar(&refDate, "date", "", "기준일 (YYYY-MM-DD, 기본: 오늘)")
	refCmd.PersistentFlags().StringVar(&refExchange, "exchange", "", "거래소 (SH|SZ, 기본: 전체)")

	refClassificationCmd.Flags().BoolVar(&refAlive, "alive", false, "상장 중인 신규 분류만")
	refFuturesCmd.Flags().StringVar(&refTicker, "ticker", "", "계약 대상 (IF, IC, ...)")
	refFuturesCmd.Flags().BoolVar(&refListed, "listed", false, "기준일에 거래 중인 계약만")

	for _, c := range []*cobra.Command{refDividendsCmd, refDelistedCmd} {
		c.Flags().StringVar(&refStart, "start", "2000-01-01", "시작일")
		c.Flags().StringVar(&refEnd, "end", "", "종료일 (기본: 오늘)")
	}
	refDividendsCmd.Flags().BoolVar(&refRealized, "realized", true, "실시 완료된 배당만")
}

func runRefClassification(cmd *cobra.Command, args []string) error {
	date, err := parseDateArg(refDate)
	if err != nil {
		return err
	}
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	entries, err := d.refinfo.StockClassification(cmd.Context(), date, refExchange, d.cfg.Source.Country, refAlive)
	if err != nil {
		return err
	}

	PrintHeader("Stock Classification", [][2]string{{"Date", isoDate(date)}, {"Count", fmt.Sprint(len(entries))}})
	widths := []int{14, 8, 18, 18}
	PrintTableHeader([]string{"Security", "New", "Industry", "Sub-industry"}, widths)
	for _, e := range entries {
		PrintTableRow([]string{contracts.WindCode(e.SecID), fmt.Sprint(e.IsNew), e.IndustryName1, e.IndustryName2}, widths)
	}
	return nil
}

func runRefStocks(cmd *cobra.Command, args []string) error {
	date, err := parseDateArg(refDate)
	if err != nil {
		return err
	}
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	stocks, err := d.refinfo.StockInformation(cmd.Context(), date, refExchange, d.cfg.Source.Country)
	if err != nil {
		return err
	}

	PrintHeader("Stock Information", [][2]string{{"Date", isoDate(date)}, {"Count", fmt.Sprint(len(stocks))}})
	widths := []int{14, 12, 8, 12}
	PrintTableHeader([]string{"Security", "Name", "Status", "Listed"}, widths)
	for _, s := range stocks {
		PrintTableRow([]string{contracts.WindCode(s.SecID), s.ShortName, s.ListStatusCD, isoDate(s.ListDate)}, widths)
	}
	return nil
}

func runRefFutures(cmd *cobra.Command, args []string) error {
	date, err := parseDateArg(refDate)
	if err != nil {
		return err
	}
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	contractsInfo, err := d.refinfo.FuturesInformation(cmd.Context(), date, refTicker, refListed, d.cfg.Source.Country)
	if err != nil {
		return err
	}

	PrintHeader("Futures Contracts", [][2]string{{"Date", isoDate(date)}, {"Count", fmt.Sprint(len(contractsInfo))}})
	widths := []int{14, 10, 12, 12}
	PrintTableHeader([]string{"Contract", "Object", "Listed", "Last Trade"}, widths)
	for _, f := range contractsInfo {
		PrintTableRow([]string{f.SecID, f.ContractObject, isoDate(f.ListDate), isoDate(f.LastTradeDate)}, widths)
	}
	return nil
}

func runRefDividends(cmd *cobra.Command, args []string) error {
	start, err := parseDateArg(refStart)
	if err != nil {
		return err
	}
	end, err := parseDateArg(refEnd)
	if err != nil {
		return err
	}
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	table, err := d.source.FetchDividends(cmd.Context(), args[0], start, end, refRealized)
	if err != nil {
		return err
	}
	PrintHeader("Dividends", [][2]string{{"Security", args[0]}, {"Rows", fmt.Sprint(len(table))}})
	printRecords(table, nil)
	return nil
}

func runRefDelisted(cmd *cobra.Command, args []string) error {
	start, err := parseDateArg(refStart)
	if err != nil {
		return err
	}
	end, err := parseDateArg(refEnd)
	if err != nil {
		return err
	}
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	delisted, err := d.source.FetchDelistedStocks(cmd.Context(), start, end)
	if err != nil {
		return err
	}
	PrintHeader("Delisted", [][2]string{{"Period", isoDate(start) + " ~ " + isoDate(end)}, {"Count", fmt.Sprint(len(delisted))}})
	widths := []int{14, 12}
	PrintTableHeader([]string{"Security", "Delisted"}, widths)
	for _, id := range sortedDateKeys(delisted) {
		PrintTableRow([]string{id, isoDate(delisted[id])}, widths)
	}
	return nil
}
