package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// calendarCmd represents the calendar command
var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "거래일 계산",
	Long: `영업일 테이블 기준 n 거래일 전/후 계산.

Example:
  go run ./cmd/refdata calendar prev 2020-01-06 --n 5
  go run ./cmd/refdata calendar next 20200103`,
}

var calendarPrevCmd = &cobra.Command{
	Use:   "prev <date>",
	Short: "n 거래일 전",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalendarStep(cmd, args[0], -1)
	},
}

var calendarNextCmd = &cobra.Command{
	Use:   "next <date>",
	Short: "n 거래일 후",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalendarStep(cmd, args[0], 1)
	},
}

var (
	calendarN int
)

func init() {
	rootCmd.AddCommand(calendarCmd)
	calendarCmd.AddCommand(calendarPrevCmd, calendarNextCmd)

	// Flags
	calendarCmd.PersistentFlags().IntVar(&calendarN, "n", 1, "거래일 수")
}

func runCalendarStep(cmd *cobra.Command, raw string, dir int) error {
	date, err := parseDateArg(raw)
	if err != nil {
		return err
	}
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	// n 거래일을 덮는 달력일 범위
	span := 2*calendarN + 30
	cal, err := d.tradingCalendar(cmd.Context(), date.AddDate(0, 0, -span), date.AddDate(0, 0, span))
	if err != nil {
		return err
	}

	var got time.Time
	if dir < 0 {
		got, err = cal.PrevTradingDate(date, calendarN)
	} else {
		got, err = cal.NextTradingDate(date, calendarN)
	}
	if err != nil {
		return err
	}

	PrintKeyValue("Date", isoDate(date), 8)
	PrintKeyValue("N", fmt.Sprint(dir*calendarN), 8)
	PrintKeyValue("Trading", isoDate(got), 8)
	return nil
}
