package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/internal/universe"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "유니버스 조회",
	Long: `날짜 기준 유니버스 구성 종목 조회.

Subcommands:
  list     - 등록된 유니버스 목록
  members  - 해당 날짜의 구성 종목
  weights  - 지수 구성 비중 (composition 유니버스만)
  ever     - 한 번이라도 편입된 종목

Example:
  go run ./cmd/refdata universe members 沪深300 --date 2020-05-31
  go run ./cmd/refdata universe weights 上证50 --date 20200531`,
}

var universeListCmd = &cobra.Command{
	Use:   "list",
	Short: "등록된 유니버스 목록",
	RunE:  runUniverseList,
}

var universeMembersCmd = &cobra.Command{
	Use:   "members <name>",
	Short: "구성 종목 조회",
	Args:  cobra.ExactArgs(1),
	RunE:  runUniverseMembers,
}

var universeWeightsCmd = &cobra.Command{
	Use:   "weights <name>",
	Short: "구성 비중 조회",
	Args:  cobra.ExactArgs(1),
	RunE:  runUniverseWeights,
}

var universeEverCmd = &cobra.Command{
	Use:   "ever <name>",
	Short: "누적 편입 종목 조회",
	Args:  cobra.ExactArgs(1),
	RunE:  runUniverseEver,
}

var (
	universeDate string
)

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.AddCommand(universeListCmd, universeMembersCmd, universeWeightsCmd, universeEverCmd)

	// Flags
	for _, c := range []*cobra.Command{universeMembersCmd, universeWeightsCmd} {
		c.Flags().StringVar(&universeDate, "date", "", "기준일 (YYYY-MM-DD, 기본: 오늘)")
	}
}

func runUniverseList(cmd *cobra.Command, args []string) error {
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	catalog := d.registry.Catalog()
	PrintHeader("Universes", nil)
	PrintTableHeader([]string{"Name", "Kind", "Index"}, []int{12, 16, 12})
	for _, name := range catalog.Names() {
		e, _ := catalog.Entry(name)
		PrintTableRow([]string{e.Name, string(e.Kind), e.IndexCode}, []int{12, 16, 12})
	}
	return nil
}

func runUniverseMembers(cmd *cobra.Command, args []string) error {
	date, err := parseDateArg(universeDate)
	if err != nil {
		return err
	}
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	u, err := d.registry.Open(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	set, err := u.MemberSet(date)
	if err != nil {
		return err
	}

	fields := [][2]string{{"Date", isoDate(date)}, {"Members", fmt.Sprint(set.Len())}}
	if c, ok := u.(*universe.Composition); ok {
		if snap, err := c.SnapshotDate(date); err == nil {
			fields = append(fields, [2]string{"Snapshot", isoDate(snap)})
		}
	}
	PrintHeader(u.Name(), fields)
	PrintColumns(set.Sorted(), 5)
	return nil
}

func runUniverseWeights(cmd *cobra.Command, args []string) error {
	date, err := parseDateArg(universeDate)
	if err != nil {
		return err
	}
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	u, err := d.registry.Open(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	composite, ok := u.(universe.Composite)
	if !ok {
		return contracts.Configuration("universe weights", "universe %q has no weights", args[0])
	}
	weights, err := composite.CompositeWeights(date)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(weights))
	total := 0.0
	for id, w := range weights {
		ids = append(ids, id)
		total += w
	}
	// 비중 내림차순
	sort.Slice(ids, func(i, j int) bool {
		if weights[ids[i]] != weights[ids[j]] {
			return weights[ids[i]] > weights[ids[j]]
		}
		return ids[i] < ids[j]
	})

	PrintHeader(u.Name(), [][2]string{{"Date", isoDate(date)}, {"Total", fmt.Sprintf("%.6f", total)}})
	PrintTableHeader([]string{"Security", "Weight"}, []int{12, 10})
	for _, id := range ids {
		PrintTableRow([]string{id, fmt.Sprintf("%.6f", weights[id])}, []int{12, 10})
	}
	return nil
}

func runUniverseEver(cmd *cobra.Command, args []string) error {
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	u, err := d.registry.Open(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	ever := u.EverSeen()
	PrintHeader(u.Name(), [][2]string{{"Ever", fmt.Sprint(ever.Len())}})
	PrintColumns(ever.Sorted(), 5)
	return nil
}
