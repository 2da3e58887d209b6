package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/refdata/internal/api"
	"github.com/wonny/refdata/internal/api/handlers"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                          - Health check
  GET  /metrics                         - Prometheus metrics
  GET  /api/universes                   - 유니버스 목록
  GET  /api/universes/{name}/members    - 구성 종목 (?date=)
  GET  /api/universes/{name}/weights    - 구성 비중 (?date=)
  GET  /api/universes/{name}/ever       - 누적 편입 종목
  GET  /api/calendar/prev               - n 거래일 전 (?date=&n=)
  GET  /api/calendar/next               - n 거래일 후 (?date=&n=)

Example:
  go run ./cmd/refdata serve
  go run ./cmd/refdata serve --port 8089 --calendar-start 2005-01-01`,
	RunE: runServe,
}

var (
	servePort          string
	serveCalendarStart string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (기본: PORT)")
	serveCmd.Flags().StringVar(&serveCalendarStart, "calendar-start", "2005-01-01", "거래일 달력 시작일")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== refdata API Server ===")
	ctx := cmd.Context()

	calStart, err := parseDateArg(serveCalendarStart)
	if err != nil {
		return err
	}

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	port := d.cfg.Port
	if servePort != "" {
		port = servePort
	}
	log := d.log

	// 1. Trading calendar through next year
	cal, err := d.tradingCalendar(ctx, calStart, time.Now().AddDate(1, 0, 0))
	if err != nil {
		return err
	}

	// 2. Handlers and router
	var metricsHandler = d.metrics.Handler()
	if !d.cfg.MetricsEnabled {
		metricsHandler = nil
	}
	router := api.NewRouter(
		handlers.NewUniverseHandler(d.registry, log),
		handlers.NewCalendarHandler(cal, log),
		metricsHandler,
		log,
	)
	server := api.New(":"+port, log, router)

	log.WithFields(map[string]interface{}{
		"port":          port,
		"trading_dates": cal.Len(),
	}).Info("API server starting")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", port)
	fmt.Println("\nPress Ctrl+C to stop")

	// 3. Serve until interrupted, then drain
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Run(runCtx)
}
