package config_test

import (
	"fmt"
	"os"

	"github.com/wonny/refdata/pkg/config"
)

// ExampleLoad routes the bulk source through ClickHouse with a smaller chunk
// size and a throttled vendor feed.
func ExampleLoad() {
	env := map[string]string{
		"DATABASE_URL":          "postgres://refdata@localhost:5432/refdata",
		"ENV":                   "production",
		"CLICKHOUSE_ENABLED":    "true",
		"CLICKHOUSE_ADDR":       "ch-1:9000",
		"CLICKHOUSE_DATABASE":   "wind",
		"SOURCE_BACKEND":        "clickhouse",
		"SOURCE_CHUNK_SIZE":     "50",
		"SOURCE_LOOKBACK_DAYS":  "30",
		"SOURCE_LOOKAHEAD_DAYS": "0",
		"FEED_RATE_LIMIT":       "2.5",
		"FEED_TIMEOUT":          "10s",
	}
	for k, v := range env {
		os.Setenv(k, v)
	}
	defer func() {
		for k := range env {
			os.Unsetenv(k)
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("source: %s via %s/%s\n", cfg.Source.Backend, cfg.ClickHouse.Addr, cfg.ClickHouse.Database)
	fmt.Printf("chunk size: %d, padding: -%d/+%d days\n", cfg.Source.ChunkSize, cfg.Source.LookbackDays, cfg.Source.LookaheadDays)
	fmt.Printf("feed: %.1f req/s, timeout %s\n", cfg.Feed.RateLimit, cfg.Feed.Timeout)

	// clickhouse 백엔드는 CLICKHOUSE_ENABLED 없이 거부됨
	os.Setenv("CLICKHOUSE_ENABLED", "false")
	_, err = config.Load()
	fmt.Println(err)

	// Output:
	// source: clickhouse via ch-1:9000/wind
	// chunk size: 50, padding: -30/+0 days
	// feed: 2.5 req/s, timeout 10s
	// config validation failed: SOURCE_BACKEND=clickhouse requires CLICKHOUSE_ENABLED
}
