package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/refdata/internal/backend/clickhouse"
	"github.com/wonny/refdata/internal/backend/docstore"
	"github.com/wonny/refdata/internal/backend/postgres"
	"github.com/wonny/refdata/internal/bindata"
	"github.com/wonny/refdata/internal/calendar"
	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/internal/refinfo"
	"github.com/wonny/refdata/internal/source"
	"github.com/wonny/refdata/internal/universe"
	chclient "github.com/wonny/refdata/pkg/clickhouse"
	"github.com/wonny/refdata/pkg/config"
	"github.com/wonny/refdata/pkg/database"
	"github.com/wonny/refdata/pkg/logger"
	"github.com/wonny/refdata/pkg/metrics"
	"github.com/wonny/refdata/pkg/redis"
)

// deps holds every collaborator a command may need
// ⭐ SSOT: 의존성 조립은 이 파일에서만
type deps struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Recorder

	db    *database.DB
	ch    *chclient.Client
	redis *redis.Client

	relational contracts.RelationalBackend
	columnar   contracts.RelationalBackend
	store      *docstore.Store
	docs       contracts.DocumentBackend

	refinfo  *refinfo.Service
	source   *source.Source
	registry *universe.Registry
}

// openDeps wires config → logger → stores → services
func openDeps(ctx context.Context) (*deps, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if catalogFile != "" {
		cfg.UniverseCatalog = catalogFile
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	d := &deps{cfg: cfg, log: log, metrics: metrics.New()}

	// 3. Connect to database
	d.db, err = database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	d.relational = postgres.New(d.db.Pool, log, d.metrics)

	// 4. Optional columnar store
	if cfg.ClickHouse.Enabled {
		d.ch, err = chclient.New(ctx, cfg)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		d.columnar = clickhouse.New(d.ch.DB(), log, d.metrics)
	}
	if cfg.Source.Backend == "clickhouse" {
		d.relational = d.columnar
	}

	// 5. Document store behind the Redis cache
	d.store, err = docstore.New(d.db.Pool, cfg.Database.DocumentTable, log)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.redis, err = redis.New(ctx, cfg)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	d.docs = docstore.NewCached(d.store, redis.NewCache(d.redis, "refdata:docs"), cfg.Redis.TTL, log, d.metrics)

	// 6. Services
	d.refinfo, err = refinfo.New(d.docs, refinfo.NewMemo(cfg.Source.MemoEntries), log)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.source, err = source.New(d.relational, source.Options{ChunkSize: cfg.Source.ChunkSize}, log, d.metrics)
	if err != nil {
		d.Close()
		return nil, err
	}

	// 7. Universe catalog
	entries := universe.DefaultEntries()
	if cfg.UniverseCatalog != "" {
		entries, err = universe.LoadCatalogFile(cfg.UniverseCatalog)
		if err != nil {
			d.Close()
			return nil, err
		}
	}
	catalog, err := universe.NewCatalog(entries, universe.Deps{
		Relational: d.relational,
		Listings:   d.source,
		History:    d.refinfo,
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	d.registry = universe.NewRegistry(catalog, cfg.Source.MemoEntries, log)

	log.WithFields(map[string]interface{}{
		"backend":    cfg.Source.Backend,
		"clickhouse": cfg.ClickHouse.Enabled,
		"redis":      cfg.Redis.Enabled,
		"universes":  len(catalog.Names()),
	}).Debug("Dependencies ready")

	return d, nil
}

// tradingCalendar loads business dates from the relational store, falling
// back to the trading dates document when the table is empty.
func (d *deps) tradingCalendar(ctx context.Context, start, end time.Time) (*calendar.Calendar, error) {
	cal, err := calendar.LoadRelational(ctx, d.source, start, end)
	if err != nil {
		return nil, err
	}
	if cal.Len() > 0 {
		return cal, nil
	}
	d.log.Debug("Business date table empty, using trading dates document")
	return calendar.LoadDocument(ctx, d.refinfo, d.cfg.Source.Country)
}

// binSource resolves k-line tables on the columnar store when configured.
func (d *deps) binSource(ctx context.Context) (*bindata.Source, error) {
	backend := d.columnar
	if backend == nil {
		backend = d.relational
	}
	return bindata.New(ctx, backend, bindata.Options{}, d.log, d.metrics)
}

// cachedOptions builds padding options from config.
func (d *deps) cachedOptions(unpadded bool) source.CachedOptions {
	return source.CachedOptions{
		LookbackDays:  d.cfg.Source.LookbackDays,
		LookaheadDays: d.cfg.Source.LookaheadDays,
		Unpadded:      unpadded,
	}
}

// Close releases every open connection.
func (d *deps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.ch != nil {
		_ = d.ch.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}
