package universe

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/refdata/internal/memo"
	"github.com/wonny/refdata/pkg/logger"
)

// Registry memoizes opened universes by name. Universes never refresh in
// place: Invalidate drops one so the next Open rebuilds it.
type Registry struct {
	catalog *Catalog
	opened  *memo.Memo[string, Universe]
	loading singleflight.Group
	logger  *logger.Logger
}

// NewRegistry wraps catalog with a memo of at most capacity universes.
func NewRegistry(catalog *Catalog, capacity int, log *logger.Logger) *Registry {
	return &Registry{
		catalog: catalog,
		opened:  memo.New[string, Universe](capacity),
		logger:  logger.OrNop(log).Component("universe"),
	}
}

// Catalog returns the underlying catalog.
func (r *Registry) Catalog() *Catalog { return r.catalog }

// Open returns the memoized universe or constructs it. Concurrent opens of
// one name share a single construction.
func (r *Registry) Open(ctx context.Context, name string) (Universe, error) {
	if u, ok := r.opened.Get(name); ok {
		return u, nil
	}
	v, err, _ := r.loading.Do(name, func() (interface{}, error) {
		return r.opened.GetOrLoad(name, func() (Universe, error) {
			u, err := r.catalog.Open(ctx, name)
			if err != nil {
				return nil, err
			}
			r.logger.WithFields(map[string]interface{}{
				"universe": name,
				"ever":     u.EverSeen().Len(),
			}).Info("Universe opened")
			return u, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return v.(Universe), nil
}

// Invalidate drops the memoized universe name.
func (r *Registry) Invalidate(name string) { r.opened.Invalidate(name) }

// Purge drops every memoized universe.
func (r *Registry) Purge() { r.opened.Purge() }
