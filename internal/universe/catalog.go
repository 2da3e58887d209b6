package universe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/wonny/refdata/internal/contracts"
)

// Kind selects the universe variant of a catalog entry.
type Kind string

const (
	KindFixed          Kind = "fixed"
	KindClassification Kind = "classification"
	KindComposition    Kind = "composition"
	KindWholeMarket    Kind = "whole_market"
)

// Entry describes one named universe.
type Entry struct {
	Name      string   `yaml:"name" validate:"required"`
	Kind      Kind     `yaml:"kind" validate:"required,oneof=fixed classification composition whole_market"`
	IndexCode string   `yaml:"index_code" validate:"required_if=Kind composition"`
	Exchange  string   `yaml:"exchange"`
	Country   string   `yaml:"country"`
	Alive     bool     `yaml:"alive"`
	Members   []string `yaml:"members" validate:"required_if=Kind fixed"`
}

type catalogFile struct {
	Universes []Entry `yaml:"universes" validate:"dive"`
}

// DefaultEntries is the built-in catalog: the five index universes and whole A.
func DefaultEntries() []Entry {
	return []Entry{
		{Name: "上证综指", Kind: KindComposition, IndexCode: "000001.SH"},
		{Name: "上证50", Kind: KindComposition, IndexCode: "000016.SH"},
		{Name: "上证180", Kind: KindComposition, IndexCode: "000010.SH"},
		{Name: "沪深300", Kind: KindComposition, IndexCode: "399300.SZ"},
		{Name: "中证500", Kind: KindComposition, IndexCode: "000905.SH"},
		{Name: "全A", Kind: KindWholeMarket},
	}
}

// ParseCatalog decodes a YAML catalog. Unknown fields fail.
func ParseCatalog(r io.Reader) ([]Entry, error) {
	const op = "parse catalog"
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // 알 수 없는 필드 → 에러
	if err := dec.Decode(&f); err != nil {
		return nil, contracts.Configuration(op, "%v", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, contracts.Configuration(op, "%v", err)
	}
	return f.Universes, nil
}

// LoadCatalogFile reads a YAML catalog from path.
func LoadCatalogFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, contracts.Configuration("load catalog", "%v", err)
	}
	return ParseCatalog(bytes.NewReader(data))
}

// Deps are the collaborators needed to open catalog entries. An entry whose
// collaborator is nil fails to open with a ConfigurationError.
type Deps struct {
	Relational  contracts.RelationalBackend
	Listings    ListingSource
	History     HistorySource
	Composition CompositionOptions
}

// Catalog maps universe short names to their construction.
type Catalog struct {
	entries map[string]Entry
	deps    Deps
}

// NewCatalog indexes entries by name. Duplicate names are a ConfigurationError.
func NewCatalog(entries []Entry, deps Deps) (*Catalog, error) {
	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if err := validate.Struct(&e); err != nil {
			return nil, contracts.Configuration("new catalog", "%s: %v", e.Name, err)
		}
		if _, dup := byName[e.Name]; dup {
			return nil, contracts.Configuration("new catalog", "universe %q defined twice", e.Name)
		}
		byName[e.Name] = e
	}
	return &Catalog{entries: byName, deps: deps}, nil
}

// Names returns the known universe names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entry returns the entry registered under name.
func (c *Catalog) Entry(name string) (Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Open constructs the named universe. Unknown names are a ConfigurationError.
func (c *Catalog) Open(ctx context.Context, name string) (Universe, error) {
	const op = "open universe"
	e, ok := c.entries[name]
	if !ok {
		return nil, contracts.Configuration(op, "unrecognized universe name %q", name)
	}

	var (
		u   Universe
		err error
	)
	switch e.Kind {
	case KindFixed:
		u = NewFixed(e.Name, normalizeMembers(e.Members))

	case KindWholeMarket:
		if c.deps.Listings == nil {
			return nil, contracts.Configuration(op, "%s: no listing source configured", name)
		}
		u, err = LoadWholeMarket(ctx, c.deps.Listings, e.Name)

	case KindComposition:
		if c.deps.Relational == nil {
			return nil, contracts.Configuration(op, "%s: no relational backend configured", name)
		}
		u, err = LoadComposition(ctx, c.deps.Relational, e.Name, e.IndexCode, c.deps.Composition)

	case KindClassification:
		if c.deps.History == nil {
			return nil, contracts.Configuration(op, "%s: no document backend configured", name)
		}
		u, err = LoadClassification(ctx, c.deps.History, e.Name, e.Country, e.Exchange, e.Alive)

	default:
		return nil, contracts.Configuration(op, "%s: unknown kind %q", name, e.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, name, err)
	}
	return u, nil
}

// normalizeMembers turns bare numeric tickers (600000, 1) into suffixed ids.
func normalizeMembers(members []string) []string {
	out := make([]string, len(members))
	for i, m := range members {
		if n, err := strconv.Atoi(m); err == nil {
			out[i] = contracts.SecurityCode(n, contracts.TickerExchange(n))
			continue
		}
		out[i] = contracts.WindCode(m)
	}
	return out
}

func (e Entry) String() string {
	return fmt.Sprintf("%s (%s)", e.Name, e.Kind)
}
