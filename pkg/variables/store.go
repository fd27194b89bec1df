package variables

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gnana997/detachr/pkg/value"
)

// maxAliasDepth bounds alias chains independently of cycle detection.
const maxAliasDepth = 32

// StoreConfig holds the configuration for the variable store.
type StoreConfig struct {
	// CacheSize is the number of resolved (variable, scope) pairs kept.
	CacheSize int
}

// DefaultStoreConfig returns a store config with sensible defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{CacheSize: 4096}
}

// Store holds variable and collection definitions and resolves values for
// consuming nodes. Resolved values are memoized in an LRU keyed by
// variable id and mode scope.
//
// **Thread Safety:** Safe for concurrent use. Definitions are immutable
// after construction; Invalidate purges the cache.
type Store struct {
	vars        map[string]*Variable
	order       []string
	collections map[string]*Collection

	cache *lru.Cache[string, value.Raw]

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	logger *slog.Logger
}

// NewStore indexes the given definitions. Duplicate ids and variables that
// reference unknown collections are reported together.
func NewStore(vars []Variable, collections []Collection, config StoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultStoreConfig().CacheSize
	}

	cache, err := lru.New[string, value.Raw](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create resolution cache: %w", err)
	}

	s := &Store{
		vars:        make(map[string]*Variable, len(vars)),
		order:       make([]string, 0, len(vars)),
		collections: make(map[string]*Collection, len(collections)),
		cache:       cache,
		logger:      logger,
	}

	var errs []error
	for i := range collections {
		c := &collections[i]
		if c.ID == "" {
			errs = append(errs, fmt.Errorf("collections[%d]: id is required", i))
			continue
		}
		if _, dup := s.collections[c.ID]; dup {
			errs = append(errs, fmt.Errorf("collection %q: duplicate id", c.ID))
			continue
		}
		s.collections[c.ID] = c
	}
	for i := range vars {
		v := &vars[i]
		if v.ID == "" {
			errs = append(errs, fmt.Errorf("variables[%d]: id is required", i))
			continue
		}
		if _, dup := s.vars[v.ID]; dup {
			errs = append(errs, fmt.Errorf("variable %q: duplicate id", v.ID))
			continue
		}
		if v.CollectionID != "" {
			if _, ok := s.collections[v.CollectionID]; !ok {
				errs = append(errs, fmt.Errorf("variable %q: references unknown collection %q", v.ID, v.CollectionID))
			}
		}
		s.vars[v.ID] = v
		s.order = append(s.order, v.ID)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	logger.Debug("variable store initialized",
		"variables", len(s.vars),
		"collections", len(s.collections),
		"cache_size", config.CacheSize)
	return s, nil
}

// VariableByID returns the variable with the given id.
func (s *Store) VariableByID(ctx context.Context, id string) (*Variable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := s.vars[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return v, nil
}

// Variables returns every variable in definition order.
func (s *Store) Variables() []*Variable {
	out := make([]*Variable, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.vars[id])
	}
	return out
}

// Collection returns the collection with the given id.
func (s *Store) Collection(id string) (*Collection, bool) {
	c, ok := s.collections[id]
	return c, ok
}

// Resolve returns the concrete value of variable id as seen by a consumer
// with the given mode scope. A nil scope uses every collection's default
// mode. Aliases are followed until a concrete value is reached.
func (s *Store) Resolve(ctx context.Context, id string, scope ModeScope) (value.Raw, error) {
	if err := ctx.Err(); err != nil {
		return value.Raw{}, err
	}

	key := id
	if scope != nil {
		key = id + "\x00" + scope.Key()
	}
	if v, ok := s.cache.Get(key); ok {
		s.cacheHits.Add(1)
		return v, nil
	}
	s.cacheMisses.Add(1)

	seen := make(map[string]bool, 4)
	cur := id
	for depth := 0; ; depth++ {
		if depth >= maxAliasDepth || seen[cur] {
			return value.Raw{}, fmt.Errorf("%w: %s", ErrAliasCycle, id)
		}
		seen[cur] = true

		v, ok := s.vars[cur]
		if !ok {
			return value.Raw{}, fmt.Errorf("%w: %s", ErrNotFound, cur)
		}
		raw, err := s.valueForScope(v, scope)
		if err != nil {
			return value.Raw{}, err
		}
		next, isAlias := raw.AliasID()
		if !isAlias {
			s.cache.Add(key, raw)
			return raw, nil
		}
		s.logger.Debug("following variable alias", "from", cur, "to", next)
		cur = next
	}
}

// valueForScope picks the mode value: explicit mode, then the collection
// default, then the only value when the variable has exactly one.
func (s *Store) valueForScope(v *Variable, scope ModeScope) (value.Raw, error) {
	var candidates []string
	if scope != nil {
		if m, ok := scope.ExplicitMode(v.CollectionID); ok {
			candidates = append(candidates, m)
		}
	}
	if c, ok := s.collections[v.CollectionID]; ok {
		if c.DefaultModeID != "" {
			candidates = append(candidates, c.DefaultModeID)
		}
		if len(c.Modes) > 0 {
			candidates = append(candidates, c.Modes[0].ModeID)
		}
	}
	for _, m := range candidates {
		if raw, ok := v.ValuesByMode[m]; ok {
			return raw, nil
		}
	}
	if len(v.ValuesByMode) == 1 {
		for _, raw := range v.ValuesByMode {
			return raw, nil
		}
	}
	return value.Raw{}, fmt.Errorf("%w: %s", ErrNoValue, v.ID)
}

// Invalidate drops every memoized resolution.
func (s *Store) Invalidate() {
	s.cache.Purge()
}

// Stats returns store statistics.
func (s *Store) Stats() StoreStats {
	return StoreStats{
		Variables:   len(s.vars),
		Collections: len(s.collections),
		CacheHits:   s.cacheHits.Load(),
		CacheMisses: s.cacheMisses.Load(),
		CacheLen:    s.cache.Len(),
	}
}

func modesKey(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m[k])
		b.WriteByte(';')
	}
	return b.String()
}
