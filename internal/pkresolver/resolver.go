// Package pkresolver determines the primary-key columns of a table, preferring
// catalog metadata and falling back to a caller-supplied selection when the
// catalog reports none (common for views and for dialects whose key catalog
// is unpopulated).
package pkresolver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
	"github.com/zlovtnik/graphqlScala-sub003/internal/query"
)

var (
	// ErrNoKeyColumns means neither the catalog nor the selector produced
	// a usable key set.
	ErrNoKeyColumns = errors.New("no primary key columns resolved")
	// ErrSelectionOutsideTable means the selector picked a column the table
	// does not have.
	ErrSelectionOutsideTable = errors.New("selected key column not in table")
)

// MetadataSource loads the column catalog for a normalized table name.
type MetadataSource interface {
	Load(ctx context.Context, table string) (model.ColumnSet, error)
}

// SelectFunc chooses key columns from the table's columns when the catalog
// has no primary key. A nil SelectFunc disables the fallback.
type SelectFunc func(table string, columns []model.ColumnMeta) ([]string, error)

// Resolver caches resolved key sets per table.
type Resolver struct {
	meta   MetadataSource
	choose SelectFunc

	mu    sync.Mutex
	cache map[string][]string
}

// New builds a Resolver. choose may be nil.
func New(meta MetadataSource, choose SelectFunc) *Resolver {
	return &Resolver{meta: meta, choose: choose, cache: make(map[string][]string)}
}

// Resolve returns the table's key column names in catalog order. Results are
// cached for the resolver's lifetime; selector answers are validated against
// the table's actual columns before caching.
func (r *Resolver) Resolve(ctx context.Context, rawTable string) ([]string, error) {
	table, err := query.NormalizeIdentifier(rawTable, "table")
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if cached, ok := r.cache[table]; ok {
		r.mu.Unlock()
		out := make([]string, len(cached))
		copy(out, cached)
		return out, nil
	}
	r.mu.Unlock()

	cols, err := r.meta.Load(ctx, table)
	if err != nil {
		return nil, err
	}

	var keys []string
	if pk := cols.PrimaryKey(); len(pk) > 0 {
		keys = pk
	} else if r.choose != nil {
		chosen, err := r.choose(table, cols.Columns())
		if err != nil {
			return nil, fmt.Errorf("key selection for %s: %w", table, err)
		}
		for _, raw := range chosen {
			name, err := query.NormalizeIdentifier(raw, "key column")
			if err != nil {
				return nil, err
			}
			meta, ok := cols.Resolve(name)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrSelectionOutsideTable, table, raw)
			}
			keys = append(keys, meta.Name)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoKeyColumns, table)
	}

	r.mu.Lock()
	r.cache[table] = keys
	r.mu.Unlock()

	out := make([]string, len(keys))
	copy(out, keys)
	return out, nil
}

// Invalidate drops the cached key set for a table, or all tables when the
// name is empty.
func (r *Resolver) Invalidate(rawTable string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rawTable == "" {
		r.cache = make(map[string][]string)
		return
	}
	if table, err := query.NormalizeIdentifier(rawTable, "table"); err == nil {
		delete(r.cache, table)
	}
}
