package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zlovtnik/graphqlScala-sub003/internal/query"
)

// AllowList is the fixed set of tables the engine may operate on. It is
// built once at startup and never mutated afterwards.
type AllowList struct {
	tables map[string]struct{}
	names  []string
}

// NewAllowList normalizes and validates the configured table names. Every
// entry must pass the identifier grammar; the list must not be empty.
func NewAllowList(tables []string) (*AllowList, error) {
	if len(tables) == 0 {
		return nil, errors.New("table allow-list must not be empty")
	}
	set := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		name, err := query.NormalizeIdentifier(t, "table")
		if err != nil {
			return nil, fmt.Errorf("allow-list entry %q: %w", t, err)
		}
		set[name] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return &AllowList{tables: set, names: names}, nil
}

// Allows reports whether a normalized table name is permitted.
func (a *AllowList) Allows(table string) bool {
	_, ok := a.tables[table]
	return ok
}

// Tables returns the permitted table names, sorted.
func (a *AllowList) Tables() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}
