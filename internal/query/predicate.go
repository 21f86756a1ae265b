package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

var (
	// ErrUnknownFilterColumn reports a filter referencing a column absent
	// from the loaded metadata.
	ErrUnknownFilterColumn = errors.New("unknown filter column")

	// ErrMultipleFilterGroups reports more than one top-level filter group;
	// the engine supports exactly one, with no nesting.
	ErrMultipleFilterGroups = errors.New("only one filter group is supported per request")
)

// defaultGlobalSearchColumnLimit caps how many text columns a global search
// expands over when the caller does not name columns explicitly.
const defaultGlobalSearchColumnLimit = 8

// PlaceholderFunc returns the SQL bind placeholder for a 1-based index.
type PlaceholderFunc func(index int) string

// QuoteFunc returns the dialect-quoted form of a validated identifier.
type QuoteFunc func(name string) string

// Predicate is a compiled WHERE fragment plus its ordered bind values.
// NextIndex is the next free bind index, so a statement can share one
// strictly increasing index between SET-clause and WHERE-clause binds.
type Predicate struct {
	SQL       string
	Binds     []interface{}
	NextIndex int
}

// Empty reports whether the predicate contains no conditions.
func (p *Predicate) Empty() bool {
	return p == nil || p.SQL == ""
}

// Compiler turns filters, a filter group, and a global-search descriptor
// into one parameterized WHERE clause for a specific SQL dialect.
type Compiler struct {
	Quote       QuoteFunc
	Placeholder PlaceholderFunc
}

// Compile builds the predicate for one statement. The three fragment kinds
// combine with a fixed rule: explicit filters join with AND in input order,
// the single group joins its members with the group operator and is
// parenthesized, and a global search expands to one LIKE per target column
// OR'd together; the resulting fragments are AND'ed at the top level.
//
// startIndex is the 1-based index of the first bind placeholder, letting
// UPDATE statements start WHERE binds after their SET binds.
func (c Compiler) Compile(cols model.ColumnSet, filters []model.Filter, groups []model.FilterGroup, search *model.GlobalSearch, startIndex int) (*Predicate, error) {
	if startIndex < 1 {
		startIndex = 1
	}
	p := &Predicate{NextIndex: startIndex}
	var clauses []string

	for _, f := range filters {
		clause, err := c.compileFilter(cols, f, p)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	groupClause, err := c.compileGroup(cols, groups, p)
	if err != nil {
		return nil, err
	}
	if groupClause != "" {
		clauses = append(clauses, groupClause)
	}

	searchClause, err := c.compileGlobalSearch(cols, search, p)
	if err != nil {
		return nil, err
	}
	if searchClause != "" {
		clauses = append(clauses, searchClause)
	}

	p.SQL = strings.Join(clauses, " AND ")
	return p, nil
}

// compileFilter emits `"COL" <op> <placeholder>` and appends the bind value.
func (c Compiler) compileFilter(cols model.ColumnSet, f model.Filter, p *Predicate) (string, error) {
	name, err := NormalizeIdentifier(f.Column, "filter column")
	if err != nil {
		return "", err
	}
	meta, ok := cols.Resolve(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFilterColumn, f.Column)
	}
	symbol, err := NormalizeOperator(f.Operator)
	if err != nil {
		return "", err
	}
	ph := c.addBind(p, f.Value)
	return c.Quote(meta.Name) + " " + symbol + " " + ph, nil
}

func (c Compiler) compileGroup(cols model.ColumnSet, groups []model.FilterGroup, p *Predicate) (string, error) {
	var group *model.FilterGroup
	for i := range groups {
		if len(groups[i].Filters) == 0 {
			continue
		}
		if group != nil {
			return "", ErrMultipleFilterGroups
		}
		group = &groups[i]
	}
	if group == nil {
		return "", nil
	}

	joiner := " AND "
	if strings.EqualFold(group.Operator, "OR") {
		joiner = " OR "
	}

	parts := make([]string, 0, len(group.Filters))
	for _, f := range group.Filters {
		clause, err := c.compileFilter(cols, f, p)
		if err != nil {
			return "", err
		}
		parts = append(parts, clause)
	}
	return "(" + strings.Join(parts, joiner) + ")", nil
}

// compileGlobalSearch expands the search term into OR'd LIKE conditions over
// the requested columns, or over the table's text columns when none were
// named. A blank term or zero resolvable columns yields no clause.
func (c Compiler) compileGlobalSearch(cols model.ColumnSet, search *model.GlobalSearch, p *Predicate) (string, error) {
	if search == nil {
		return "", nil
	}
	term := strings.TrimSpace(search.Term)
	if term == "" {
		return "", nil
	}

	var targets []string
	if len(search.Columns) > 0 {
		seen := make(map[string]struct{}, len(search.Columns))
		for _, col := range search.Columns {
			name, err := NormalizeIdentifier(col, "filter column")
			if err != nil {
				return "", err
			}
			meta, ok := cols.Resolve(name)
			if !ok {
				return "", fmt.Errorf("%w: %q", ErrUnknownFilterColumn, col)
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			targets = append(targets, meta.Name)
		}
	} else {
		targets = cols.TextColumns(defaultGlobalSearchColumnLimit)
	}
	if len(targets) == 0 {
		return "", nil
	}

	pattern := likePattern(term, search.MatchMode)
	if !search.CaseSensitive {
		pattern = strings.ToUpper(pattern)
	}

	parts := make([]string, 0, len(targets))
	for _, col := range targets {
		target := c.Quote(col)
		if !search.CaseSensitive {
			target = "UPPER(" + target + ")"
		}
		ph := c.addBind(p, pattern)
		parts = append(parts, target+" LIKE "+ph)
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

func (c Compiler) addBind(p *Predicate, value interface{}) string {
	ph := c.Placeholder(p.NextIndex)
	p.NextIndex++
	p.Binds = append(p.Binds, value)
	return ph
}

func likePattern(term, matchMode string) string {
	switch strings.ToUpper(strings.TrimSpace(matchMode)) {
	case "EXACT":
		return term
	case "STARTS_WITH":
		return term + "%"
	case "ENDS_WITH":
		return "%" + term
	default: // CONTAINS
		return "%" + term + "%"
	}
}
