package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedOperator reports a filter operator outside the fixed set.
var ErrUnsupportedOperator = errors.New("unsupported filter operator")

// operatorSymbols maps accepted operator spellings to the SQL symbol emitted
// into the WHERE clause. "!=" is normalized to "<>".
var operatorSymbols = map[string]string{
	"EQ":   "=",
	"NE":   "<>",
	"GT":   ">",
	"LT":   "<",
	"GE":   ">=",
	"LE":   "<=",
	"LIKE": "LIKE",
	"=":    "=",
	"<>":   "<>",
	"!=":   "<>",
	">":    ">",
	"<":    "<",
	">=":   ">=",
	"<=":   "<=",
}

// NormalizeOperator resolves an operator name or symbol alias to its SQL
// form, failing for anything outside the allow-list.
func NormalizeOperator(op string) (string, error) {
	symbol, ok := operatorSymbols[strings.ToUpper(strings.TrimSpace(op))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
	}
	return symbol, nil
}
