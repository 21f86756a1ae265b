package query

import (
	"errors"
	"testing"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "users", "USERS", false},
		{"already upper", "USERS", "USERS", false},
		{"trims whitespace", "  users  ", "USERS", false},
		{"underscore", "audit_dynamic_crud", "AUDIT_DYNAMIC_CRUD", false},
		{"dollar and hash", "tmp$col#1", "TMP$COL#1", false},
		{"digits after first", "t2", "T2", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"leading digit", "1users", "", true},
		{"leading underscore", "_users", "", true},
		{"embedded space", "user name", "", true},
		{"semicolon injection", "users; DROP TABLE users", "", true},
		{"quote injection", `users"`, "", true},
		{"comment injection", "users--", "", true},
		{"parenthesis", "users()", "", true},
		{"dot qualified", "schema.users", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeIdentifier(tt.input, "table")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeIdentifier(%q) = %q, want error", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidIdentifier) {
					t.Errorf("error %v is not ErrInvalidIdentifier", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeIdentifier(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeIdentifier(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdentifierIdempotent(t *testing.T) {
	once, err := NormalizeIdentifier("Users", "table")
	if err != nil {
		t.Fatal(err)
	}
	twice, err := NormalizeIdentifier(once, "table")
	if err != nil {
		t.Fatal(err)
	}
	if once != twice {
		t.Errorf("normalization not idempotent: %q != %q", once, twice)
	}
}

func TestNormalizeIdentifierMaxLength(t *testing.T) {
	long := "A"
	for i := 0; i < 127; i++ {
		long += "B"
	}
	if _, err := NormalizeIdentifier(long, "column"); err != nil {
		t.Errorf("128-char identifier rejected: %v", err)
	}
	if _, err := NormalizeIdentifier(long+"C", "column"); err == nil {
		t.Error("129-char identifier accepted")
	}
}

func TestNormalizeOperator(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"EQ", "=", false},
		{"eq", "=", false},
		{"NE", "<>", false},
		{"!=", "<>", false},
		{"<>", "<>", false},
		{"GT", ">", false},
		{"LT", "<", false},
		{"GE", ">=", false},
		{"LE", "<=", false},
		{"like", "LIKE", false},
		{" = ", "=", false},
		{"IN", "", true},
		{"BETWEEN", "", true},
		{"", "", true},
		{"= 1 OR 1=1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeOperator(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeOperator(%q) = %q, want error", tt.input, got)
				}
				if !errors.Is(err, ErrUnsupportedOperator) {
					t.Errorf("error %v is not ErrUnsupportedOperator", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeOperator(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeOperator(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
