package engine

import (
	"reflect"
	"testing"
)

func TestNewAllowList(t *testing.T) {
	allow, err := NewAllowList([]string{"users", " audit_sessions ", "USERS"})
	if err != nil {
		t.Fatal(err)
	}

	if !allow.Allows("USERS") {
		t.Error("USERS should be allowed")
	}
	if !allow.Allows("AUDIT_SESSIONS") {
		t.Error("AUDIT_SESSIONS should be allowed")
	}
	if allow.Allows("users") {
		t.Error("Allows expects normalized names; lowercase should not match")
	}
	if allow.Allows("ORDERS") {
		t.Error("ORDERS was never listed")
	}

	want := []string{"AUDIT_SESSIONS", "USERS"}
	if got := allow.Tables(); !reflect.DeepEqual(got, want) {
		t.Errorf("Tables() = %v, want %v", got, want)
	}
}

func TestNewAllowListRejectsEmpty(t *testing.T) {
	if _, err := NewAllowList(nil); err == nil {
		t.Error("empty allow-list accepted")
	}
}

func TestNewAllowListRejectsInvalidEntry(t *testing.T) {
	if _, err := NewAllowList([]string{"users; drop table users"}); err == nil {
		t.Error("invalid identifier accepted into allow-list")
	}
}

func TestTablesReturnsCopy(t *testing.T) {
	allow, err := NewAllowList([]string{"users"})
	if err != nil {
		t.Fatal(err)
	}
	tables := allow.Tables()
	tables[0] = "MUTATED"
	if got := allow.Tables()[0]; got != "USERS" {
		t.Errorf("internal slice mutated: %q", got)
	}
}
