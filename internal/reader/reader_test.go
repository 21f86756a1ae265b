package reader_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/zlovtnik/graphqlScala-sub003/internal/catalog"
	"github.com/zlovtnik/graphqlScala-sub003/internal/dialect"
	"github.com/zlovtnik/graphqlScala-sub003/internal/engine"
	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
	"github.com/zlovtnik/graphqlScala-sub003/internal/reader"
)

func newTestReader(t *testing.T) *reader.Reader {
	t.Helper()
	d, err := dialect.Get("sqlite")
	if err != nil {
		t.Fatal(err)
	}
	db, err := sqlx.Open(d.DriverName(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE "USERS" (
		"ID" TEXT PRIMARY KEY,
		"USERNAME" TEXT NOT NULL,
		"STATUS" TEXT,
		"PASSWORD_HASH" TEXT
	)`)
	if err != nil {
		t.Fatal(err)
	}
	seed := []struct{ id, username, status, hash string }{
		{"u-1", "alice", "ACTIVE", "h1"},
		{"u-2", "bob", "ACTIVE", "h2"},
		{"u-3", "carol", "DISABLED", "h3"},
	}
	for _, s := range seed {
		_, err := db.Exec(`INSERT INTO "USERS" VALUES (?, ?, ?, ?)`,
			s.id, s.username, s.status, s.hash)
		if err != nil {
			t.Fatal(err)
		}
	}

	allow, err := engine.NewAllowList([]string{"USERS"})
	if err != nil {
		t.Fatal(err)
	}
	return reader.New(db, d, allow, catalog.NewLoader(db, d))
}

func TestQueryReturnsVisibleColumnsOnly(t *testing.T) {
	rd := newTestReader(t)

	res, err := rd.Query(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: model.OpSelect,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(res.Rows))
	}
	if res.TotalCount == nil || *res.TotalCount != 3 {
		t.Errorf("total = %v, want 3", res.TotalCount)
	}
	for _, row := range res.Rows {
		if _, leaked := row["PASSWORD_HASH"]; leaked {
			t.Fatal("sensitive column leaked into results")
		}
	}
	for _, col := range res.Columns {
		if col.Name == "PASSWORD_HASH" {
			t.Fatal("sensitive column leaked into column metadata")
		}
	}
}

func TestQueryWithFilter(t *testing.T) {
	rd := newTestReader(t)

	res, err := rd.Query(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: model.OpSelect,
		Filters:   []model.Filter{{Column: "STATUS", Operator: "EQ", Value: "ACTIVE"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(res.Rows))
	}
	if *res.TotalCount != 2 {
		t.Errorf("total = %d, want 2", *res.TotalCount)
	}
}

func TestQueryGlobalSearch(t *testing.T) {
	rd := newTestReader(t)

	res, err := rd.Query(context.Background(), model.ExecuteRequest{
		TableName:    "USERS",
		Operation:    model.OpSelect,
		GlobalSearch: &model.GlobalSearch{Term: "ALI"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("rows = %d, want 1 (alice)", len(res.Rows))
	}
	if res.Rows[0]["USERNAME"] != "alice" {
		t.Errorf("row = %v", res.Rows[0])
	}
}

func TestQueryPaginationAndOrdering(t *testing.T) {
	rd := newTestReader(t)

	limit, offset := 2, 1
	res, err := rd.Query(context.Background(), model.ExecuteRequest{
		TableName:      "USERS",
		Operation:      model.OpSelect,
		Limit:          &limit,
		Offset:         &offset,
		OrderBy:        "username",
		OrderDirection: "ASC",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Rows))
	}
	if res.Rows[0]["USERNAME"] != "bob" || res.Rows[1]["USERNAME"] != "carol" {
		t.Errorf("page = %v, %v", res.Rows[0]["USERNAME"], res.Rows[1]["USERNAME"])
	}
	// Total ignores pagination.
	if *res.TotalCount != 3 {
		t.Errorf("total = %d, want 3", *res.TotalCount)
	}
}

func TestQueryUnknownOrderColumn(t *testing.T) {
	rd := newTestReader(t)
	_, err := rd.Query(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: model.OpSelect,
		OrderBy:   "NO_SUCH",
	})
	if !errors.Is(err, reader.ErrUnknownOrderColumn) {
		t.Errorf("err = %v, want ErrUnknownOrderColumn", err)
	}
}

func TestQueryDisallowedTable(t *testing.T) {
	rd := newTestReader(t)
	_, err := rd.Query(context.Background(), model.ExecuteRequest{
		TableName: "SQLITE_MASTER",
		Operation: model.OpSelect,
	})
	if !errors.Is(err, engine.ErrTableNotAllowed) {
		t.Errorf("err = %v, want ErrTableNotAllowed", err)
	}
}
