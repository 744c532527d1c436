package project

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newFileStore(t *testing.T) *Store {
	t.Helper()
	return NewFile(filepath.Join(t.TempDir(), "projects.json"))
}

func TestFileStoreCRUD(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	rec, err := s.Put(ctx, Record{Name: "payments", Description: "ingest"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("put must assign an id")
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Fatal("put must stamp times")
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "payments" {
		t.Fatalf("name = %q", got.Name)
	}

	rec.SourceFile = "payments.csv"
	if _, err := s.Put(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.Get(ctx, rec.ID)
	if got.SourceFile != "payments.csv" {
		t.Fatalf("sourceFile = %q", got.SourceFile)
	}

	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	ctx := context.Background()

	first := NewFile(path)
	rec, err := first.Put(ctx, Record{Name: "orders"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	second := NewFile(path)
	got, err := second.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Name != "orders" {
		t.Fatalf("name = %q", got.Name)
	}
}

func TestFileStoreListOrdersByCreation(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	a, _ := s.Put(ctx, Record{Name: "a"})
	b, _ := s.Put(ctx, Record{Name: "b"})

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d", len(recs))
	}
	if recs[0].ID != a.ID || recs[1].ID != b.ID {
		t.Fatalf("order = %s, %s", recs[0].Name, recs[1].Name)
	}
}

func TestNormalizeDefaultsName(t *testing.T) {
	rec := normalize(Record{ID: " p1 ", Name: "  "})
	if rec.ID != "p1" {
		t.Fatalf("id = %q", rec.ID)
	}
	if rec.Name != "Project" {
		t.Fatalf("name = %q", rec.Name)
	}
}

func TestNewIDUnique(t *testing.T) {
	if NewID() == NewID() {
		t.Fatal("ids must differ")
	}
}
