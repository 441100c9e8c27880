package collections

import (
	"context"
	"testing"

	"github.com/tracesearch/trace-ablate/internal/pkg/errors"
)

func doc(id string, extra map[string]any) Document {
	d := Document{KeyField: id}
	for k, v := range extra {
		d[k] = v
	}
	return d
}

func TestMemoryStore_EnsureAndExists(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	exists, err := s.Exists(ctx, "AblationLocationActivity")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("collection exists before EnsureCollection")
	}

	if err := s.EnsureCollection(ctx, "AblationLocationActivity"); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	exists, err = s.Exists(ctx, "AblationLocationActivity")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Error("collection missing after EnsureCollection")
	}

	// Idempotent.
	if err := s.EnsureCollection(ctx, "AblationLocationActivity"); err != nil {
		t.Fatalf("second EnsureCollection: %v", err)
	}
}

func TestMemoryStore_MissingCollection(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.ReadAll(ctx, "nope"); !errors.IsNotFound(err) {
		t.Errorf("ReadAll on missing collection: expected not-found, got %v", err)
	}
	if err := s.RemoveAll(ctx, "nope"); !errors.IsNotFound(err) {
		t.Errorf("RemoveAll on missing collection: expected not-found, got %v", err)
	}
}

func TestMemoryStore_InsertReadRemove(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	col := "AblationMusicActivity"

	if err := s.EnsureCollection(ctx, col); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}

	docs := []Document{
		doc("a", map[string]any{"artist": "Radiohead"}),
		doc("b", map[string]any{"artist": "Portishead"}),
		doc("c", map[string]any{"artist": "Björk"}),
	}
	if err := s.BulkInsert(ctx, col, docs); err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}

	all, err := s.ReadAll(ctx, col)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(all))
	}
	// Insertion order preserved.
	for i, want := range []string{"a", "b", "c"} {
		if all[i].Key() != want {
			t.Errorf("document %d key = %s, want %s", i, all[i].Key(), want)
		}
	}

	n, err := Count(ctx, s, col)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}

	if err := s.RemoveAll(ctx, col); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	n, _ = Count(ctx, s, col)
	if n != 0 {
		t.Errorf("Count after RemoveAll = %d, want 0", n)
	}

	// Collection survives emptying.
	exists, _ := s.Exists(ctx, col)
	if !exists {
		t.Error("collection removed by RemoveAll")
	}
}

func TestMemoryStore_ReadByKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	col := "AblationTaskActivity"
	_ = s.EnsureCollection(ctx, col)

	_ = s.BulkInsert(ctx, col, []Document{
		doc("x", nil), doc("y", nil), doc("z", nil),
	})

	got, err := s.ReadByKeys(ctx, col, []string{"z", "missing", "x"})
	if err != nil {
		t.Fatalf("ReadByKeys: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(got))
	}
	if got[0].Key() != "z" || got[1].Key() != "x" {
		t.Errorf("key order not preserved: %s, %s", got[0].Key(), got[1].Key())
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	col := "truth"
	_ = s.EnsureCollection(ctx, col)

	if err := s.Put(ctx, col, doc("k1", map[string]any{"v": 1})); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// Update on conflict.
	if err := s.Put(ctx, col, doc("k1", map[string]any{"v": 2})); err != nil {
		t.Fatalf("Put update: %v", err)
	}

	got, ok, err := s.Get(ctx, col, "k1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got["v"] != 2 {
		t.Errorf("expected updated value 2, got %v", got["v"])
	}

	n, _ := Count(ctx, s, col)
	if n != 1 {
		t.Errorf("Count after upsert = %d, want 1", n)
	}

	_, ok, err = s.Get(ctx, col, "absent")
	if err != nil {
		t.Fatalf("Get absent: %v", err)
	}
	if ok {
		t.Error("Get returned ok for absent key")
	}
}

func TestMemoryStore_SystemFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	col := "AblationMediaActivity"
	_ = s.EnsureCollection(ctx, col)
	_ = s.BulkInsert(ctx, col, []Document{doc("m1", nil)})

	got, _, _ := s.Get(ctx, col, "m1")
	if got["_seq"] == nil || got["_stored_at"] == nil {
		t.Fatal("stored document missing system fields")
	}

	stripped := StripSystemFields(got)
	if _, ok := stripped["_seq"]; ok {
		t.Error("_seq survived StripSystemFields")
	}
	if _, ok := stripped["_stored_at"]; ok {
		t.Error("_stored_at survived StripSystemFields")
	}
	if stripped.Key() != "m1" {
		t.Error("id field lost by StripSystemFields")
	}
	// Original untouched.
	if got["_seq"] == nil {
		t.Error("StripSystemFields mutated its input")
	}
}

func TestMemoryStore_InsertWithoutID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.EnsureCollection(ctx, "c")

	if err := s.BulkInsert(ctx, "c", []Document{{"artist": "nobody"}}); err == nil {
		t.Error("expected error inserting document without id")
	}
}
