package identity

import (
	"testing"

	"github.com/google/uuid"
)

func TestDerive_Deterministic(t *testing.T) {
	seeds := []string{
		"location_activity:Home:0",
		"music_activity:Radiohead:7",
		"",
		"storage_activity:generic",
	}

	for _, seed := range seeds {
		a := Derive(seed)
		b := Derive(seed)
		if a != b {
			t.Errorf("Derive(%q) not deterministic: %s != %s", seed, a, b)
		}
	}
}

func TestDerive_DistinctSeeds(t *testing.T) {
	if Derive("location_activity:Home:0") == Derive("location_activity:Home:1") {
		t.Error("distinct seeds produced the same identifier")
	}
	if Derive("location_activity:Home:0") == Derive("music_activity:Home:0") {
		t.Error("distinct domains produced the same identifier")
	}
}

func TestDerive_ValidUUID(t *testing.T) {
	id := Derive("task_activity:VSCode:3")

	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("derived identifier is not a valid UUID: %v", err)
	}
	if parsed.Version() != 5 {
		t.Errorf("expected UUID version 5, got %d", parsed.Version())
	}
}

func TestDeriveIndexed(t *testing.T) {
	if DeriveIndexed("media_activity:iPhone", 2) != Derive("media_activity:iPhone:2") {
		t.Error("DeriveIndexed does not match explicit seed form")
	}
}

func TestGenericSet(t *testing.T) {
	a := GenericSet("collaboration_activity", 3)
	b := GenericSet("collaboration_activity", 3)

	if len(a) != 3 {
		t.Fatalf("expected 3 identifiers, got %d", len(a))
	}

	for i := range a {
		if a[i] != b[i] {
			t.Errorf("generic set not deterministic at index %d", i)
		}
	}

	seen := make(map[string]bool)
	for _, id := range a {
		if seen[id] {
			t.Errorf("duplicate identifier in generic set: %s", id)
		}
		seen[id] = true
	}
}
