package course

import (
	"encoding/json"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }

func TestNewFromCreateRequestDefaults(t *testing.T) {
	c := NewFromCreateRequest(CreateCourseRequest{
		Title:        "Linear Algebra",
		InstructorID: "instructor-1",
	})

	if c.ID == "" {
		t.Error("expected an id to be minted")
	}

	if c.MaxCapacity != DefaultMaxCapacity {
		t.Errorf("capacity = %d, want the default %d", c.MaxCapacity, DefaultMaxCapacity)
	}

	if !c.IsEnabled {
		t.Error("new courses should start enabled")
	}
}

func TestNewFromCreateRequestHonorsExplicitValues(t *testing.T) {
	disabled := false

	c := NewFromCreateRequest(CreateCourseRequest{
		Title:        "Linear Algebra",
		InstructorID: "instructor-1",
		MaxCapacity:  120,
		Enabled:      &disabled,
	})

	if c.MaxCapacity != 120 {
		t.Errorf("capacity = %d, want 120", c.MaxCapacity)
	}

	if c.IsEnabled {
		t.Error("explicit isEnabled=false was ignored")
	}
}

func TestApplyPatchLeavesNilFieldsAlone(t *testing.T) {
	existing := Course{
		ID:          "c1",
		Title:       "Databases",
		Description: "Storage and querying",
		Category:    "CS",
		Level:       "Intermediate",
		MaxCapacity: 40,
		IsEnabled:   true,
	}

	patched := ApplyPatch(existing, UpdateCourseRequest{
		Title:       strPtr("Advanced Databases"),
		MaxCapacity: intPtr(25),
		Enabled:     boolPtr(false),
	})

	if patched.Title != "Advanced Databases" {
		t.Errorf("title = %q", patched.Title)
	}

	if patched.MaxCapacity != 25 {
		t.Errorf("capacity = %d", patched.MaxCapacity)
	}

	if patched.IsEnabled {
		t.Error("enabled flag not patched")
	}

	// everything without a pointer stays put
	if patched.Description != existing.Description || patched.Category != existing.Category || patched.Level != existing.Level {
		t.Errorf("untouched fields changed: %+v", patched)
	}
}

func TestDateOnlyJSON(t *testing.T) {
	var d DateOnly

	if err := json.Unmarshal([]byte(`"2026-09-01"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local)

	if !d.Time.Equal(want) {
		t.Errorf("parsed %v, want %v", d.Time, want)
	}

	out, err := json.Marshal(d)

	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if string(out) != `"2026-09-01"` {
		t.Errorf("marshalled as %s", out)
	}

	if err := json.Unmarshal([]byte(`"01/09/2026"`), &d); err == nil {
		t.Error("expected an error for a non-ISO date")
	}
}
