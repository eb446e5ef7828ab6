package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	if _, ok := IsValidDate("2025-03-14"); !ok {
		t.Error("IsValidDate(2025-03-14) = false, want true")
	}
	for _, bad := range []string{"14-03-2025", "2025-13-01", "not-a-date", ""} {
		if _, ok := IsValidDate(bad); ok {
			t.Errorf("IsValidDate(%q) = true, want false", bad)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	if !IsValidUUID("0f8fad5b-d9cb-469f-a165-70867728950e") {
		t.Error("IsValidUUID rejected a valid v4 UUID")
	}
	if !IsValidUUID("0F8FAD5B-D9CB-469F-A165-70867728950E") {
		t.Error("IsValidUUID rejected an upper-case UUID")
	}
	for _, bad := range []string{"", "not-a-uuid", "0f8fad5bd9cb469fa16570867728950e", "0f8fad5b-d9cb-469f-a165-70867728950"} {
		if IsValidUUID(bad) {
			t.Errorf("IsValidUUID(%q) = true, want false", bad)
		}
	}
}

func TestIsInSlice(t *testing.T) {
	tags := []string{"work", "work_resumed"}
	if !IsInSlice("work", tags) {
		t.Error("IsInSlice(work) = false, want true")
	}
	if IsInSlice("lunch", tags) {
		t.Error("IsInSlice(lunch) = true, want false")
	}
	if IsInSlice("work", nil) {
		t.Error("IsInSlice on nil slice = true, want false")
	}
}

func TestValidationErrorsToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "date", Message: "date is required"},
		{Field: "reason", Message: "reason is required"},
	}
	m := errs.ToMap()
	if len(m) != 2 || m["date"] != "date is required" {
		t.Errorf("ToMap() = %v", m)
	}
}
