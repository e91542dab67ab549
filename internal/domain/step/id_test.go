package step

import (
	"errors"
	"testing"
)

func TestNewID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "simple", input: "upgrade:backup", wantErr: nil},
		{name: "nested with rule", input: "upgrade:source:UA0002", wantErr: nil},
		{name: "dots and hyphens", input: "upgrade:project:Lib-1.Core", wantErr: nil},
		{name: "single segment", input: "entrypoint", wantErr: nil},
		{name: "surrounding whitespace", input: "  upgrade:target  ", wantErr: nil},
		{name: "empty", input: "", wantErr: ErrEmptyID},
		{name: "whitespace only", input: "   ", wantErr: ErrEmptyID},
		{name: "empty segment", input: "upgrade::target", wantErr: ErrInvalidID},
		{name: "trailing colon", input: "upgrade:", wantErr: ErrInvalidID},
		{name: "space inside", input: "upgrade target", wantErr: ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewID(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewID(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestID_Group(t *testing.T) {
	id := MustNewID("upgrade:source:UA0002")
	if got := id.Group(); got != "upgrade" {
		t.Errorf("Group() = %q, want %q", got, "upgrade")
	}
}

func TestID_Child(t *testing.T) {
	id := MustNewID("upgrade:source")
	child, err := id.Child("UA0002")
	if err != nil {
		t.Fatalf("Child() error = %v", err)
	}
	if child.String() != "upgrade:source:UA0002" {
		t.Errorf("Child() = %q, want %q", child.String(), "upgrade:source:UA0002")
	}

	if _, err := id.Child(""); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Child(\"\") error = %v, want %v", err, ErrInvalidID)
	}
}

func TestID_EqualsAndZero(t *testing.T) {
	a := MustNewID("upgrade:target")
	b := MustNewID("upgrade:target")
	if !a.Equals(b) {
		t.Error("Equals() should be true for same value")
	}
	if a.IsZero() {
		t.Error("IsZero() should be false for a valid ID")
	}
	if !(ID{}).IsZero() {
		t.Error("IsZero() should be true for zero value")
	}
}

func TestMustNewID_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNewID() should panic on invalid input")
		}
	}()
	_ = MustNewID("bad id")
}
