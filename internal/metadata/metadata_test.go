package metadata

import (
	"errors"
	"testing"
)

func TestNewValid(t *testing.T) {
	p, err := New("canopen", "0.1.0", "info@rscada.se", "libcanopen", "http://www.rscada.se")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "canopen" {
		t.Errorf("name = %q", p.Name())
	}
	if p.Version() != "0.1.0" {
		t.Errorf("version = %q", p.Version())
	}
	if p.Contact() != "info@rscada.se" {
		t.Errorf("contact = %q", p.Contact())
	}
	if p.String() != "canopen 0.1.0" {
		t.Errorf("String() = %q", p.String())
	}
	if p.DistName() != "libcanopen-0.1.0" {
		t.Errorf("DistName() = %q", p.DistName())
	}
}

func TestNewRejectsEmptyFields(t *testing.T) {
	tests := []struct {
		field string
		args  [5]string
	}{
		{"name", [5]string{"", "0.1.0", "c", "t", "h"}},
		{"version", [5]string{"n", "", "c", "t", "h"}},
		{"contact", [5]string{"n", "0.1.0", "", "t", "h"}},
		{"tarname", [5]string{"n", "0.1.0", "c", "", "h"}},
		{"homepage", [5]string{"n", "0.1.0", "c", "t", ""}},
	}

	for _, tt := range tests {
		_, err := New(tt.args[0], tt.args[1], tt.args[2], tt.args[3], tt.args[4])
		var me *Error
		if !errors.As(err, &me) {
			t.Fatalf("%s: expected *Error, got %v", tt.field, err)
		}
		if me.Field != tt.field {
			t.Errorf("field = %q, want %q", me.Field, tt.field)
		}
	}
}
