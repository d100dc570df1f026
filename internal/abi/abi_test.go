package abi

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rscada/canconfig/internal/toolchain"
)

func TestComputeValid(t *testing.T) {
	for current := 0; current <= 4; current++ {
		for age := 0; age <= current; age++ {
			for revision := 0; revision <= 2; revision++ {
				tr, err := Compute(current, revision, age)
				if err != nil {
					t.Fatalf("Compute(%d, %d, %d): %v", current, revision, age, err)
				}

				d := &toolchain.Descriptor{LinkerFlags: []string{"-L/opt/lib"}}
				tr.Apply(d)
				want := []string{"-L/opt/lib", "-version-info", tr.String()}
				if !reflect.DeepEqual(d.LinkerFlags, want) {
					t.Errorf("linker flags = %v, want %v", d.LinkerFlags, want)
				}
				if tr.Current != current || tr.Revision != revision || tr.Age != age {
					t.Errorf("triple = %+v", tr)
				}
			}
		}
	}
}

func TestComputeInvalid(t *testing.T) {
	tests := []struct {
		current, revision, age int
	}{
		{0, 0, 1},
		{2, 0, 3},
		{-1, 0, 0},
		{1, -1, 0},
		{1, 0, -1},
	}

	for _, tt := range tests {
		_, err := Compute(tt.current, tt.revision, tt.age)
		var ie *InvalidTripleError
		if !errors.As(err, &ie) {
			t.Errorf("Compute(%d, %d, %d): expected *InvalidTripleError, got %v", tt.current, tt.revision, tt.age, err)
		}
	}
}

func TestLibcanopenTripleRendering(t *testing.T) {
	tr, err := Compute(0, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if tr.String() != "0:1:0" {
		t.Errorf("String() = %q, want %q", tr.String(), "0:1:0")
	}
	if !reflect.DeepEqual(tr.Flags(), []string{"-version-info", "0:1:0"}) {
		t.Errorf("Flags() = %v", tr.Flags())
	}
}

func TestSharedObject(t *testing.T) {
	tests := []struct {
		triple       Triple
		host         string
		soname, real string
	}{
		{Triple{0, 1, 0}, "x86_64-pc-linux-gnu", "libcanopen.so.0", "libcanopen.so.0.0.1"},
		{Triple{5, 2, 3}, "arm-unknown-linux-gnueabihf", "libcanopen.so.2", "libcanopen.so.2.3.2"},
		{Triple{3, 0, 1}, "aarch64-apple-darwin", "libcanopen.2.dylib", "libcanopen.2.dylib"},
	}
	for _, tt := range tests {
		soname, real := tt.triple.SharedObject("canopen", tt.host)
		if soname != tt.soname || real != tt.real {
			t.Errorf("SharedObject(%v, %s) = %s, %s; want %s, %s", tt.triple, tt.host, soname, real, tt.soname, tt.real)
		}
	}
}

func TestStripVersionInfo(t *testing.T) {
	in := []string{"-L/opt/lib", "-version-info", "0:1:0", "-Wl,--as-needed"}
	got := StripVersionInfo(in)
	want := []string{"-L/opt/lib", "-Wl,--as-needed"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StripVersionInfo = %v, want %v", got, want)
	}
	if len(in) != 4 {
		t.Error("input was modified")
	}
}
