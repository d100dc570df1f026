package checks

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rscada/canconfig/internal/toolchain"
)

func newTestState() *State {
	return NewState(&toolchain.Descriptor{
		CompilerPath: "/usr/bin/gcc",
		Programs:     map[string]string{},
	}, nil, nil)
}

func recorder(trace *[]string, name string, err error) Check {
	return Check{
		Name:    name,
		Absence: Fail,
		Run: func(ctx context.Context, s *State) error {
			*trace = append(*trace, name)
			return err
		},
	}
}

func TestResolverRunsInDeclarationOrder(t *testing.T) {
	var trace []string
	r, err := NewResolver(
		recorder(&trace, "c", nil),
		recorder(&trace, "a", nil),
		recorder(&trace, "b", nil),
	)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	res := r.Run(context.Background(), newTestState())
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if !reflect.DeepEqual(trace, []string{"c", "a", "b"}) {
		t.Errorf("order = %v", trace)
	}
	if !reflect.DeepEqual(r.Names(), []string{"c", "a", "b"}) {
		t.Errorf("Names() = %v", r.Names())
	}
}

func TestResolverFailFast(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	r, err := NewResolver(
		recorder(&trace, "first", nil),
		recorder(&trace, "second", boom),
		recorder(&trace, "third", nil),
	)
	if err != nil {
		t.Fatal(err)
	}

	res := r.Run(context.Background(), newTestState())
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.FailedCheck != "second" {
		t.Errorf("failed check = %q", res.FailedCheck)
	}
	if !reflect.DeepEqual(trace, []string{"first", "second"}) {
		t.Errorf("trace = %v, third must not run", trace)
	}

	var cf *CheckFailedError
	if !errors.As(res.Err, &cf) || cf.Check != "second" {
		t.Fatalf("expected *CheckFailedError for second, got %v", res.Err)
	}
	if !errors.Is(res.Err, boom) {
		t.Error("CheckFailedError should unwrap to the cause")
	}
}

func TestResolverNoRollback(t *testing.T) {
	mutate := Check{
		Name:    "mutate",
		Absence: Fail,
		Run: func(ctx context.Context, s *State) error {
			s.Tool.CompilerFlags = append(s.Tool.CompilerFlags, "-Wall")
			return nil
		},
	}
	fail := Check{
		Name:    "fail",
		Absence: Fail,
		Run:     func(ctx context.Context, s *State) error { return absent("nothing") },
	}
	r, err := NewResolver(mutate, fail)
	if err != nil {
		t.Fatal(err)
	}

	s := newTestState()
	res := r.Run(context.Background(), s)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !reflect.DeepEqual(s.Tool.CompilerFlags, []string{"-Wall"}) {
		t.Errorf("earlier mutation should remain, got %v", s.Tool.CompilerFlags)
	}
}

func TestResolverSkipPolicy(t *testing.T) {
	skip := Check{
		Name:    "optional header",
		Absence: Skip,
		Define:  "HAVE_OPTIONAL_H",
		Run:     func(ctx context.Context, s *State) error { return absent("header <optional.h>") },
	}
	present := Check{
		Name:    "present header",
		Absence: Fail,
		Define:  "HAVE_PRESENT_H",
		Run:     func(ctx context.Context, s *State) error { return nil },
	}
	r, err := NewResolver(skip, present)
	if err != nil {
		t.Fatal(err)
	}

	res := r.Run(context.Background(), newTestState())
	if !res.Success {
		t.Fatalf("skip-on-absence must count as success: %v", res.Err)
	}
	if res.Outcomes[0].Status != StatusAbsent || res.Outcomes[1].Status != StatusPresent {
		t.Errorf("outcomes = %+v", res.Outcomes)
	}

	want := []Define{
		{Name: "HAVE_OPTIONAL_H", Value: ""},
		{Name: "HAVE_PRESENT_H", Value: "1"},
	}
	if !reflect.DeepEqual(res.Defines, want) {
		t.Errorf("defines = %+v, want %+v", res.Defines, want)
	}
}

func TestResolverSkipDoesNotMaskHardErrors(t *testing.T) {
	c := Check{
		Name:    "broken",
		Absence: Skip,
		Run:     func(ctx context.Context, s *State) error { return errors.New("scratch dir unavailable") },
	}
	r, err := NewResolver(c)
	if err != nil {
		t.Fatal(err)
	}
	if res := r.Run(context.Background(), newTestState()); res.Success {
		t.Error("a non-absence error must fail even with skip policy")
	}
}

func TestResolverCanceledContext(t *testing.T) {
	var trace []string
	r, err := NewResolver(recorder(&trace, "never", nil))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := r.Run(ctx, newTestState())
	if res.Success || len(trace) != 0 {
		t.Errorf("canceled run should fail before any check: success=%v trace=%v", res.Success, trace)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("err = %v", res.Err)
	}
}

func TestNewResolverRejectsBadChecks(t *testing.T) {
	run := func(ctx context.Context, s *State) error { return nil }
	tests := []struct {
		name   string
		checks []Check
		want   string
	}{
		{"unnamed", []Check{{Absence: Fail, Run: run}}, "name is required"},
		{"duplicate", []Check{{Name: "x", Absence: Fail, Run: run}, {Name: "x", Absence: Skip, Run: run}}, "duplicate"},
		{"no policy", []Check{{Name: "x", Run: run}}, "absence policy must be declared"},
		{"no func", []Check{{Name: "x", Absence: Fail}}, "no check function"},
	}

	for _, tt := range tests {
		_, err := NewResolver(tt.checks...)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err = %v, want containing %q", tt.name, err, tt.want)
		}
	}
}

func TestParseAbsence(t *testing.T) {
	if a, err := ParseAbsence("fail"); err != nil || a != Fail {
		t.Errorf("fail -> %v, %v", a, err)
	}
	if a, err := ParseAbsence("skip"); err != nil || a != Skip {
		t.Errorf("skip -> %v, %v", a, err)
	}
	if _, err := ParseAbsence(""); err == nil {
		t.Error("empty policy must not parse")
	}
}
