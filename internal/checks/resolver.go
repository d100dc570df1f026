package checks

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/rscada/canconfig/internal/toolchain"
)

// Absence says what an absent result means for a check. There is no
// usable zero value: every check declares its policy.
type Absence int

const (
	absenceUnset Absence = iota
	// Fail aborts the pass when the checked thing is absent.
	Fail
	// Skip records the absence (the define becomes #undef) and continues.
	Skip
)

func (a Absence) String() string {
	switch a {
	case Fail:
		return "fail"
	case Skip:
		return "skip"
	default:
		return "unset"
	}
}

// ParseAbsence converts a descriptor on_absence value.
func ParseAbsence(s string) (Absence, error) {
	switch s {
	case "fail":
		return Fail, nil
	case "skip":
		return Skip, nil
	default:
		return absenceUnset, fmt.Errorf("invalid on_absence '%s' (want fail or skip)", s)
	}
}

// ErrAbsent marks a check result as "not present" as opposed to a hard
// error. Check functions wrap it.
var ErrAbsent = errors.New("not found")

// Func runs one check against the shared state. It returns nil when the
// thing is present, an error wrapping ErrAbsent when it is absent, and any
// other error when the check itself could not run.
type Func func(ctx context.Context, s *State) error

// Check is one named, ordered configuration test.
type Check struct {
	Name    string
	Absence Absence

	// Define, when set, is written as 1 on success and #undef on a skipped
	// absence. Comment documents it in the config header.
	Define  string
	Comment string

	Run Func
}

// Define is one config header macro. An empty Value renders as #undef.
type Define struct {
	Name    string
	Value   string
	Comment string
}

// State is the mutable configuration state threaded through every check.
type State struct {
	Tool  *toolchain.Descriptor
	Exec  toolchain.Exec
	Log   hclog.Logger
	Paths map[string]string

	defines map[string]Define
}

// NewState returns a State over tool.
func NewState(tool *toolchain.Descriptor, ex toolchain.Exec, log hclog.Logger) *State {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &State{
		Tool:    tool,
		Exec:    ex,
		Log:     log,
		Paths:   make(map[string]string),
		defines: make(map[string]Define),
	}
}

// Compiler returns a compiler bound to the current toolchain flags.
func (s *State) Compiler() *toolchain.Compiler {
	return &toolchain.Compiler{Exec: s.Exec, Tool: s.Tool}
}

// SetDefine records a macro for the config header.
func (s *State) SetDefine(name, value, comment string) {
	s.defines[name] = Define{Name: name, Value: value, Comment: comment}
}

// Defines returns all recorded macros sorted by name.
func (s *State) Defines() []Define {
	out := make([]Define, 0, len(s.defines))
	for _, d := range s.defines {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Status is the outcome of one check.
type Status string

const (
	StatusPresent Status = "yes"
	StatusAbsent  Status = "no"
	StatusFailed  Status = "failed"
)

// Outcome records what one check concluded.
type Outcome struct {
	Name   string
	Status Status
	Detail string
}

// Result is the terminal state of a resolver run.
type Result struct {
	Success     bool
	FailedCheck string
	Err         error
	Outcomes    []Outcome
	Paths       map[string]string
	Defines     []Define
}

// CheckFailedError names the check that aborted the pass.
type CheckFailedError struct {
	Check string
	Err   error
}

func (e *CheckFailedError) Error() string {
	return fmt.Sprintf("check '%s' failed: %s", e.Check, e.Err)
}

func (e *CheckFailedError) Unwrap() error {
	return e.Err
}

// Resolver runs checks strictly in declaration order.
type Resolver struct {
	checks []Check
}

// NewResolver validates the list: names are required and unique, and every
// check must declare an absence policy and a function.
func NewResolver(list ...Check) (*Resolver, error) {
	seen := make(map[string]bool, len(list))
	for i, c := range list {
		if c.Name == "" {
			return nil, fmt.Errorf("check[%d]: name is required", i)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("check '%s': duplicate name", c.Name)
		}
		seen[c.Name] = true
		if c.Absence != Fail && c.Absence != Skip {
			return nil, fmt.Errorf("check '%s': absence policy must be declared (fail or skip)", c.Name)
		}
		if c.Run == nil {
			return nil, fmt.Errorf("check '%s': no check function", c.Name)
		}
	}
	return &Resolver{checks: append([]Check(nil), list...)}, nil
}

// Names returns the check names in execution order.
func (r *Resolver) Names() []string {
	names := make([]string, len(r.checks))
	for i, c := range r.checks {
		names[i] = c.Name
	}
	return names
}

// Run executes every check in order and stops at the first failure.
// Mutations made by earlier checks are left in place.
func (r *Resolver) Run(ctx context.Context, s *State) *Result {
	res := &Result{}

	for _, c := range r.checks {
		if err := ctx.Err(); err != nil {
			return r.fail(res, s, c.Name, err)
		}

		err := c.Run(ctx, s)
		switch {
		case err == nil:
			if c.Define != "" {
				s.SetDefine(c.Define, "1", c.Comment)
			}
			res.Outcomes = append(res.Outcomes, Outcome{Name: c.Name, Status: StatusPresent})
			s.Log.Info("checking "+c.Name, "result", "yes")

		case errors.Is(err, ErrAbsent) && c.Absence == Skip:
			if c.Define != "" {
				s.SetDefine(c.Define, "", c.Comment)
			}
			res.Outcomes = append(res.Outcomes, Outcome{Name: c.Name, Status: StatusAbsent, Detail: err.Error()})
			s.Log.Info("checking "+c.Name, "result", "no", "detail", err.Error())

		default:
			return r.fail(res, s, c.Name, err)
		}
	}

	res.Success = true
	res.Paths = copyPaths(s.Paths)
	res.Defines = s.Defines()
	return res
}

func (r *Resolver) fail(res *Result, s *State, name string, err error) *Result {
	s.Log.Error("checking "+name, "result", "failed", "error", err)
	res.Outcomes = append(res.Outcomes, Outcome{Name: name, Status: StatusFailed, Detail: err.Error()})
	res.FailedCheck = name
	res.Err = &CheckFailedError{Check: name, Err: err}
	res.Paths = copyPaths(s.Paths)
	return res
}

func copyPaths(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
