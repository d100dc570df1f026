package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Vendor identifies the compiler family, which decides the default flags.
type Vendor string

const (
	VendorGNU     Vendor = "gnu"
	VendorClang   Vendor = "clang"
	VendorUnknown Vendor = "unknown"
)

// Descriptor is the selected compiler and the flags every later stage
// compiles and links with. The prober creates it; checks and the ABI
// versioner append to it.
type Descriptor struct {
	CompilerPath  string
	Vendor        Vendor
	Host          string
	CPPFlags      []string
	CompilerFlags []string
	LinkerFlags   []string
	Libs          []string

	// Programs maps make variable names (LIBTOOL, INSTALL) to resolved paths.
	Programs map[string]string
}

// Clone returns a deep copy.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	c.CPPFlags = append([]string(nil), d.CPPFlags...)
	c.CompilerFlags = append([]string(nil), d.CompilerFlags...)
	c.LinkerFlags = append([]string(nil), d.LinkerFlags...)
	c.Libs = append([]string(nil), d.Libs...)
	c.Programs = make(map[string]string, len(d.Programs))
	for k, v := range d.Programs {
		c.Programs[k] = v
	}
	return &c
}

// Flags are the user-supplied flag lists (CPPFLAGS, CFLAGS, LDFLAGS, LIBS).
// They are appended to the defaults, never substituted for them.
type Flags struct {
	CPPFlags []string
	CFlags   []string
	LDFlags  []string
	Libs     []string
}

// Attempt records why one compiler candidate was rejected.
type Attempt struct {
	Candidate string
	Reason    string
}

// NotFoundError means no usable C compiler exists. It is fatal for the pass.
type NotFoundError struct {
	// Explicit is set when the compiler came from CC and was not usable.
	Explicit bool
	Attempts []Attempt
}

func (e *NotFoundError) Error() string {
	if e.Explicit && len(e.Attempts) == 1 {
		a := e.Attempts[0]
		return fmt.Sprintf("C compiler '%s' (from CC) is not usable: %s", a.Candidate, a.Reason)
	}
	if len(e.Attempts) == 0 {
		return "no acceptable C compiler found: no candidates to try"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Candidate + ": " + a.Reason
	}
	return "no acceptable C compiler found (tried " + strings.Join(parts, "; ") + ")"
}

// Exec abstracts process execution so probing can be tested without a
// real compiler.
type Exec interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// OSExec runs real processes.
type OSExec struct{}

func (OSExec) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (OSExec) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	// Pin the locale so vendor detection sees untranslated banners.
	cmd.Env = append(cmd.Environ(), "LC_ALL=C")
	return cmd.CombinedOutput()
}
