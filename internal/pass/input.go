package pass

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rscada/canconfig/internal/checks"
	"github.com/rscada/canconfig/internal/site"
	"github.com/rscada/canconfig/internal/status"
	"github.com/rscada/canconfig/internal/toolchain"
)

// DefaultPrefix is the install prefix when neither a flag, the site
// defaults, nor a recorded invocation sets one.
const DefaultPrefix = "/usr/local"

// Env holds the environment overrides, captured once before the pass.
type Env struct {
	CC       string
	CPPFlags []string
	CFlags   []string
	LDFlags  []string
	Libs     []string
}

// CaptureEnv reads CC, CPPFLAGS, CFLAGS, LDFLAGS and LIBS. Flag variables
// are split on whitespace.
func CaptureEnv(getenv func(string) string) Env {
	return Env{
		CC:       strings.TrimSpace(getenv("CC")),
		CPPFlags: strings.Fields(getenv("CPPFLAGS")),
		CFlags:   strings.Fields(getenv("CFLAGS")),
		LDFlags:  strings.Fields(getenv("LDFLAGS")),
		Libs:     strings.Fields(getenv("LIBS")),
	}
}

func (e Env) flags() toolchain.Flags {
	return toolchain.Flags{CPPFlags: e.CPPFlags, CFlags: e.CFlags, LDFlags: e.LDFlags, Libs: e.Libs}
}

// Input is the immutable snapshot a pass runs from.
type Input struct {
	Descriptor string
	Srcdir     string
	Builddir   string

	Dirs    checks.Dirs
	Host    string
	Enable  []string
	Disable []string

	Env Env
}

// ApplySite fills inputs that neither a flag nor the environment set.
func (in *Input) ApplySite(d site.Defaults) {
	if in.Dirs.Prefix == "" {
		in.Dirs.Prefix = d.Prefix
	}
	if in.Host == "" {
		in.Host = d.Host
	}
	if in.Env.CC == "" {
		in.Env.CC = d.CC
	}
	if len(in.Env.CPPFlags) == 0 {
		in.Env.CPPFlags = d.CPPFlags
	}
	if len(in.Env.CFlags) == 0 {
		in.Env.CFlags = d.CFlags
	}
	if len(in.Env.LDFlags) == 0 {
		in.Env.LDFlags = d.LDFlags
	}
	if len(in.Env.Libs) == 0 {
		in.Env.Libs = d.Libs
	}
}

// resolve makes the directories absolute and applies built-in defaults.
// Srcdir defaults to the descriptor's directory, Builddir to the current
// directory.
func (in Input) resolve() (Input, error) {
	if in.Descriptor == "" {
		return in, fmt.Errorf("no descriptor given")
	}
	var err error
	if in.Descriptor, err = filepath.Abs(in.Descriptor); err != nil {
		return in, fmt.Errorf("resolving descriptor path: %w", err)
	}
	if in.Srcdir == "" {
		in.Srcdir = filepath.Dir(in.Descriptor)
	}
	if in.Srcdir, err = filepath.Abs(in.Srcdir); err != nil {
		return in, fmt.Errorf("resolving source directory: %w", err)
	}
	if in.Builddir == "" {
		in.Builddir = "."
	}
	if in.Builddir, err = filepath.Abs(in.Builddir); err != nil {
		return in, fmt.Errorf("resolving build directory: %w", err)
	}
	if in.Dirs.Prefix == "" {
		in.Dirs.Prefix = DefaultPrefix
	}
	return in, nil
}

// Invocation converts the snapshot to its recorded form.
func (in Input) Invocation() status.Invocation {
	return status.Invocation{
		Descriptor: in.Descriptor,
		Srcdir:     in.Srcdir,
		Builddir:   in.Builddir,
		Prefix:     in.Dirs.Prefix,
		ExecPrefix: in.Dirs.ExecPrefix,
		Bindir:     in.Dirs.Bindir,
		Libdir:     in.Dirs.Libdir,
		Includedir: in.Dirs.Includedir,
		Host:       in.Host,
		Enable:     in.Enable,
		Disable:    in.Disable,
		CC:         in.Env.CC,
		CPPFlags:   in.Env.CPPFlags,
		CFlags:     in.Env.CFlags,
		LDFlags:    in.Env.LDFlags,
		Libs:       in.Env.Libs,
	}
}

// FromInvocation rebuilds the snapshot a recorded pass ran with.
func FromInvocation(inv status.Invocation) Input {
	return Input{
		Descriptor: inv.Descriptor,
		Srcdir:     inv.Srcdir,
		Builddir:   inv.Builddir,
		Dirs: checks.Dirs{
			Prefix:     inv.Prefix,
			ExecPrefix: inv.ExecPrefix,
			Bindir:     inv.Bindir,
			Libdir:     inv.Libdir,
			Includedir: inv.Includedir,
		},
		Host:    inv.Host,
		Enable:  inv.Enable,
		Disable: inv.Disable,
		Env: Env{
			CC:       inv.CC,
			CPPFlags: inv.CPPFlags,
			CFlags:   inv.CFlags,
			LDFlags:  inv.LDFlags,
			Libs:     inv.Libs,
		},
	}
}
