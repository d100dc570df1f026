// Package toolchaintest provides a scripted toolchain.Exec for tests that
// must not depend on a compiler being installed.
package toolchaintest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Exec answers LookPath from a table and pretends to compile.
type Exec struct {
	// Paths maps a command name (or explicit path) to its resolved path.
	Paths map[string]string

	// Banner is the --version output; Machine is the -dumpmachine output.
	// An empty Machine makes -dumpmachine fail.
	Banner  string
	Machine string

	// Broken lists resolved compiler paths that fail every compilation.
	Broken map[string]bool

	// Reject, when set, decides whether a compilation fails. src is the
	// conftest.c content; args are the compiler arguments.
	Reject func(args []string, src string) error

	// Calls records every Run invocation as name followed by args.
	Calls [][]string
}

// New returns an Exec with a single working gcc at /usr/bin/gcc.
func New() *Exec {
	return &Exec{
		Paths:   map[string]string{"gcc": "/usr/bin/gcc", "/usr/bin/gcc": "/usr/bin/gcc"},
		Banner:  "gcc (GCC) 13.2.0\nCopyright (C) 2023 Free Software Foundation, Inc.\n",
		Machine: "x86_64-pc-linux-gnu",
		Broken:  map[string]bool{},
	}
}

func (e *Exec) LookPath(file string) (string, error) {
	if p, ok := e.Paths[file]; ok {
		return p, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", file)
}

func (e *Exec) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.Calls = append(e.Calls, append([]string{name}, args...))

	if len(args) == 1 {
		switch args[0] {
		case "--version":
			return []byte(e.Banner), nil
		case "-dumpmachine":
			if e.Machine == "" {
				return []byte("unrecognized option"), errors.New("exit status 1")
			}
			return []byte(e.Machine + "\n"), nil
		}
	}

	if e.Broken[name] {
		return []byte("error: cannot execute 'cc1'"), errors.New("exit status 1")
	}

	var src string
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, "conftest.c"))
		if err == nil {
			src = string(data)
		}
	}
	if e.Reject != nil {
		if err := e.Reject(args, src); err != nil {
			return []byte(err.Error()), errors.New("exit status 1")
		}
	}
	return nil, nil
}

// CompileCalls returns the recorded invocations that compiled conftest.c.
func (e *Exec) CompileCalls() [][]string {
	var out [][]string
	for _, c := range e.Calls {
		if strings.Contains(strings.Join(c, " "), "conftest.c") {
			out = append(out, c)
		}
	}
	return out
}
