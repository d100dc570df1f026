package checks

import (
	"cmp"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rscada/canconfig/internal/descriptor"
)

// DefineName derives a macro name: prefix plus the subject upper-cased
// with every other character mapped to '_'. "linux/can.h" -> HAVE_LINUX_CAN_H.
func DefineName(prefix, subject string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, r := range strings.ToUpper(subject) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func absent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAbsent, fmt.Sprintf(format, args...))
}

// Header checks that <header> compiles.
func Header(name, header string, policy Absence) Check {
	return Check{
		Name:    name,
		Absence: policy,
		Define:  DefineName("HAVE_", header),
		Comment: fmt.Sprintf("Define to 1 if you have the <%s> header file.", header),
		Run: func(ctx context.Context, s *State) error {
			if err := s.Compiler().TryCompile(ctx, fmt.Sprintf("#include <%s>\n", header)); err != nil {
				return absent("header <%s>: %v", header, err)
			}
			return nil
		},
	}
}

// funcStub links a call to fn without needing its prototype.
func funcStub(fn string) string {
	return fmt.Sprintf("char %s(void);\nint main(void) { return %s(); }\n", fn, fn)
}

// Function checks that fn links with the current LIBS.
func Function(name, fn string, policy Absence) Check {
	return Check{
		Name:    name,
		Absence: policy,
		Define:  DefineName("HAVE_", fn),
		Comment: fmt.Sprintf("Define to 1 if you have the '%s' function.", fn),
		Run: func(ctx context.Context, s *State) error {
			if err := s.Compiler().TryLink(ctx, funcStub(fn), nil); err != nil {
				return absent("function %s: %v", fn, err)
			}
			return nil
		},
	}
}

// Library checks that fn links from -l<lib> and, if so, adds it to LIBS.
func Library(name, lib, fn string, policy Absence) Check {
	flag := "-l" + lib
	return Check{
		Name:    name,
		Absence: policy,
		Define:  DefineName("HAVE_LIB", lib),
		Comment: fmt.Sprintf("Define to 1 if you have the '%s' library (%s).", lib, flag),
		Run: func(ctx context.Context, s *State) error {
			if err := s.Compiler().TryLink(ctx, funcStub(fn), nil, flag); err != nil {
				return absent("%s in %s: %v", fn, flag, err)
			}
			s.Tool.Libs = append(s.Tool.Libs, flag)
			return nil
		},
	}
}

// CompilerFlag adds flag to CFLAGS if the compiler accepts it.
func CompilerFlag(name, flag string, policy Absence) Check {
	return Check{
		Name:    name,
		Absence: policy,
		Run: func(ctx context.Context, s *State) error {
			if err := s.Compiler().TryCompile(ctx, "int conftest;\n", flag); err != nil {
				return absent("compiler flag %s: %v", flag, err)
			}
			s.Tool.CompilerFlags = append(s.Tool.CompilerFlags, flag)
			return nil
		},
	}
}

// LinkerFlag adds flag to LDFLAGS if the linker accepts it.
func LinkerFlag(name, flag string, policy Absence) Check {
	return Check{
		Name:    name,
		Absence: policy,
		Run: func(ctx context.Context, s *State) error {
			if err := s.Compiler().TryLink(ctx, "int main(void) { return 0; }\n", []string{flag}); err != nil {
				return absent("linker flag %s: %v", flag, err)
			}
			s.Tool.LinkerFlags = append(s.Tool.LinkerFlags, flag)
			return nil
		},
	}
}

// Program stores the first candidate found on PATH as make variable v.
func Program(name, v string, candidates []string, policy Absence) Check {
	return Check{
		Name:    name,
		Absence: policy,
		Run: func(ctx context.Context, s *State) error {
			for _, c := range candidates {
				if p, err := s.Exec.LookPath(c); err == nil {
					s.Tool.Programs[v] = p
					return nil
				}
			}
			return absent("none of %s on PATH", strings.Join(candidates, ", "))
		},
	}
}

// FromDescriptor builds a check from its descriptor entry.
func FromDescriptor(c descriptor.Check) (Check, error) {
	policy, err := ParseAbsence(c.OnAbsence)
	if err != nil {
		return Check{}, fmt.Errorf("check '%s': %w", c.Name, err)
	}

	var out Check
	switch c.Type {
	case descriptor.CheckHeader:
		out = Header(c.Name, c.Subject, policy)
	case descriptor.CheckFunction:
		out = Function(c.Name, c.Subject, policy)
	case descriptor.CheckLibrary:
		out = Library(c.Name, c.Subject, c.Function, policy)
	case descriptor.CheckCompilerFlag:
		out = CompilerFlag(c.Name, c.Subject, policy)
	case descriptor.CheckLinkerFlag:
		out = LinkerFlag(c.Name, c.Subject, policy)
	case descriptor.CheckProgram:
		out = Program(c.Name, c.Variable, c.Candidates, policy)
	default:
		return Check{}, fmt.Errorf("check '%s': unknown type '%s'", c.Name, c.Type)
	}

	if c.Define != "" {
		out.Define = c.Define
	}
	return out, nil
}

// Dirs are the install directory overrides from the command line.
// Empty fields take the conventional default under Prefix.
type Dirs struct {
	Prefix     string
	ExecPrefix string
	Bindir     string
	Libdir     string
	Includedir string
}

// Resolved path keys.
const (
	PathPrefix       = "prefix"
	PathExecPrefix   = "exec_prefix"
	PathBindir       = "bindir"
	PathLibdir       = "libdir"
	PathIncludedir   = "includedir"
	PathPkgconfigdir = "pkgconfigdir"
	PathSrcdir       = "srcdir"
	PathBuilddir     = "builddir"
)

// InstallDirs resolves the install layout into State.Paths. Every
// directory must be absolute.
func InstallDirs(d Dirs, srcdir, builddir string) Check {
	return Check{
		Name:    "install directories",
		Absence: Fail,
		Run: func(ctx context.Context, s *State) error {
			resolved := map[string]string{PathPrefix: d.Prefix}
			resolved[PathExecPrefix] = cmp.Or(d.ExecPrefix, d.Prefix)
			resolved[PathBindir] = cmp.Or(d.Bindir, path.Join(resolved[PathExecPrefix], "bin"))
			resolved[PathLibdir] = cmp.Or(d.Libdir, path.Join(resolved[PathExecPrefix], "lib"))
			resolved[PathIncludedir] = cmp.Or(d.Includedir, path.Join(d.Prefix, "include"))
			resolved[PathPkgconfigdir] = path.Join(resolved[PathLibdir], "pkgconfig")

			for _, k := range []string{PathPrefix, PathExecPrefix, PathBindir, PathLibdir, PathIncludedir} {
				if !path.IsAbs(resolved[k]) {
					return fmt.Errorf("expected an absolute directory name for --%s: '%s'", strings.ReplaceAll(k, "_", "-"), resolved[k])
				}
			}

			for k, v := range resolved {
				s.Paths[k] = path.Clean(v)
			}
			s.Paths[PathSrcdir] = srcdir
			s.Paths[PathBuilddir] = builddir
			return nil
		},
	}
}

// Features resolves --enable/--disable selections against the declared
// features. Enabled features define ENABLE_<NAME> and add their CFLAGS.
// Naming an undeclared feature fails the check.
func Features(declared []descriptor.Feature, enable, disable []string) Check {
	return Check{
		Name:    "feature selection",
		Absence: Fail,
		Run: func(ctx context.Context, s *State) error {
			known := make(map[string]bool, len(declared))
			for _, f := range declared {
				known[f.Name] = true
			}
			on := make(map[string]bool)
			off := make(map[string]bool)
			for _, n := range enable {
				if !known[n] {
					return fmt.Errorf("unknown feature '%s' in --enable", n)
				}
				on[n] = true
			}
			for _, n := range disable {
				if !known[n] {
					return fmt.Errorf("unknown feature '%s' in --disable", n)
				}
				if on[n] {
					return fmt.Errorf("feature '%s' is both enabled and disabled", n)
				}
				off[n] = true
			}

			for _, f := range declared {
				enabled := (f.Default || on[f.Name]) && !off[f.Name]
				define := f.Define
				if define == "" {
					define = DefineName("ENABLE_", f.Name)
				}
				comment := fmt.Sprintf("Define to 1 to enable %s.", f.Name)
				if f.Description != "" {
					comment = fmt.Sprintf("Define to 1 to enable %s (%s).", f.Name, f.Description)
				}
				if !enabled {
					s.SetDefine(define, "", comment)
					continue
				}
				s.SetDefine(define, "1", comment)
				s.Tool.CompilerFlags = append(s.Tool.CompilerFlags, f.CFlags...)
			}
			return nil
		},
	}
}
