package checks

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/rscada/canconfig/internal/descriptor"
	"github.com/rscada/canconfig/internal/toolchain"
	"github.com/rscada/canconfig/internal/toolchain/toolchaintest"
)

// socketcanExec accepts SocketCAN headers and functions, rejects -lmissing
// and the -Wbogus flag.
func socketcanExec() *toolchaintest.Exec {
	ex := toolchaintest.New()
	ex.Paths["libtool"] = "/usr/bin/libtool"
	ex.Reject = func(args []string, src string) error {
		if strings.Contains(src, "<nosuch.h>") {
			return errors.New("fatal error: nosuch.h: No such file or directory")
		}
		if strings.Contains(src, "nosuchfn") {
			return errors.New("undefined reference to `nosuchfn'")
		}
		if slices.Contains(args, "-lmissing") {
			return errors.New("cannot find -lmissing")
		}
		if slices.Contains(args, "-Wbogus") {
			return errors.New("unrecognized command-line option '-Wbogus'")
		}
		return nil
	}
	return ex
}

func stateWith(ex toolchain.Exec) *State {
	return NewState(&toolchain.Descriptor{
		CompilerPath:  "/usr/bin/gcc",
		CompilerFlags: []string{"-g", "-O2"},
		Programs:      map[string]string{},
	}, ex, nil)
}

func TestDefineName(t *testing.T) {
	tests := []struct{ prefix, subject, want string }{
		{"HAVE_", "linux/can.h", "HAVE_LINUX_CAN_H"},
		{"HAVE_", "sys/socket.h", "HAVE_SYS_SOCKET_H"},
		{"HAVE_LIB", "rt", "HAVE_LIBRT"},
		{"ENABLE_", "sdo-block", "ENABLE_SDO_BLOCK"},
	}
	for _, tt := range tests {
		if got := DefineName(tt.prefix, tt.subject); got != tt.want {
			t.Errorf("DefineName(%q, %q) = %q, want %q", tt.prefix, tt.subject, got, tt.want)
		}
	}
}

func TestHeaderCheck(t *testing.T) {
	ex := socketcanExec()
	s := stateWith(ex)
	ctx := context.Background()

	if err := Header("can", "linux/can.h", Fail).Run(ctx, s); err != nil {
		t.Errorf("linux/can.h: %v", err)
	}
	err := Header("nosuch", "nosuch.h", Fail).Run(ctx, s)
	if !errors.Is(err, ErrAbsent) {
		t.Errorf("nosuch.h: expected ErrAbsent, got %v", err)
	}
}

func TestLibraryCheckAppendsLibs(t *testing.T) {
	s := stateWith(socketcanExec())
	ctx := context.Background()

	if err := Library("librt", "rt", "clock_gettime", Fail).Run(ctx, s); err != nil {
		t.Fatalf("librt: %v", err)
	}
	if err := Library("libmissing", "missing", "f", Skip).Run(ctx, s); !errors.Is(err, ErrAbsent) {
		t.Fatalf("libmissing: expected ErrAbsent, got %v", err)
	}
	if !reflect.DeepEqual(s.Tool.Libs, []string{"-lrt"}) {
		t.Errorf("libs = %v", s.Tool.Libs)
	}
}

func TestFlagChecks(t *testing.T) {
	s := stateWith(socketcanExec())
	ctx := context.Background()

	if err := CompilerFlag("wall", "-Wall", Skip).Run(ctx, s); err != nil {
		t.Fatalf("-Wall: %v", err)
	}
	if err := CompilerFlag("bogus", "-Wbogus", Skip).Run(ctx, s); !errors.Is(err, ErrAbsent) {
		t.Fatalf("-Wbogus: expected ErrAbsent, got %v", err)
	}
	if err := LinkerFlag("as-needed", "-Wl,--as-needed", Skip).Run(ctx, s); err != nil {
		t.Fatalf("--as-needed: %v", err)
	}

	if !reflect.DeepEqual(s.Tool.CompilerFlags, []string{"-g", "-O2", "-Wall"}) {
		t.Errorf("cflags = %v", s.Tool.CompilerFlags)
	}
	if !reflect.DeepEqual(s.Tool.LinkerFlags, []string{"-Wl,--as-needed"}) {
		t.Errorf("ldflags = %v", s.Tool.LinkerFlags)
	}
}

func TestProgramCheck(t *testing.T) {
	s := stateWith(socketcanExec())
	ctx := context.Background()

	if err := Program("libtool", "LIBTOOL", []string{"glibtool", "libtool"}, Fail).Run(ctx, s); err != nil {
		t.Fatalf("libtool: %v", err)
	}
	if s.Tool.Programs["LIBTOOL"] != "/usr/bin/libtool" {
		t.Errorf("LIBTOOL = %q", s.Tool.Programs["LIBTOOL"])
	}
	if err := Program("doxygen", "DOXYGEN", []string{"doxygen"}, Skip).Run(ctx, s); !errors.Is(err, ErrAbsent) {
		t.Errorf("doxygen: expected ErrAbsent, got %v", err)
	}
}

func TestFromDescriptor(t *testing.T) {
	c, err := FromDescriptor(descriptor.Check{
		Name:      "socket",
		Type:      descriptor.CheckFunction,
		Subject:   "socket",
		Define:    "HAVE_BSD_SOCKET",
		OnAbsence: "skip",
	})
	if err != nil {
		t.Fatalf("FromDescriptor: %v", err)
	}
	if c.Absence != Skip || c.Define != "HAVE_BSD_SOCKET" {
		t.Errorf("check = %+v", c)
	}

	if _, err := FromDescriptor(descriptor.Check{Name: "x", Type: "header", Subject: "x.h"}); err == nil {
		t.Error("missing on_absence must be rejected")
	}
	if _, err := FromDescriptor(descriptor.Check{Name: "x", Type: "magic", OnAbsence: "fail"}); err == nil {
		t.Error("unknown type must be rejected")
	}
}

func TestInstallDirs(t *testing.T) {
	s := stateWith(nil)
	c := InstallDirs(Dirs{Prefix: "/usr", Libdir: "/usr/lib64"}, "/src", "/build")
	if err := c.Run(context.Background(), s); err != nil {
		t.Fatalf("InstallDirs: %v", err)
	}

	want := map[string]string{
		PathPrefix:       "/usr",
		PathExecPrefix:   "/usr",
		PathBindir:       "/usr/bin",
		PathLibdir:       "/usr/lib64",
		PathIncludedir:   "/usr/include",
		PathPkgconfigdir: "/usr/lib64/pkgconfig",
		PathSrcdir:       "/src",
		PathBuilddir:     "/build",
	}
	if !reflect.DeepEqual(s.Paths, want) {
		t.Errorf("paths = %v\nwant %v", s.Paths, want)
	}
}

func TestInstallDirsRequiresAbsolutePrefix(t *testing.T) {
	s := stateWith(nil)
	err := InstallDirs(Dirs{Prefix: "usr/local"}, "/src", "/build").Run(context.Background(), s)
	if err == nil || !strings.Contains(err.Error(), "--prefix") {
		t.Fatalf("expected --prefix error, got %v", err)
	}
	if len(s.Paths) != 0 {
		t.Errorf("paths should be untouched on error: %v", s.Paths)
	}
}

func TestFeatures(t *testing.T) {
	declared := []descriptor.Feature{
		{Name: "debug", CFlags: []string{"-O0", "-DCANOPEN_DEBUG"}},
		{Name: "sdo-block", Default: true},
		{Name: "python", Define: "WITH_PYTHON"},
	}

	s := stateWith(nil)
	if err := Features(declared, []string{"debug"}, []string{"sdo-block"}).Run(context.Background(), s); err != nil {
		t.Fatalf("Features: %v", err)
	}

	got := map[string]string{}
	for _, d := range s.Defines() {
		got[d.Name] = d.Value
	}
	want := map[string]string{"ENABLE_DEBUG": "1", "ENABLE_SDO_BLOCK": "", "WITH_PYTHON": ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("defines = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(s.Tool.CompilerFlags, []string{"-g", "-O2", "-O0", "-DCANOPEN_DEBUG"}) {
		t.Errorf("cflags = %v", s.Tool.CompilerFlags)
	}
}

func TestFeaturesRejectsUnknown(t *testing.T) {
	declared := []descriptor.Feature{{Name: "debug"}}
	tests := []struct {
		enable, disable []string
		want            string
	}{
		{[]string{"turbo"}, nil, "unknown feature 'turbo' in --enable"},
		{nil, []string{"turbo"}, "unknown feature 'turbo' in --disable"},
		{[]string{"debug"}, []string{"debug"}, "both enabled and disabled"},
	}
	for _, tt := range tests {
		err := Features(declared, tt.enable, tt.disable).Run(context.Background(), stateWith(nil))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("err = %v, want containing %q", err, tt.want)
		}
	}
}
