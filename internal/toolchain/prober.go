package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/go-hclog"
)

const probeProgram = "int main(void) { return 0; }\n"

// Prober selects and validates a C compiler.
type Prober struct {
	Exec Exec
	Log  hclog.Logger

	// Host is the --host triple. When set, host-prefixed compilers are
	// tried first and the triple is not queried from the compiler.
	Host  string
	Flags Flags

	// GOOS and GOARCH pick the candidate order and the fallback triple.
	// Empty means the running platform.
	GOOS   string
	GOARCH string
}

// platformCandidates lists compilers in the order each platform prefers them.
var platformCandidates = map[string][]string{
	"linux":  {"gcc", "cc", "clang"},
	"darwin": {"clang", "cc", "gcc"},
}

var defaultCandidates = []string{"cc", "gcc", "clang"}

// Candidates returns the compiler names tried when CC is not set.
func (p *Prober) Candidates() []string {
	var out []string
	if p.Host != "" {
		for _, c := range []string{"gcc", "cc", "clang"} {
			out = append(out, p.Host+"-"+c)
		}
	}
	list, ok := platformCandidates[p.goos()]
	if !ok {
		list = defaultCandidates
	}
	return append(out, list...)
}

// ResolveCompiler returns a descriptor for a working compiler. An explicit
// path (from CC) is probed alone; otherwise Candidates are tried in order.
func (p *Prober) ResolveCompiler(ctx context.Context, explicitPath string) (*Descriptor, error) {
	log := p.logger()

	if explicitPath != "" {
		log.Debug("probing compiler from CC", "cc", explicitPath)
		d, reason := p.probe(ctx, explicitPath)
		if d == nil {
			return nil, &NotFoundError{Explicit: true, Attempts: []Attempt{{Candidate: explicitPath, Reason: reason}}}
		}
		p.logSelected(d)
		return d, nil
	}

	nf := &NotFoundError{}
	for _, name := range p.Candidates() {
		log.Debug("probing compiler candidate", "candidate", name)
		d, reason := p.probe(ctx, name)
		if d == nil {
			log.Debug("candidate rejected", "candidate", name, "reason", reason)
			nf.Attempts = append(nf.Attempts, Attempt{Candidate: name, Reason: reason})
			continue
		}
		if p.Host != "" && !strings.HasPrefix(filepath.Base(d.CompilerPath), p.Host+"-") {
			log.Warn("using a compiler not prefixed with the host triple", "host", p.Host, "cc", d.CompilerPath)
		}
		p.logSelected(d)
		return d, nil
	}
	return nil, nf
}

// probe returns a descriptor, or nil and the reason the candidate failed.
func (p *Prober) probe(ctx context.Context, name string) (*Descriptor, string) {
	path, err := p.Exec.LookPath(name)
	if err != nil {
		return nil, "not found"
	}

	vendor := VendorUnknown
	if out, err := p.Exec.Run(ctx, "", path, "--version"); err == nil {
		vendor = detectVendor(string(out))
	}

	d := &Descriptor{
		CompilerPath:  path,
		Vendor:        vendor,
		CPPFlags:      append([]string(nil), p.Flags.CPPFlags...),
		CompilerFlags: append(defaultFlags(vendor), p.Flags.CFlags...),
		LinkerFlags:   append([]string(nil), p.Flags.LDFlags...),
		Libs:          append([]string(nil), p.Flags.Libs...),
		Programs:      map[string]string{},
	}

	c := &Compiler{Exec: p.Exec, Tool: d}
	if err := c.TryLink(ctx, probeProgram, nil); err != nil {
		return nil, "C compiler cannot create executables: " + err.Error()
	}

	d.Host = p.hostTriple(ctx, path)
	return d, ""
}

func (p *Prober) hostTriple(ctx context.Context, compiler string) string {
	if p.Host != "" {
		return p.Host
	}
	if out, err := p.Exec.Run(ctx, "", compiler, "-dumpmachine"); err == nil {
		if t := strings.TrimSpace(string(out)); t != "" && !strings.ContainsAny(t, " \n") {
			return t
		}
	}
	return FallbackTriple(p.goos(), p.goarch())
}

func (p *Prober) logSelected(d *Descriptor) {
	p.logger().Info("selected C compiler",
		"cc", d.CompilerPath,
		"vendor", string(d.Vendor),
		"cflags", strings.Join(d.CompilerFlags, " "),
		"host", d.Host)
}

func (p *Prober) logger() hclog.Logger {
	if p.Log == nil {
		return hclog.NewNullLogger()
	}
	return p.Log
}

func (p *Prober) goos() string {
	if p.GOOS != "" {
		return p.GOOS
	}
	return runtime.GOOS
}

func (p *Prober) goarch() string {
	if p.GOARCH != "" {
		return p.GOARCH
	}
	return runtime.GOARCH
}

func detectVendor(banner string) Vendor {
	b := strings.ToLower(banner)
	switch {
	case strings.Contains(b, "clang"):
		return VendorClang
	case strings.Contains(b, "gcc"), strings.Contains(b, "free software foundation"):
		return VendorGNU
	default:
		return VendorUnknown
	}
}

func defaultFlags(v Vendor) []string {
	switch v {
	case VendorGNU, VendorClang:
		return []string{"-g", "-O2"}
	default:
		return []string{"-g"}
	}
}

var tripleArch = map[string]string{
	"amd64":   "x86_64",
	"386":     "i686",
	"arm64":   "aarch64",
	"arm":     "arm",
	"riscv64": "riscv64",
	"ppc64le": "powerpc64le",
}

// FallbackTriple derives a GNU-style host triple from a Go platform pair.
func FallbackTriple(goos, goarch string) string {
	arch, ok := tripleArch[goarch]
	if !ok {
		arch = goarch
	}
	switch goos {
	case "linux":
		if arch == "x86_64" || arch == "i686" {
			return arch + "-pc-linux-gnu"
		}
		if arch == "arm" {
			return "arm-unknown-linux-gnueabihf"
		}
		return arch + "-unknown-linux-gnu"
	case "darwin":
		return arch + "-apple-darwin"
	default:
		return fmt.Sprintf("%s-unknown-%s", arch, goos)
	}
}

// Compiler runs throwaway compilations with a descriptor's flags.
type Compiler struct {
	Exec Exec
	Tool *Descriptor
}

// TryCompile compiles src to an object file with extra appended to CFLAGS.
func (c *Compiler) TryCompile(ctx context.Context, src string, extra ...string) error {
	return c.run(ctx, src, func() []string {
		args := append([]string(nil), c.Tool.CPPFlags...)
		args = append(args, c.Tool.CompilerFlags...)
		args = append(args, extra...)
		return append(args, "-c", "conftest.c", "-o", "conftest.o")
	})
}

// TryLink compiles and links src. ldflags are appended to LDFLAGS and libs
// after the descriptor's LIBS.
func (c *Compiler) TryLink(ctx context.Context, src string, ldflags []string, libs ...string) error {
	return c.run(ctx, src, func() []string {
		args := append([]string(nil), c.Tool.CPPFlags...)
		args = append(args, c.Tool.CompilerFlags...)
		args = append(args, c.Tool.LinkerFlags...)
		args = append(args, ldflags...)
		args = append(args, "conftest.c", "-o", "conftest")
		args = append(args, c.Tool.Libs...)
		return append(args, libs...)
	})
}

func (c *Compiler) run(ctx context.Context, src string, argv func() []string) error {
	dir, err := os.MkdirTemp("", "canconfig-conftest-")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "conftest.c"), []byte(src), 0644); err != nil {
		return fmt.Errorf("writing conftest.c: %w", err)
	}

	out, err := c.Exec.Run(ctx, dir, c.Tool.CompilerPath, argv()...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return err
		}
		if i := strings.IndexByte(msg, '\n'); i >= 0 {
			msg = msg[:i]
		}
		return fmt.Errorf("%w: %s", err, msg)
	}
	return nil
}
