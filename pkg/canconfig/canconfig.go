// Package canconfig provides the public Go library API for canconfig.
//
// canconfig runs the one-shot build configuration pass for libcanopen:
// toolchain probe, library interface version, configuration checks, and
// artifact emission. This package exposes it for embedding in other Go
// programs, such as release tooling.
//
// # Basic Usage
//
//	client, err := canconfig.New(canconfig.Options{
//	    DescriptorPath: "canconfig.yaml",
//	    BuildDir:       "build",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Configure the build directory
//	report, err := client.Configure(ctx, canconfig.ConfigureOptions{
//	    Dirs: canconfig.Dirs{Prefix: "/usr"},
//	    Env:  canconfig.CaptureEnv(os.Getenv),
//	})
//
//	// Check for drift
//	drift, err := client.Check()
package canconfig

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/rscada/canconfig/internal/descriptor"
	"github.com/rscada/canconfig/internal/dist"
	"github.com/rscada/canconfig/internal/metadata"
	"github.com/rscada/canconfig/internal/pass"
	"github.com/rscada/canconfig/internal/status"
)

// Configurer runs a configuration pass.
type Configurer interface {
	Configure(ctx context.Context, opts ConfigureOptions) (*Report, error)
}

// Checker verifies generated files against the status record.
type Checker interface {
	Check() (*DriftReport, error)
}

// Options configures a canconfig client.
type Options struct {
	// DescriptorPath is the build descriptor. Default: "canconfig.yaml".
	DescriptorPath string

	// Srcdir defaults to the directory containing DescriptorPath.
	Srcdir string

	// BuildDir receives the artifacts. Default: the current directory.
	BuildDir string

	// Exec runs the compiler. Nil uses the host.
	Exec Exec

	// Log receives the pass log. Nil discards it.
	Log hclog.Logger

	// Stdout receives the configuration summary. Nil discards it.
	Stdout io.Writer
}

// ConfigureOptions are the per-run inputs.
type ConfigureOptions struct {
	Dirs    Dirs
	Host    string
	Enable  []string
	Disable []string
	Env     Env
}

// Client is the main entry point for the canconfig library.
// It implements Configurer and Checker.
type Client struct {
	descriptorPath string
	srcdir         string
	buildDir       string
	deps           pass.Deps
}

// New creates a new canconfig Client.
func New(opts Options) (*Client, error) {
	if opts.DescriptorPath == "" {
		opts.DescriptorPath = "canconfig.yaml"
	}
	if opts.BuildDir == "" {
		opts.BuildDir = "."
	}
	build, err := filepath.Abs(opts.BuildDir)
	if err != nil {
		return nil, fmt.Errorf("resolving build directory: %w", err)
	}
	log := opts.Log
	if log == nil {
		log = hclog.NewNullLogger()
	}

	return &Client{
		descriptorPath: opts.DescriptorPath,
		srcdir:         opts.Srcdir,
		buildDir:       build,
		deps:           pass.Deps{Exec: opts.Exec, Log: log, Stdout: opts.Stdout},
	}, nil
}

// Configure runs one pass. On failure the error is a *Error naming the
// stage, and nothing has been written.
func (c *Client) Configure(ctx context.Context, opts ConfigureOptions) (*Report, error) {
	in := pass.Input{
		Descriptor: c.descriptorPath,
		Srcdir:     c.srcdir,
		Builddir:   c.buildDir,
		Dirs:       opts.Dirs,
		Host:       opts.Host,
		Enable:     opts.Enable,
		Disable:    opts.Disable,
		Env:        opts.Env,
	}
	return pass.Run(ctx, in, c.deps)
}

// Recheck re-runs the pass recorded in the build directory.
func (c *Client) Recheck(ctx context.Context) (*Report, error) {
	rec, err := status.Load(c.buildDir)
	if err != nil {
		return nil, err
	}
	return pass.Run(ctx, pass.FromInvocation(rec.Invocation), c.deps)
}

// Check hashes the recorded artifacts and reports drift.
func (c *Client) Check() (*DriftReport, error) {
	rec, err := status.Load(c.buildDir)
	if err != nil {
		return nil, err
	}
	return status.Check(c.buildDir, rec)
}

// Dist writes the source tarball into the build directory and returns
// its path.
func (c *Client) Dist(ctx context.Context) (string, error) {
	d, err := descriptor.Load(c.descriptorPath)
	if err != nil {
		return "", err
	}
	p := d.Package
	meta, err := metadata.New(p.Name, p.Version, p.Contact, p.Tarname, p.Homepage)
	if err != nil {
		return "", err
	}

	src := c.srcdir
	if src == "" {
		abs, err := filepath.Abs(c.descriptorPath)
		if err != nil {
			return "", fmt.Errorf("resolving descriptor path: %w", err)
		}
		src = filepath.Dir(abs)
	}
	return dist.Create(ctx, dist.Options{
		Srcdir:   src,
		Builddir: c.buildDir,
		Package:  meta,
		Log:      c.deps.Log.Named("dist"),
	})
}
