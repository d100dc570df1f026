// Package pass runs one configuration pass: probe the toolchain, compute
// the ABI version, run the checks, and emit the build artifacts.
//
// The pass is strictly sequential. Any failure moves it to StageAborted,
// and nothing is written to the build directory unless every check
// succeeded.
package pass

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"

	"github.com/rscada/canconfig/internal/abi"
	"github.com/rscada/canconfig/internal/checks"
	"github.com/rscada/canconfig/internal/descriptor"
	"github.com/rscada/canconfig/internal/emit"
	"github.com/rscada/canconfig/internal/metadata"
	"github.com/rscada/canconfig/internal/status"
	"github.com/rscada/canconfig/internal/toolchain"
)

// Error is an aborted pass. Stage is where it stopped.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Deps are the pass's collaborators.
type Deps struct {
	// Exec runs the compiler. Nil means toolchain.OSExec.
	Exec toolchain.Exec
	Log  hclog.Logger

	// Stdout receives the configuration summary.
	Stdout io.Writer

	// GOOS and GOARCH override the platform for compiler candidates and
	// the fallback host triple.
	GOOS   string
	GOARCH string
}

// Report describes a finished pass, successful or not.
type Report struct {
	Input     Input
	Stage     Stage
	History   []Stage
	Package   *metadata.Package
	Toolchain *toolchain.Descriptor
	Triple    abi.Triple
	Result    *checks.Result
	Artifacts *emit.ArtifactSet
}

type runner struct {
	deps   Deps
	log    hclog.Logger
	in     Input
	m      Machine
	report *Report
}

// Run executes the pass. The returned Report is never nil; on failure the
// error is a *Error naming the stage.
func Run(ctx context.Context, in Input, deps Deps) (*Report, error) {
	if deps.Exec == nil {
		deps.Exec = toolchain.OSExec{}
	}
	log := deps.Log
	if log == nil {
		log = hclog.NewNullLogger()
	}

	r := &runner{deps: deps, log: log, report: &Report{Input: in}}
	err := r.run(ctx, in)
	r.report.Stage = r.m.Current()
	r.report.History = r.m.History()
	return r.report, err
}

func (r *runner) abort(err error) error {
	stage := r.m.Current()
	r.log.Error("configuration aborted", "stage", stage, "error", err)
	_ = r.m.Transition(StageAborted)
	return &Error{Stage: stage, Err: err}
}

func (r *runner) enter(s Stage) error {
	if err := r.m.Transition(s); err != nil {
		return err
	}
	r.log.Debug("entering stage", "stage", s)
	return nil
}

func (r *runner) run(ctx context.Context, raw Input) error {
	// Init: snapshot, descriptor, package identity.
	in, err := raw.resolve()
	if err != nil {
		return r.abort(err)
	}
	r.in = in
	r.report.Input = in

	d, err := descriptor.Load(in.Descriptor)
	if err != nil {
		return r.abort(err)
	}
	p := d.Package
	meta, err := metadata.New(p.Name, p.Version, p.Contact, p.Tarname, p.Homepage)
	if err != nil {
		return r.abort(err)
	}
	r.report.Package = meta
	r.log.Info("configuring", "package", meta.String(), "srcdir", in.Srcdir, "builddir", in.Builddir)

	if err := r.enter(StageProbingToolchain); err != nil {
		return r.abort(err)
	}
	prober := &toolchain.Prober{
		Exec:   r.deps.Exec,
		Log:    r.log.Named("toolchain"),
		Host:   in.Host,
		Flags:  in.Env.flags(),
		GOOS:   r.deps.GOOS,
		GOARCH: r.deps.GOARCH,
	}
	tool, err := prober.ResolveCompiler(ctx, in.Env.CC)
	if err != nil {
		return r.abort(err)
	}
	r.report.Toolchain = tool

	if err := r.enter(StageComputingVersion); err != nil {
		return r.abort(err)
	}
	triple, err := abi.Compute(d.ABI.Current, d.ABI.Revision, d.ABI.Age)
	if err != nil {
		return r.abort(err)
	}
	r.report.Triple = triple
	r.log.Info("library interface version", "abi", triple.String())

	if err := r.enter(StageRunningChecks); err != nil {
		return r.abort(err)
	}
	resolver, err := r.resolver(d)
	if err != nil {
		return r.abort(err)
	}
	res := resolver.Run(ctx, checks.NewState(tool, r.deps.Exec, r.log.Named("checks")))
	r.report.Result = res
	if !res.Success {
		return r.abort(res.Err)
	}
	// The version flag is the last linker-flag mutation of the pass.
	triple.Apply(tool)

	if err := r.enter(StageEmitting); err != nil {
		return r.abort(err)
	}
	e := &emit.Emitter{
		BuildDir:   in.Builddir,
		Descriptor: d,
		Stdout:     r.deps.Stdout,
		Log:        r.log.Named("emit"),
		Attach:     r.statusRecord(meta, tool, triple),
	}
	set, err := e.Emit(res, meta, tool, triple)
	if err != nil {
		return r.abort(err)
	}
	r.report.Artifacts = set

	if err := r.enter(StageDone); err != nil {
		return r.abort(err)
	}
	return nil
}

// resolver builds the ordered check list: install directories, feature
// selection, then the descriptor's checks in declaration order.
func (r *runner) resolver(d *descriptor.Descriptor) (*checks.Resolver, error) {
	list := []checks.Check{
		checks.InstallDirs(r.in.Dirs, r.in.Srcdir, r.in.Builddir),
		checks.Features(d.Features, r.in.Enable, r.in.Disable),
	}
	for _, dc := range d.Checks {
		c, err := checks.FromDescriptor(dc)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return checks.NewResolver(list...)
}

func (r *runner) statusRecord(meta *metadata.Package, tool *toolchain.Descriptor, triple abi.Triple) emit.AttachFunc {
	return func(set *emit.ArtifactSet) (string, []byte, error) {
		rec := &status.Record{
			Version:    1,
			Package:    meta.String(),
			ABI:        triple.String(),
			Invocation: r.in.Invocation(),
			Toolchain: status.Toolchain{
				Compiler: tool.CompilerPath,
				Vendor:   string(tool.Vendor),
				Host:     tool.Host,
			},
		}
		for _, f := range set.Files {
			rec.Artifacts = append(rec.Artifacts, status.Artifact{Path: f.Path, Kind: f.Kind, SHA256: f.SHA256})
		}
		data, err := status.Marshal(rec)
		return status.FileName, data, err
	}
}
