package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/rscada/canconfig/internal/logging"
	"github.com/rscada/canconfig/internal/pass"
	"github.com/rscada/canconfig/internal/site"
	"github.com/rscada/canconfig/internal/toolchain"
)

// Process hooks. Tests replace them.
var (
	execer toolchain.Exec // nil means the host
	getenv = os.Getenv
)

// newLogger builds the run's logger. The returned func closes the log
// file, if one was opened.
func newLogger() (hclog.Logger, func(), error) {
	opts := logging.Options{Verbose: verbose}
	closeFn := func() {}
	if logFile != "" {
		f, err := logging.OpenFile(logFile)
		if err != nil {
			return nil, closeFn, err
		}
		opts.LogFile = f
		closeFn = func() { f.Close() }
	}
	return logging.New(opts), closeFn, nil
}

// applySite fills the inputs neither a flag nor the environment set from
// the site default files.
func applySite(in *pass.Input, log hclog.Logger) error {
	if noSite || site.EnvDisabled(getenv) {
		log.Debug("site defaults disabled")
		return nil
	}
	res, err := site.Load(site.DiscoverOptions{ExplicitPath: getenv("CONFIG_SITE"), Getenv: getenv})
	if err != nil {
		return err
	}
	for _, l := range res.Layers {
		if l.Loaded {
			log.Info("loading site defaults", "level", l.Level, "path", l.Path)
			detail("site defaults: %s", l.Path)
		}
	}
	in.ApplySite(res.Defaults)
	return nil
}

// deps assembles the pass collaborators for a CLI run.
func deps(log hclog.Logger) pass.Deps {
	var stdout io.Writer = os.Stdout
	if quiet {
		stdout = io.Discard
	}
	return pass.Deps{Exec: execer, Log: log, Stdout: stdout}
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
