// Package logging builds the hclog logger shared by every stage of a pass.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Name is the root logger name.
const Name = "canconfig"

// Options selects where log lines go. With no LogFile and Verbose unset
// the logger discards everything.
type Options struct {
	Verbose bool
	LogFile io.Writer
	Stderr  io.Writer
}

// New returns the root logger.
func New(opts Options) hclog.Logger {
	var outs []io.Writer
	if opts.LogFile != nil {
		outs = append(outs, opts.LogFile)
	}
	if opts.Verbose {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		outs = append(outs, stderr)
	}
	if len(outs) == 0 {
		return hclog.NewNullLogger()
	}

	level := hclog.Info
	if opts.Verbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   Name,
		Level:  level,
		Output: io.MultiWriter(outs...),
	})
}

// OpenFile truncates and opens path for use as a config.log.
func OpenFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}
