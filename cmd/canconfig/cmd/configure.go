package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rscada/canconfig/internal/checks"
	"github.com/rscada/canconfig/internal/pass"
)

var (
	builddir string
	srcdir   string
	host     string
	dirs     checks.Dirs
	enable   []string
	disable  []string
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Probe the toolchain, run the checks, and write the build files",
	Long: `Runs one configuration pass. The pass probes for a C compiler (CC overrides
the search), computes the library interface version from the descriptor, runs
every declared check in order, and on success writes one Makefile per module
directory, the config header, the pkg-config manifest and config.status.yaml
into the build directory.

CPPFLAGS, CFLAGS, LDFLAGS and LIBS are read from the environment. Values not
set by a flag or the environment come from the site defaults.

If the compiler is missing or any check fails, nothing is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closeLog, err := newLogger()
		defer closeLog()
		if err != nil {
			return err
		}

		in := pass.Input{
			Descriptor: descriptorPath,
			Srcdir:     srcdir,
			Builddir:   builddir,
			Dirs:       dirs,
			Host:       host,
			Enable:     enable,
			Disable:    disable,
			Env:        pass.CaptureEnv(getenv),
		}
		if err := applySite(&in, log); err != nil {
			return err
		}

		rep, err := pass.Run(cmd.Context(), in, deps(log))
		if err != nil {
			return err
		}
		for _, f := range rep.Artifacts.Files {
			detail("wrote %s", f.Path)
		}
		return nil
	},
}

func init() {
	f := configureCmd.Flags()
	f.StringVar(&dirs.Prefix, "prefix", "", "install architecture-independent files in this directory (default /usr/local)")
	f.StringVar(&dirs.ExecPrefix, "exec-prefix", "", "install architecture-dependent files in this directory (default prefix)")
	f.StringVar(&dirs.Bindir, "bindir", "", "user executables (default exec-prefix/bin)")
	f.StringVar(&dirs.Libdir, "libdir", "", "object code libraries (default exec-prefix/lib)")
	f.StringVar(&dirs.Includedir, "includedir", "", "C header files (default prefix/include)")
	f.StringVar(&host, "host", "", "cross-compile to build programs to run on this host triple")
	f.StringVar(&srcdir, "srcdir", "", "source directory (default: the descriptor's directory)")
	f.StringVar(&builddir, "builddir", ".", "build directory to write into")
	f.StringSliceVar(&enable, "enable", nil, "enable an optional feature (repeatable)")
	f.StringSliceVar(&disable, "disable", nil, "disable an optional feature (repeatable)")
	rootCmd.AddCommand(configureCmd)
}
