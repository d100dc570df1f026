package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rscada/canconfig/internal/pass"
	"github.com/rscada/canconfig/internal/status"
)

var recheckCmd = &cobra.Command{
	Use:   "recheck",
	Short: "Re-run configuration with the recorded inputs",
	Long: `Reads config.status.yaml from the build directory and runs a fresh pass with
exactly the inputs the last successful run used. The current environment and
site defaults are ignored. Every check runs again; no result is reused.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := status.Load(builddir)
		if err != nil {
			return err
		}

		log, closeLog, err := newLogger()
		defer closeLog()
		if err != nil {
			return err
		}

		in := pass.FromInvocation(rec.Invocation)
		log.Info("replaying recorded invocation", "package", rec.Package, "descriptor", in.Descriptor)
		detail("descriptor: %s", in.Descriptor)

		_, err = pass.Run(cmd.Context(), in, deps(log))
		return err
	},
}

func init() {
	recheckCmd.Flags().StringVar(&builddir, "builddir", ".", "configured build directory")
	rootCmd.AddCommand(recheckCmd)
}
