package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rscada/canconfig/internal/status"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the generated files match config.status.yaml",
	Long: `Hashes every file recorded in the build directory's config.status.yaml and
compares it against the recorded hash. Reports drifted and missing files.
Exit 0 if everything matches; exit non-zero on drift.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := status.Load(builddir)
		if err != nil {
			return err
		}

		result, err := status.Check(builddir, rec)
		if err != nil {
			return err
		}

		if result.Clean {
			info("All %d generated file(s) match %s.", len(rec.Artifacts), status.FileName)
			return nil
		}

		for _, d := range result.Drifted {
			info("  drifted   %s", d.Path)
			detail("expected: %s", d.Expected)
			detail("actual:   %s", d.Actual)
		}
		for _, m := range result.Missing {
			info("  missing   %s", m)
		}

		total := len(result.Drifted) + len(result.Missing)
		return fmt.Errorf("check failed: %d file(s) out of sync, run 'canconfig recheck'", total)
	},
}

func init() {
	checkCmd.Flags().StringVar(&builddir, "builddir", ".", "configured build directory")
	rootCmd.AddCommand(checkCmd)
}
