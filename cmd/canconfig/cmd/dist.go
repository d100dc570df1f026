package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rscada/canconfig/internal/descriptor"
	"github.com/rscada/canconfig/internal/dist"
	"github.com/rscada/canconfig/internal/metadata"
	"github.com/rscada/canconfig/internal/status"
)

var distCmd = &cobra.Command{
	Use:   "dist",
	Short: "Create the source tarball",
	Long: `Writes tarname-version.tar.gz into the build directory. When the source
directory is a git repository the files committed at HEAD are packed;
otherwise the tree is walked, skipping .git, the build directory and any
files generated by an in-tree configuration. Output is reproducible.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := descriptor.Load(descriptorPath)
		if err != nil {
			return err
		}
		p := d.Package
		meta, err := metadata.New(p.Name, p.Version, p.Contact, p.Tarname, p.Homepage)
		if err != nil {
			return err
		}

		log, closeLog, err := newLogger()
		defer closeLog()
		if err != nil {
			return err
		}

		src := srcdir
		if src == "" {
			abs, err := filepath.Abs(descriptorPath)
			if err != nil {
				return fmt.Errorf("resolving descriptor path: %w", err)
			}
			src = filepath.Dir(abs)
		}

		out, err := dist.Create(cmd.Context(), dist.Options{
			Srcdir:   src,
			Builddir: builddir,
			Package:  meta,
			Exclude:  generatedFiles(src, builddir),
			Log:      log.Named("dist"),
		})
		if err != nil {
			return err
		}
		info("Created %s", out)
		return nil
	},
}

// generatedFiles lists, relative to src, the files a configuration wrote
// into builddir when the two are the same directory.
func generatedFiles(src, build string) []string {
	absSrc, err1 := filepath.Abs(src)
	absBuild, err2 := filepath.Abs(build)
	if err1 != nil || err2 != nil || absSrc != absBuild {
		return nil
	}
	rec, err := status.Load(build)
	if err != nil {
		return nil
	}
	out := []string{status.FileName}
	for _, a := range rec.Artifacts {
		out = append(out, a.Path)
	}
	return out
}

func init() {
	distCmd.Flags().StringVar(&srcdir, "srcdir", "", "source directory (default: the descriptor's directory)")
	distCmd.Flags().StringVar(&builddir, "builddir", ".", "directory to write the tarball into")
	rootCmd.AddCommand(distCmd)
}
