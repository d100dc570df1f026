package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rscada/canconfig/internal/abi"
	"github.com/rscada/canconfig/internal/checks"
	"github.com/rscada/canconfig/internal/descriptor"
	"github.com/rscada/canconfig/internal/site"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the package, modules, checks and site defaults",
	Long: `Loads the build descriptor without running anything and prints the package
identity, library interface version, module directories, the ordered check
list, optional features, and which site default files were found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := descriptor.Load(descriptorPath)
		if err != nil {
			return err
		}

		fmt.Printf("canconfig %s\n", version)
		fmt.Printf("  descriptor:    %s\n", descriptorPath)
		fmt.Printf("  package:       %s %s <%s>\n", d.Package.Name, d.Package.Version, d.Package.Contact)
		fmt.Printf("  tarname:       %s\n", d.Package.Tarname)
		if t, err := abi.Compute(d.ABI.Current, d.ABI.Revision, d.ABI.Age); err != nil {
			fmt.Printf("  abi:           invalid (%v)\n", err)
		} else {
			fmt.Printf("  abi:           %s (%s)\n", t, strings.Join(t.Flags(), " "))
		}
		fmt.Printf("  config header: %s\n", d.ConfigHeader)
		if d.Manifest != nil {
			fmt.Printf("  manifest:      %s\n", d.Manifest.File)
		}

		fmt.Println("\nModules:")
		for _, m := range d.Modules {
			fmt.Printf("  %-15s %s%s\n", m.Dir, m.Kind, moduleDetail(m))
		}

		if len(d.Checks) > 0 {
			fmt.Println("\nChecks:")
			for i, c := range d.Checks {
				fmt.Printf("  %2d. %-20s %-14s on absence: %s\n", i+1, c.Name, c.Type, c.OnAbsence)
			}
		}

		if len(d.Features) > 0 {
			fmt.Println("\nFeatures:")
			for _, f := range d.Features {
				state := "disabled"
				if f.Default {
					state = "enabled"
				}
				define := f.Define
				if define == "" {
					define = checks.DefineName("ENABLE_", f.Name)
				}
				fmt.Printf("  %-15s %-9s %s\n", f.Name, state, define)
			}
		}

		if noSite || site.EnvDisabled(getenv) {
			fmt.Println("\nSite defaults: disabled")
			return nil
		}
		res, err := site.Load(site.DiscoverOptions{ExplicitPath: getenv("CONFIG_SITE"), Getenv: getenv})
		fmt.Println("\nSite defaults:")
		if res != nil {
			for _, l := range res.Layers {
				state := "not found"
				switch {
				case l.Err != nil:
					state = "error"
				case l.Loaded:
					state = "loaded"
				}
				fmt.Printf("  %-10s %s (%s)\n", string(l.Level)+":", l.Path, state)
			}
		}
		return err
	},
}

func moduleDetail(m descriptor.Module) string {
	switch m.Kind {
	case descriptor.KindAggregate:
		return " → " + strings.Join(m.Subdirs, ", ")
	case descriptor.KindLibrary:
		return " → lib" + m.Library + ".la"
	case descriptor.KindProgram:
		names := make([]string, len(m.Programs))
		for i, p := range m.Programs {
			names[i] = p.Name
		}
		return " → " + strings.Join(names, ", ") + " (links " + m.Uses + ")"
	}
	return ""
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
