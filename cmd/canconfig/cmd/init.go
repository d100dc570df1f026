package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default canconfig.yaml scaffold for libcanopen.
const initTemplate = `# canconfig build descriptor
version: 1

package:
  name: canopen
  version: 0.1.0
  contact: info@rscada.se
  tarname: libcanopen
  homepage: http://www.rscada.se/libcanopen/

# Library interface version (libtool current:revision:age). Update it
# before each release; it is independent of package.version.
abi:
  current: 0
  revision: 1
  age: 0

config_header: config.h

manifest:
  library: canopen
  description: CANopen protocol stack for SocketCAN
  # file: libcanopen.pc

modules:
  - dir: .
    kind: aggregate
    subdirs: [canopen, bin]
  - dir: canopen
    kind: library
    library: canopen
    sources: [canopen.c, canopen-com.c, can-if.c]
    headers: [canopen.h, can-if.h]
  - dir: bin
    kind: program
    uses: canopen
    programs:
      - name: canopen-dump
        sources: [canopen-dump.c]
      - name: canopen-master
        sources: [canopen-master.c]
      - name: canopen-control
        sources: [canopen-control.c]

# Checks run in order. on_absence is required: fail aborts configuration,
# skip records the absence and continues.
checks:
  - name: libtool
    type: program
    candidates: [libtool, glibtool]
    variable: LIBTOOL
    on_absence: fail
  - name: linux/can.h
    type: header
    subject: linux/can.h
    on_absence: fail
  - name: sys/socket.h
    type: header
    subject: sys/socket.h
    on_absence: fail
  - name: net/if.h
    type: header
    subject: net/if.h
    on_absence: fail
  - name: sys/ioctl.h
    type: header
    subject: sys/ioctl.h
    on_absence: fail
  - name: warnings
    type: compiler-flag
    subject: -Wall
    on_absence: skip

# features:
#   - name: debug
#     description: build without optimization
#     cflags: [-O0]
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter canconfig.yaml descriptor",
	Long: `Creates a canconfig.yaml in the current directory describing the libcanopen
layout: the library module, the command-line tools, and the SocketCAN header
checks.

Use --force to overwrite an existing descriptor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := descriptorPath
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.WriteFile(outPath, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing descriptor: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Adjust the modules and checks to match the source tree")
		info("  2. Run 'canconfig configure --prefix=/usr' to write the build files")
		info("  3. Run 'make' in the build directory")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing descriptor")
	rootCmd.AddCommand(initCmd)
}
