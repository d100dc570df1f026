package main

import (
	"os"

	"github.com/rscada/canconfig/cmd/canconfig/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
