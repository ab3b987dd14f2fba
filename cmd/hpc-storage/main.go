package main

import (
	"os"

	"github.com/plgrid/hpc-storage/cmd/hpc-storage/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
