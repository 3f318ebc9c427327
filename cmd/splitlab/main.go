package main

import (
	"os"

	"github.com/splitlab/splitlab/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
