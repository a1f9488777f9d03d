package main

import (
	"os"

	"github.com/daslaller/necbuild/cmd"
	"github.com/daslaller/necbuild/internal/core"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(core.ExitCode(err))
	}
}
