package main

import (
	"errors"
	"os"

	"github.com/jianzi123/slow-node/cmd/slownode/commands"
)

// Version information (set via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Set version info in commands package
	commands.SetVersionInfo(version, commit, buildDate)

	if err := commands.Execute(); err != nil {
		var exitErr *commands.ExitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(2)
	}
}
