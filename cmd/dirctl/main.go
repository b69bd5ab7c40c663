// Package main implements dirctl, a command-line client for the directoryd
// HTTP API.
package main

import (
	"os"
)

// version information (set via ldflags during build)
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
