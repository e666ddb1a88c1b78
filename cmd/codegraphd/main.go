// Package main provides the entry point for the codegraphd CLI.
package main

import (
	"os"

	"github.com/kestrel-forge/codegraphd/cmd/codegraphd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
