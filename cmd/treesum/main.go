// Package main provides the entry point for the treesum manifest verifier CLI.
package main

import (
	"os"

	"github.com/jamesainslie/treesum/pkg/treesum/logging"
)

func main() {
	err := Execute()
	if closeErr := logging.Close(); closeErr != nil {
		printError("%v", closeErr)
	}
	if err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
