// Package main is the entry point for the fzpick CLI.
package main

import (
	"os"

	"github.com/runger/fzpick/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
