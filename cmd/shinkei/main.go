// Package main is the entry point for the shinkei CLI.
package main

import (
	"os"

	"github.com/f3rmion/shinkei/cmd/shinkei/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
