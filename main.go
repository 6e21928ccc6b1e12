// Package main is the entry point for the Hailstorm load testing tool.
package main

import (
	"fmt"
	"os"

	"github.com/hailstorm-dev/hailstorm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
