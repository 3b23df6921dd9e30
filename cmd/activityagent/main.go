// Package main is the entry point for the activityagent CLI.
//
// Usage:
//
//	activityagent [--config file] [--env-file file] <command> [args]
//
// Commands:
//
//	serve  - Run the HTTP service (POST /, GET /health)
//	reply  - Generate one reply and print the result as JSON
package main

import (
	"fmt"
	"os"

	"github.com/hupe1980/activityagent/cmd/activityagent/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
