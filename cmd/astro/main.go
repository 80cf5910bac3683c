package main

import (
	"os"

	"github.com/wonny/astrostocks/cmd/astro/commands"
)

// main is the entry point for the astro CLI
// ⭐ single CLI entry point: go run ./cmd/astro [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
