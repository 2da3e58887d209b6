package main

import (
	"os"

	"github.com/wonny/refdata/cmd/refdata/commands"
)

// main is the entry point for the refdata CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/refdata [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
