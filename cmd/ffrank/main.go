package main

import (
	"os"

	"github.com/wonny/ffrank/cmd/ffrank/commands"
)

// main is the entry point for the ffrank CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/ffrank [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
