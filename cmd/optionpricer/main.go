package main

import (
	"os"

	"github.com/AAWorks/binomial-pricer/cmd/optionpricer/commands"
)

// main is the entry point for the option pricer CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/optionpricer [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
