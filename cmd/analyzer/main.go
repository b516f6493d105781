package main

import (
	"os"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
