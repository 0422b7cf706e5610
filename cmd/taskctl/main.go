package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/benvon/smart-todo-sync/cmd/taskctl/commands"
	"github.com/joho/godotenv"
)

func main() {
	// a missing .env is normal; anything else is worth reporting
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	if err := commands.NewRootCmd().Execute(); err != nil {
		commands.ReportError(os.Stderr, err)
		os.Exit(1)
	}
}
