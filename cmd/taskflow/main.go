package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/tgienger/taskflow/internal/cli"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load .env file when present
	_ = godotenv.Load()

	if err := cli.Execute(fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)); err != nil {
		os.Exit(1)
	}
}
