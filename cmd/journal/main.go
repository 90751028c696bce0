package main

import (
	"os"

	"gitjournal/api/internal/cli"
	"gitjournal/api/internal/logging"
)

func main() {
	logger := logging.NewLogger(os.Stderr, logging.LevelInfo)
	if err := cli.Execute(os.Args[1:], logger); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
