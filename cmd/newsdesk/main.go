package main

import (
	"os"

	"NewsDesk/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logging.New("error", "text").Error("newsdesk stopped", "error", err)
		os.Exit(1)
	}
}
