package main

import (
	"log/slog"
	"os"

	"github.com/psds-microservice/helpdesk-service/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		slog.Error("exit", "error", err)
		os.Exit(1)
	}
}
