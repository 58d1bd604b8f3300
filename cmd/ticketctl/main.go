package main

import (
	"os"

	"github.com/spec-kit/ticket-analytics/cmd/ticketctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
