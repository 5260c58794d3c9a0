package main

import (
	"os"

	"github.com/hray3182/remindbot/internal/commands"
)

func main() {
	if err := commands.New().Execute(); err != nil {
		os.Exit(1)
	}
}
