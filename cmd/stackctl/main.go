package main

import (
	"os"

	"github.com/annel0/stackattack/cmd/stackctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
