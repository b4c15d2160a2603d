package main

import (
	"os"

	"github.com/openfluke/devcompute/cmd/endianness/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
