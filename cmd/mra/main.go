package main

import (
	"os"

	"github.com/TheusHen/mra/cmd/mra/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
