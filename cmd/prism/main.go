package main

import (
	"os"

	"prism/cmd/prism/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
