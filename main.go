package main

import (
	"os"

	"github.com/flowsmith/socratic/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
