package main

import (
	"os"

	"github.com/spigell/offres-filter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
