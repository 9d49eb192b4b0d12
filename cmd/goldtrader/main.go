package main

import (
	"os"

	"github.com/rustyeddy/goldtrader/cmd/goldtrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
