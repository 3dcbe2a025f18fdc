package main

import (
	"os"

	"github.com/rewear-collective/rewear/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
