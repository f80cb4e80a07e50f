package main

import (
	"os"

	"github.com/praxislabs/warden/cmd/warden/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
