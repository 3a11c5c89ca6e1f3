// Package main is the entry point for the hiosctl binary.
package main

import (
	"os"

	"hios/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
