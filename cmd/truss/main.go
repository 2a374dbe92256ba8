package main

import (
	"os"

	"github.com/trussci/truss/pkg/cli"
)

func main() {
	os.Exit(cli.Run())
}
