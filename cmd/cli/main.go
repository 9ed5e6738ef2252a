package main

import (
	"os"

	"usage-report/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
