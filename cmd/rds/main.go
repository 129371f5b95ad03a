package main

import (
	"os"

	"rds/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
