package main

import (
	"os"

	"codezap/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
