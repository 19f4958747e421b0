package main

import (
	"loci/internal/cli"
)

func main() {
	cli.Execute()
}
