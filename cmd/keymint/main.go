package main

import (
	"github.com/alechenninger/keymint/internal/cli"
)

func main() {
	cli.Execute()
}
