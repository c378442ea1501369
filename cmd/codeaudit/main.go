package main

import (
	"os"

	"github.com/dshills/codeaudit/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
