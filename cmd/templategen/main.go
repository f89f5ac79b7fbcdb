package main

import (
	"fmt"
	"os"

	"github.com/jonwraymond/templategen/internal/cli"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, "templategen:", err)
		os.Exit(1)
	}
}
