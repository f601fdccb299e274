// Command istr validates and decomposes financial identifiers and URLs from the
// command line, and can run the batch HTTP service.
package main

import (
	"fmt"
	"os"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
