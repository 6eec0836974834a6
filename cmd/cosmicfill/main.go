// cmd/cosmicfill/main.go
//
// Entry point for cosmicfill. The root command asks for a requirement name
// and propagates it across the attachment package in the data directory;
// `cosmicfill step` runs one module by itself.

package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
