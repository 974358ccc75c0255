// Package main is the entry point for the sovrate CLI.
package main

import (
	"fmt"
	"os"

	"github.com/kaimin86/credit-rating-deploy/cmd"
	"github.com/kaimin86/credit-rating-deploy/internal/iocache"
)

func main() {
	err := cmd.Execute()
	iocache.CloseStores()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
