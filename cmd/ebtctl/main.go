// Command ebtctl is the operator CLI: it imports USDA SNAP retailer exports
// into the store database and runs the ranking pipeline offline over a file.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
