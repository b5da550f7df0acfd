// Command yomiyougu is the reference CLI shell over the library and sync
// core: it imports archives into the catalog, lists the library, serves
// pages over HTTP for embedding in a UI shell, and drives one-shot cloud
// sync cycles.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		exitOnError(err)
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
