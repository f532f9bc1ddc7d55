// Package main is the operator CLI: schema migrations, demo seed data, tokens,
// status watching and recording uploads.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
