package main

import "os"

// main hands off to the cobra command tree. Wiring lives in serve.go so each
// subcommand stays small.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
