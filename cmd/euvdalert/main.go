package main

import (
	"fmt"
	"os"
	"runtime/debug"
)

func main() {
	// Panics exit with ExitFailure, like any other failed run.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "euvdalert: aborted by an unexpected panic: %v\n", r)
			fmt.Fprintf(os.Stderr, "The lock file is released with the process; state files are only replaced atomically.\n\n%s", debug.Stack())
			os.Exit(ExitFailure)
		}
	}()

	Execute()
}
