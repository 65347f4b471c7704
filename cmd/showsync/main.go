package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	code, message := exitStatus(newRootCommand().Execute())
	if message != "" {
		fmt.Fprintln(os.Stderr, message)
	}
	os.Exit(code)
}

// exitStatus maps a command error to the process exit code and the line
// printed to stderr. Cancellation during shutdown exits non-zero but stays
// silent; cobra has already surfaced usage errors by the time we get here.
func exitStatus(err error) (int, string) {
	switch {
	case err == nil:
		return 0, ""
	case errors.Is(err, context.Canceled):
		return 1, ""
	default:
		return 1, "showsync: " + err.Error()
	}
}
