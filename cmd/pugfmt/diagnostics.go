package main

import (
	"io"
	"os"
)

const (
	ansiRed   = "\033[31m"
	ansiBold  = "\033[1m"
	ansiReset = "\033[0m"
)

// errorLabel returns the "error:" prefix, colored when w is a terminal and
// NO_COLOR is unset.
func errorLabel(w io.Writer) string {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" || !isTerminal(f) {
		return "error:"
	}
	return ansiBold + ansiRed + "error:" + ansiReset
}
