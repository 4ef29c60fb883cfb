// Command corrmatrix builds user-user Pearson similarity matrices from a
// ratings file and prints neighbor lists from them.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "corrmatrix:", err)
		os.Exit(exitCode(err))
	}
}
