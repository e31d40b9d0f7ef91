// lungctl runs the analysis pipeline and record lookups from the shell.
//
// Usage:
//
//	lungctl analyze <image> --name <patient>
//	lungctl history [--name <patient>]
//	lungctl report <id> -o <file>
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
