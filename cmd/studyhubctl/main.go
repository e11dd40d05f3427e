// Command studyhubctl runs administrative tasks against a StudyHub
// database: index setup, seeding, direct role grants and key generation.
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
