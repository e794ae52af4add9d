// Command gridctl is a command line client for the grid directory. It holds
// no session between runs: commands that need one enroll first.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
