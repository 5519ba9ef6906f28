// ABOUTME: Entry point for the tutor CLI
// ABOUTME: Terminal client for the Invayl Tutor chat backend

package main

import (
	"fmt"
	"os"

	"github.com/invayl/tutor-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		// cobra only returns flag and argument errors
		os.Exit(2)
	}
}
