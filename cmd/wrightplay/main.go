// Command wrightplay runs browser-executed test files against a
// registered automation-engine adapter (spec §6).
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the entry point separated from main for testability, the
// way the teacher's gasoline-cmd keeps run(args) distinct from main.
func run(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return exitCodeFromError(err)
	}
	return lastExitCode
}
