// The main package for the contentpipe executable.
package main

import (
	"github.com/contentops/contentpipe/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
