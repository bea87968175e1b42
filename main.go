// The main package for the mini-spider executable.
package main

import (
	"github.com/JakeFAU/mini-spider/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
