// The main package for the keywatch executable.
package main

import (
	"github.com/JakeFAU/keywatch/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
