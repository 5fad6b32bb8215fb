// Command elpianvm drives the elpian-vm execution core from the command
// line: compile, disasm, validate, and run subcommands.
package main

import (
	"os"

	"github.com/cosmopole-org/elpian-vm/cmd/elpianvm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
