package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "elpianvm",
	Short: "elpian-vm bytecode execution core",
	Long: `elpianvm drives the elpian-vm execution core from the command line:
compiling a JSON program tree to bytecode, disassembling a compiled chunk,
validating a program tree's forward-patch invariants, and running a
program to completion or first suspension.

This core has no source-text parser: every input is either a JSON program
tree (the {kind, payload} node format) or an already-compiled "EVM" byte
stream.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
