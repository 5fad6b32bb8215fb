package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cosmopole-org/elpian-vm/internal/compiler"
	"github.com/cosmopole-org/elpian-vm/internal/machine"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [program.json]",
	Short: "Validate a JSON program tree's compile-time invariants",
	Long: `Validate compiles the given program tree and confirms every forward
jump/branch slot the compiler reserved was patched to an in-range offset
(the "no dangling jumps" invariant). It does not execute the program.`,
	Args: cobra.ExactArgs(1),
	RunE: validateFile,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateFile(_ *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var program compiler.Program
	if err := json.Unmarshal(content, &program); err != nil {
		fmt.Println("invalid: malformed program tree")
		return fmt.Errorf("failed to parse program tree: %w", err)
	}

	if err := machine.ValidateProgram(program); err != nil {
		fmt.Println("invalid")
		return err
	}

	fmt.Println("valid")
	return nil
}
