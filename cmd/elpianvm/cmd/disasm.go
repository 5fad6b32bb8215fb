package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cosmopole-org/elpian-vm/internal/compiler"
	"github.com/spf13/cobra"
)

var disasmFromSource bool

var disasmCmd = &cobra.Command{
	Use:   "disasm [file]",
	Short: "Disassemble a compiled chunk or a JSON program tree",
	Long: `Disassemble prints the recursive-descent listing of a chunk's byte
stream, one line per node, each prefixed with its absolute byte offset.

By default [file] is an "EVM" bytecode container (as produced by
"elpianvm compile"); with --source it is instead read as a JSON program
tree and compiled first.`,
	Args: cobra.ExactArgs(1),
	RunE: disassembleFile,
}

func init() {
	rootCmd.AddCommand(disasmCmd)
	disasmCmd.Flags().BoolVar(&disasmFromSource, "source", false, "treat [file] as a JSON program tree instead of a compiled chunk")
}

func disassembleFile(_ *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var chunk *compiler.Chunk
	if disasmFromSource {
		var program compiler.Program
		if err := json.Unmarshal(content, &program); err != nil {
			return fmt.Errorf("failed to parse program tree: %w", err)
		}
		chunk, err = compiler.Compile(program)
		if err != nil {
			return fmt.Errorf("compilation failed: %w", err)
		}
	} else {
		chunk, err = compiler.Deserialize(content)
		if err != nil {
			return fmt.Errorf("failed to deserialize bytecode: %w", err)
		}
	}

	dis, err := compiler.Disassemble(chunk)
	if err != nil {
		return fmt.Errorf("disassembly failed: %w", err)
	}
	fmt.Print(dis)
	return nil
}
