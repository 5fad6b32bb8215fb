package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cosmopole-org/elpian-vm/internal/compiler"
	"github.com/spf13/cobra"
)

var (
	outputFile       string
	showDisassembly  bool
	compileVerboseFl bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [program.json]",
	Short: "Compile a JSON program tree to bytecode",
	Long: `Compile a JSON program tree to the "EVM" bytecode container and save it
as a .evm file.

Examples:
  elpianvm compile program.json
  elpianvm compile program.json -o out.evm
  elpianvm compile program.json --disassemble`,
	Args: cobra.ExactArgs(1),
	RunE: compileProgram,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: <input>.evm)")
	compileCmd.Flags().BoolVar(&showDisassembly, "disassemble", false, "show disassembled bytecode after compilation")
	compileCmd.Flags().BoolVarP(&compileVerboseFl, "verbose", "v", false, "verbose output")
}

func compileProgram(_ *cobra.Command, args []string) error {
	filename := args[0]

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var program compiler.Program
	if err := json.Unmarshal(content, &program); err != nil {
		return fmt.Errorf("failed to parse program tree: %w", err)
	}

	if compileVerboseFl {
		fmt.Fprintf(os.Stderr, "Compiling %s (%d top-level statements)...\n", filename, len(program))
	}

	chunk, err := compiler.Compile(program)
	if err != nil {
		return fmt.Errorf("compilation failed: %w", err)
	}

	if showDisassembly {
		dis, err := compiler.Disassemble(chunk)
		if err != nil {
			return fmt.Errorf("disassembly failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "\n== Disassembled Bytecode ==\n%s\n", dis)
	}

	data := compiler.Serialize(chunk)

	outFile := outputFile
	if outFile == "" {
		ext := filepath.Ext(filename)
		if ext != "" {
			outFile = strings.TrimSuffix(filename, ext) + ".evm"
		} else {
			outFile = filename + ".evm"
		}
	}

	if err := os.WriteFile(outFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", outFile, err)
	}

	if compileVerboseFl {
		fmt.Fprintf(os.Stderr, "Bytecode written to %s (%d bytes, %d functions)\n", outFile, len(data), len(chunk.Functions))
	} else {
		fmt.Printf("Compiled %s -> %s\n", filename, outFile)
	}

	return nil
}
