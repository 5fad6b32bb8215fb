package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cosmopole-org/elpian-vm/internal/compiler"
	"github.com/cosmopole-org/elpian-vm/internal/machine"
	"github.com/cosmopole-org/elpian-vm/internal/value"
	"github.com/spf13/cobra"
)

var (
	runFuncName  string
	runInputJSON string
)

var runCmd = &cobra.Command{
	Use:   "run [program.json]",
	Short: "Run a program tree to completion or first suspension",
	Long: `Run compiles and executes a JSON program tree, printing the result
envelope ({hasHostCall, hostCallData, resultValue}) as JSON.

This core has no host-call dispatcher of its own: if the run suspends, the
CLI reports the pending request and exits without resolving it — resolving
a suspension (continue_run) is the embedder's responsibility.

Examples:
  elpianvm run program.json
  elpianvm run program.json --func greet --input '{"type":"string","data":{"value":"Elpian"}}'`,
	Args: cobra.ExactArgs(1),
	RunE: runProgram,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runFuncName, "func", "", "enter at a named top-level function instead of the program body")
	runCmd.Flags().StringVar(&runInputJSON, "input", "", "typed-envelope JSON value passed as the function's first argument")
}

func runProgram(_ *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var program compiler.Program
	if err := json.Unmarshal(content, &program); err != nil {
		return fmt.Errorf("failed to parse program tree: %w", err)
	}

	m, err := machine.Create(filename, program)
	if err != nil {
		exitWithError("create failed: %v", err)
	}

	var env *machine.Envelope
	if runFuncName != "" {
		var input *value.Value
		if runInputJSON != "" {
			decoded, err := value.DecodeReply([]byte(runInputJSON))
			if err != nil {
				return fmt.Errorf("failed to decode --input: %w", err)
			}
			input = &decoded
		}
		env, err = m.RunFunc(runFuncName, input)
	} else {
		env, err = m.Run()
	}
	if err != nil {
		exitWithError("run failed: %v", err)
	}

	out, _ := json.Marshal(map[string]any{
		"hasHostCall":  env.HasHostCall,
		"hostCallData": env.HostCallData,
		"resultValue":  env.ResultValue,
	})
	fmt.Println(string(out))
	return nil
}
