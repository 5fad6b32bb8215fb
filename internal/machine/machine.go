// Package machine implements the core's own exposed boundary (§6's
// "Machine API"): one Machine wraps one compiled program plus one
// engine.Engine, and a thin Registry gives create/exists/destroy a
// concrete home without pretending to be the cross-process handle table
// an embedding layer would own.
package machine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cosmopole-org/elpian-vm/internal/compiler"
	"github.com/cosmopole-org/elpian-vm/internal/engine"
	"github.com/cosmopole-org/elpian-vm/internal/value"
)

// ErrBusy is the "vm_busy" sentinel: run/run_func on a machine whose
// processing flag is already set.
var ErrBusy = errors.New("vm_busy")

// ErrNotFound is the "vm_not_found" sentinel, returned by the Registry for
// any operation against an unknown or already-destroyed machine id.
var ErrNotFound = errors.New("vm_not_found")

// Envelope is the result shape of run/run_func/continue_run (§6): either a
// pending host call, or a terminal value's canonical stringification.
type Envelope struct {
	HasHostCall  bool
	HostCallData string
	ResultValue  string
}

// hostCallPayload is the JSON shape of HostCallData: `{machineId, apiName,
// payload}`, where payload is the canonical stringification of the
// argument array (§4.5).
type hostCallPayload struct {
	MachineID string `json:"machineId"`
	ApiName   string `json:"apiName"`
	Payload   string `json:"payload"`
}

// Machine owns one compiled program and one engine instance (§2's
// EXPANSION: "one compiled program + one engine.Engine"). The processing
// flag guards reentrancy per §4's resolution: it is set at entry and
// cleared only on clean termination, never on suspension or error.
type Machine struct {
	id         string
	chunk      *compiler.Chunk
	eng        *engine.Engine
	processing bool
}

// New wraps an already-compiled chunk in a fresh Machine. Most callers
// should use Create or CreateFromBytecode instead.
func New(id string, chunk *compiler.Chunk) *Machine {
	return &Machine{id: id, chunk: chunk, eng: engine.NewEngine(chunk)}
}

// Create compiles program and returns a ready Machine, implementing §6's
// `create(machineId, programTree)`. A malformed program tree surfaces as a
// ParseFailure (plain error, never *value.RuntimeError), which the caller
// reports as the `{}` envelope per §7.
func Create(id string, program compiler.Program) (*Machine, error) {
	chunk, err := compiler.Compile(program)
	if err != nil {
		return nil, err
	}
	return New(id, chunk), nil
}

// CreateFromBytecode registers a prebuilt byte stream, implementing §6's
// `create_from_bytecode(machineId, bytes)`.
func CreateFromBytecode(id string, data []byte) (*Machine, error) {
	chunk, err := compiler.Deserialize(data)
	if err != nil {
		return nil, err
	}
	return New(id, chunk), nil
}

// ID returns the machine's registry key.
func (m *Machine) ID() string { return m.id }

// Run executes the top-level program body to completion or suspension,
// implementing §6's `run(machineId)`.
func (m *Machine) Run() (*Envelope, error) {
	if m.processing {
		return nil, ErrBusy
	}
	m.processing = true
	terminate, suspended, err := m.eng.RunProgram()
	return m.finish(terminate, suspended, err)
}

// RunFunc enters at a named top-level function, implementing §6's
// `run_func(machineId, name, input?, callbackId)`. input is nil when the
// caller supplied none.
func (m *Machine) RunFunc(name string, input *value.Value) (*Envelope, error) {
	if m.processing {
		return nil, ErrBusy
	}
	info, ok := m.chunk.Functions[name]
	if !ok {
		return nil, fmt.Errorf("machine: unknown function %q", name)
	}
	m.processing = true
	terminate, suspended, err := m.eng.RunFunction(info, input)
	return m.finish(terminate, suspended, err)
}

// ContinueRun resumes a suspended machine with the host's reply,
// implementing §6's `continue_run(machineId, replyValue)`. Calling it on a
// machine that is not suspended is the HostCallContract case (§7): state
// is left untouched and the null value's envelope is returned.
func (m *Machine) ContinueRun(reply value.Value) (*Envelope, error) {
	if !m.processing {
		return &Envelope{ResultValue: value.Stringify(value.Null())}, nil
	}
	terminate, suspended, err := m.eng.ContinueRun(reply)
	return m.finish(terminate, suspended, err)
}

// Validate re-checks the compiled chunk's forward-patch ledger, implementing
// the machine-scoped half of §6's `validate(programTree)` (the program-tree
// re-parse half lives in ValidateProgram, used when no Machine exists yet).
func (m *Machine) Validate() error {
	return m.chunk.Validate()
}

// finish converts an engine run's outcome into the result envelope,
// clearing the processing flag only on a clean termination — a suspension
// leaves it set (the machine is still "busy" waiting on continue_run), and
// an error leaves it set too, per §4's "not cleared on panic" rule.
func (m *Machine) finish(terminate, suspended bool, err error) (*Envelope, error) {
	if err != nil {
		return nil, err
	}
	if suspended {
		req := m.eng.PendingHostCall()
		data, _ := json.Marshal(hostCallPayload{
			MachineID: m.id,
			ApiName:   req.ApiName,
			Payload:   value.Stringify(value.Array(req.Args)),
		})
		return &Envelope{HasHostCall: true, HostCallData: string(data)}, nil
	}
	_ = terminate
	m.processing = false
	result := m.eng.FinalResult()
	resultValue := "done"
	if result != nil {
		resultValue = value.Stringify(*result)
	}
	return &Envelope{ResultValue: resultValue}, nil
}

// ValidateProgram compiles program and validates the resulting chunk,
// implementing the program-tree half of §6's `validate(programTree)` for
// callers that have no existing Machine to validate against.
func ValidateProgram(program compiler.Program) error {
	chunk, err := compiler.Compile(program)
	if err != nil {
		return err
	}
	return chunk.Validate()
}
