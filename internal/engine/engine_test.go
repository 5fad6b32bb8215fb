package engine

import (
	"encoding/json"
	"testing"

	"github.com/cosmopole-org/elpian-vm/internal/compiler"
	"github.com/cosmopole-org/elpian-vm/internal/value"
)

func node(t *testing.T, kind compiler.Kind, payload interface{}) *compiler.Node {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", kind, err)
	}
	return &compiler.Node{Kind: kind, Payload: raw}
}

func lit(t *testing.T, typ string, v interface{}) *compiler.Node {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal literal value: %v", err)
	}
	payload, err := json.Marshal(compiler.LiteralPayload{Type: typ, Value: raw})
	if err != nil {
		t.Fatalf("marshal literal payload: %v", err)
	}
	return &compiler.Node{Kind: compiler.KindLiteral, Payload: payload}
}

func ident(t *testing.T, name string) *compiler.Node {
	t.Helper()
	return node(t, compiler.KindIdentifier, compiler.IdentifierPayload{Name: name})
}

func def(t *testing.T, name string, v *compiler.Node) *compiler.Node {
	t.Helper()
	return node(t, compiler.KindDefinition, compiler.DefinitionPayload{Name: name, Value: v})
}

func assign(t *testing.T, name string, v *compiler.Node) *compiler.Node {
	t.Helper()
	return node(t, compiler.KindAssignment, compiler.AssignmentPayload{Lhs: ident(t, name), Value: v})
}

func loopStmt(t *testing.T, cond *compiler.Node, body ...*compiler.Node) *compiler.Node {
	t.Helper()
	return node(t, compiler.KindLoopStmt, compiler.LoopPayload{Cond: cond, Body: body})
}

func arith(t *testing.T, op string, left, right *compiler.Node) *compiler.Node {
	t.Helper()
	return node(t, compiler.KindArithmetic, compiler.ArithmeticPayload{Op: op, Left: left, Right: right})
}

func compileOrFatal(t *testing.T, program compiler.Program) *compiler.Chunk {
	t.Helper()
	chunk, err := compiler.Compile(program)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return chunk
}

// TestRunProgramTerminatesOnLiteralArithmetic exercises the plain
// dispatch/execute path with no scope and no suspension: a single
// arithmetic expression at the top level.
func TestRunProgramTerminatesOnLiteralArithmetic(t *testing.T) {
	program := compiler.Program{
		node(t, compiler.KindArithmetic, compiler.ArithmeticPayload{
			Op:    "+",
			Left:  lit(t, "i16", 30),
			Right: lit(t, "i16", 12),
		}),
	}
	chunk := compileOrFatal(t, program)
	e := NewEngine(chunk)

	terminate, suspended, err := e.RunProgram()
	if err != nil {
		t.Fatalf("RunProgram: %v", err)
	}
	if suspended {
		t.Fatalf("expected termination, got suspension")
	}
	if !terminate {
		t.Fatalf("expected terminate=true")
	}
	result := e.FinalResult()
	if result == nil || !result.IsNumber() {
		t.Fatalf("expected numeric final result, got %+v", result)
	}
	got, err := value.Cast(*result, "i32")
	if err != nil {
		t.Fatalf("cast final result: %v", err)
	}
	if got.AsInt64() != 42 {
		t.Fatalf("expected 42, got %d", got.AsInt64())
	}
}

// TestRunProgramSuspendsOnHostCallAndContinues drives a raw host call node
// ("askHost") through suspension and splices a reply back in via
// ContinueRun, directly exercising the frame stack's dummy-frame
// passthrough without going through the machine package.
func TestRunProgramSuspendsOnHostCallAndContinues(t *testing.T) {
	program := compiler.Program{
		node(t, compiler.KindHostCall, compiler.HostCallPayload{
			ApiName: "println",
			Args:    []*compiler.Node{lit(t, "i16", 42)},
		}),
	}
	chunk := compileOrFatal(t, program)
	e := NewEngine(chunk)

	_, suspended, err := e.RunProgram()
	if err != nil {
		t.Fatalf("RunProgram: %v", err)
	}
	if !suspended {
		t.Fatalf("expected suspension on host call")
	}
	req := e.PendingHostCall()
	if req == nil {
		t.Fatalf("expected a pending host call request")
	}
	if req.ApiName != "println" {
		t.Fatalf("expected apiName println, got %q", req.ApiName)
	}
	if req.Args == nil || req.Args.Len() != 1 {
		t.Fatalf("expected one argument, got %+v", req.Args)
	}

	terminate, suspended, err := e.ContinueRun(value.Bool(true))
	if err != nil {
		t.Fatalf("ContinueRun: %v", err)
	}
	if suspended {
		t.Fatalf("expected termination after reply")
	}
	if !terminate {
		t.Fatalf("expected terminate=true")
	}
	if e.PendingHostCall() != nil {
		t.Fatalf("expected pending host call cleared after ContinueRun")
	}
}

// TestContinueRunWithoutPendingHostCallErrors confirms ContinueRun refuses
// to splice a reply in when the engine is not actually suspended.
func TestContinueRunWithoutPendingHostCallErrors(t *testing.T) {
	chunk := compileOrFatal(t, compiler.Program{lit(t, "bool", true)})
	e := NewEngine(chunk)
	if _, _, err := e.ContinueRun(value.Null()); err == nil {
		t.Fatalf("expected an error calling ContinueRun with no pending host call")
	}
}

// TestRunProgramIsDeterministic re-runs the same host-call-free program on
// two independent engines over the same chunk and checks the results
// match, grounding the "every expression with no host calls evaluates the
// same way every time" property from the design notes.
func TestRunProgramIsDeterministic(t *testing.T) {
	program := compiler.Program{
		node(t, compiler.KindArithmetic, compiler.ArithmeticPayload{
			Op: "*",
			Left: node(t, compiler.KindArithmetic, compiler.ArithmeticPayload{
				Op:    "+",
				Left:  lit(t, "i16", 3),
				Right: lit(t, "i16", 4),
			}),
			Right: lit(t, "i16", 5),
		}),
	}
	chunk := compileOrFatal(t, program)

	e1 := NewEngine(chunk)
	if _, _, err := e1.RunProgram(); err != nil {
		t.Fatalf("RunProgram (1): %v", err)
	}
	e2 := NewEngine(chunk)
	if _, _, err := e2.RunProgram(); err != nil {
		t.Fatalf("RunProgram (2): %v", err)
	}

	r1, err := value.Cast(*e1.FinalResult(), "i32")
	if err != nil {
		t.Fatalf("cast result 1: %v", err)
	}
	r2, err := value.Cast(*e2.FinalResult(), "i32")
	if err != nil {
		t.Fatalf("cast result 2: %v", err)
	}
	if r1.AsInt64() != r2.AsInt64() {
		t.Fatalf("expected deterministic result, got %d and %d", r1.AsInt64(), r2.AsInt64())
	}
	if r1.AsInt64() != 35 {
		t.Fatalf("expected 35, got %d", r1.AsInt64())
	}
}

// TestRunProgramLoopCountsToN drives a condition-checked loop through
// several real iterations, exercising executeLoop's re-check of the
// condition via the FrozenPointer reset to the loop header on every scope
// unwind, not just the compiled byte layout the compiler-level tests cover.
func TestRunProgramLoopCountsToN(t *testing.T) {
	program := compiler.Program{
		def(t, "count", lit(t, "i16", 0)),
		loopStmt(t,
			arith(t, "<", ident(t, "count"), lit(t, "i16", 3)),
			assign(t, "count", arith(t, "+", ident(t, "count"), lit(t, "i16", 1))),
		),
		ident(t, "count"),
	}
	chunk := compileOrFatal(t, program)
	e := NewEngine(chunk)

	terminate, suspended, err := e.RunProgram()
	if err != nil {
		t.Fatalf("RunProgram: %v", err)
	}
	if suspended || !terminate {
		t.Fatalf("expected clean termination, got terminate=%v suspended=%v", terminate, suspended)
	}
	result := e.FinalResult()
	if result == nil {
		t.Fatalf("expected a final result")
	}
	got, err := value.Cast(*result, "i32")
	if err != nil {
		t.Fatalf("cast final result: %v", err)
	}
	if got.AsInt64() != 3 {
		t.Fatalf("expected the loop to run 3 times, got count=%d", got.AsInt64())
	}
}

// TestRunFunctionBindsFirstParamFromInput exercises RunFunction directly,
// confirming the first declared parameter receives the supplied input
// (§6's run_func `input?`).
func TestRunFunctionBindsFirstParamFromInput(t *testing.T) {
	program := compiler.Program{
		node(t, compiler.KindFunctionDefinition, compiler.FunctionDefinitionPayload{
			Name:   "greet",
			Params: []string{"name"},
			Body: []*compiler.Node{
				node(t, compiler.KindReturnOperation, compiler.ReturnPayload{
					Value: node(t, compiler.KindArithmetic, compiler.ArithmeticPayload{
						Op:    "+",
						Left:  lit(t, "string", "Hello, "),
						Right: ident(t, "name"),
					}),
				}),
			},
		}),
	}
	chunk := compileOrFatal(t, program)
	e := NewEngine(chunk)

	info, ok := chunk.Functions["greet"]
	if !ok {
		t.Fatalf("expected greet in chunk.Functions")
	}

	input := value.String("Elpian")
	terminate, suspended, err := e.RunFunction(info, &input)
	if err != nil {
		t.Fatalf("RunFunction: %v", err)
	}
	if suspended || !terminate {
		t.Fatalf("expected clean termination, got terminate=%v suspended=%v", terminate, suspended)
	}
	result := e.FinalResult()
	if result == nil {
		t.Fatalf("expected a final result")
	}
	if got := value.Stringify(*result); got != `"Hello, Elpian"` {
		t.Fatalf("expected \"Hello, Elpian\", got %s", got)
	}
}
