package machine

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/cosmopole-org/elpian-vm/internal/compiler"
	"github.com/cosmopole-org/elpian-vm/internal/value"
	"github.com/gkampitakis/go-snaps/snaps"
)

// --- program tree builders, mirroring the JSON shape an embedder would send ---

func node(kind compiler.Kind, payload interface{}) *compiler.Node {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return &compiler.Node{Kind: kind, Payload: raw}
}

func lit(typ string, v interface{}) *compiler.Node {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return node(compiler.KindLiteral, compiler.LiteralPayload{Type: typ, Value: raw})
}

func ident(name string) *compiler.Node {
	return node(compiler.KindIdentifier, compiler.IdentifierPayload{Name: name})
}

func arith(op string, left, right *compiler.Node) *compiler.Node {
	return node(compiler.KindArithmetic, compiler.ArithmeticPayload{Op: op, Left: left, Right: right})
}

func def(name string, v *compiler.Node) *compiler.Node {
	return node(compiler.KindDefinition, compiler.DefinitionPayload{Name: name, Value: v})
}

func assign(name string, v *compiler.Node) *compiler.Node {
	return node(compiler.KindAssignment, compiler.AssignmentPayload{Lhs: ident(name), Value: v})
}

func hostCall(apiName string, args ...*compiler.Node) *compiler.Node {
	return node(compiler.KindHostCall, compiler.HostCallPayload{ApiName: apiName, Args: args})
}

func call(callee *compiler.Node, args ...*compiler.Node) *compiler.Node {
	return node(compiler.KindFunctionCall, compiler.CallPayload{Callee: callee, Args: args})
}

func funcDef(name string, params []string, body ...*compiler.Node) *compiler.Node {
	return node(compiler.KindFunctionDefinition, compiler.FunctionDefinitionPayload{Name: name, Params: params, Body: body})
}

func ret(v *compiler.Node) *compiler.Node {
	return node(compiler.KindReturnOperation, compiler.ReturnPayload{Value: v})
}

func ifChain(cond *compiler.Node, body []*compiler.Node, elseif *compiler.Node, elseBody []*compiler.Node) *compiler.Node {
	return node(compiler.KindIfStmt, compiler.IfPayload{Cond: cond, Body: body, ElseIf: elseif, Else: elseBody})
}

func switchStmt(value *compiler.Node, cases ...compiler.SwitchCase) *compiler.Node {
	return node(compiler.KindSwitchStmt, compiler.SwitchPayload{Value: value, Cases: cases})
}

// envelopeTrace formats an Envelope the way a fixture test would capture a
// scenario's observable output, for snapshotting.
func envelopeTrace(step string, env *Envelope, err error) string {
	if err != nil {
		return fmt.Sprintf("%s: error=%v", step, err)
	}
	if env.HasHostCall {
		return fmt.Sprintf("%s: hostCall=%s", step, env.HostCallData)
	}
	return fmt.Sprintf("%s: result=%s", step, env.ResultValue)
}

func TestMachineScenarios(t *testing.T) {
	t.Run("literal arithmetic", func(t *testing.T) {
		program := compiler.Program{
			def("a", lit("i32", 30)),
			def("b", lit("i32", 12)),
			hostCall("println", arith("+", ident("a"), ident("b"))),
		}
		m, err := Create("m1", program)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		env, err := m.Run()
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if !env.HasHostCall {
			t.Fatalf("expected a host call, got %+v", env)
		}
		var req hostCallPayload
		if err := json.Unmarshal([]byte(env.HostCallData), &req); err != nil {
			t.Fatalf("decoding host call data: %v", err)
		}
		if req.ApiName != "println" || req.Payload != "[42]" {
			t.Fatalf("unexpected host call %+v", req)
		}

		reply, err := value.DecodeReply([]byte(`{"type":"bool","data":{"value":true}}`))
		if err != nil {
			t.Fatalf("decode reply: %v", err)
		}
		runEnv := env
		env, err = m.ContinueRun(reply)
		if err != nil {
			t.Fatalf("continue_run: %v", err)
		}
		if env.HasHostCall || env.ResultValue != "done" {
			t.Fatalf("expected terminal done, got %+v", env)
		}

		snaps.MatchSnapshot(t, "literal_arithmetic",
			strings.Join([]string{
				envelopeTrace("run", runEnv, nil),
				fmt.Sprintf("hostCall: apiName=%s payload=%s", req.ApiName, req.Payload),
				envelopeTrace("continue_run", env, nil),
			}, "\n"))
	})

	t.Run("if elseif else", func(t *testing.T) {
		program := compiler.Program{
			def("score", lit("i32", 85)),
			ifChain(
				arith(">=", ident("score"), lit("i32", 90)),
				[]*compiler.Node{assign("grade", lit("string", "A"))},
				ifChain(
					arith(">=", ident("score"), lit("i32", 80)),
					[]*compiler.Node{assign("grade", lit("string", "B"))},
					nil,
					[]*compiler.Node{assign("grade", lit("string", "C"))},
				),
				nil,
			),
			hostCall("println", ident("grade")),
		}
		m, err := Create("m2", program)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		env, err := m.Run()
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		var req hostCallPayload
		if err := json.Unmarshal([]byte(env.HostCallData), &req); err != nil {
			t.Fatalf("decoding host call data: %v", err)
		}
		if req.Payload != `["B"]` {
			t.Fatalf("expected grade B, got payload %s", req.Payload)
		}
	})

	t.Run("function with argument", func(t *testing.T) {
		program := compiler.Program{
			funcDef("greet", []string{"name"},
				ret(arith("+", lit("string", "Hello, "), ident("name"))),
			),
		}
		m, err := Create("m3", program)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		env, err := m.Run()
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if env.HasHostCall {
			t.Fatalf("expected no host call, got %+v", env)
		}
		input := value.String("Elpian")
		env, err = m.RunFunc("greet", &input)
		if err != nil {
			t.Fatalf("run_func: %v", err)
		}
		if env.ResultValue != `"Hello, Elpian"` {
			t.Fatalf("unexpected greet result %q", env.ResultValue)
		}
	})

	t.Run("switch", func(t *testing.T) {
		program := compiler.Program{
			def("day", lit("string", "Monday")),
			switchStmt(ident("day"),
				compiler.SwitchCase{Value: lit("string", "Monday"), Body: []*compiler.Node{assign("kind", lit("string", "weekday-start"))}},
				compiler.SwitchCase{Value: lit("string", "Friday"), Body: []*compiler.Node{assign("kind", lit("string", "weekday-end"))}},
			),
			hostCall("println", ident("kind")),
		}
		m, err := Create("m4", program)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		env, err := m.Run()
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		var req hostCallPayload
		if err := json.Unmarshal([]byte(env.HostCallData), &req); err != nil {
			t.Fatalf("decoding host call data: %v", err)
		}
		if req.Payload != `["weekday-start"]` {
			t.Fatalf("unexpected switch payload %s", req.Payload)
		}
	})

	t.Run("counter with render host call", func(t *testing.T) {
		program := compiler.Program{
			def("count", lit("i32", 0)),
			funcDef("renderNow", nil, hostCall("render", ident("count"))),
			funcDef("increment", nil,
				assign("count", arith("+", ident("count"), lit("i32", 1))),
				call(ident("renderNow")),
			),
			call(ident("renderNow")),
		}
		m, err := Create("m5", program)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		env, err := m.Run()
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		var req hostCallPayload
		if err := json.Unmarshal([]byte(env.HostCallData), &req); err != nil {
			t.Fatalf("decoding host call data: %v", err)
		}
		if req.Payload != "[0]" {
			t.Fatalf("expected boot payload [0], got %s", req.Payload)
		}
		env, err = m.ContinueRun(value.Bool(true))
		if err != nil {
			t.Fatalf("continue_run: %v", err)
		}
		if env.HasHostCall {
			t.Fatalf("expected boot to settle, got %+v", env)
		}

		env, err = m.RunFunc("increment", nil)
		if err != nil {
			t.Fatalf("run_func increment: %v", err)
		}
		if err := json.Unmarshal([]byte(env.HostCallData), &req); err != nil {
			t.Fatalf("decoding host call data: %v", err)
		}
		if req.Payload != "[1]" {
			t.Fatalf("expected incremented payload [1], got %s", req.Payload)
		}
	})

	t.Run("theme toggle", func(t *testing.T) {
		program := compiler.Program{
			def("isDark", lit("bool", false)),
			funcDef("renderNow", nil, hostCall("render", ident("isDark"))),
			funcDef("toggleTheme", nil,
				assign("isDark", lit("bool", true)),
				call(ident("renderNow")),
			),
			call(ident("renderNow")),
		}
		m, err := Create("m6", program)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		env, err := m.Run()
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		var req hostCallPayload
		if err := json.Unmarshal([]byte(env.HostCallData), &req); err != nil {
			t.Fatalf("decoding host call data: %v", err)
		}
		if req.Payload != "[false]" {
			t.Fatalf("expected boot payload [false], got %s", req.Payload)
		}
		env, err = m.ContinueRun(value.Bool(true))
		if err != nil {
			t.Fatalf("continue_run: %v", err)
		}

		env, err = m.RunFunc("toggleTheme", nil)
		if err != nil {
			t.Fatalf("run_func toggleTheme: %v", err)
		}
		if err := json.Unmarshal([]byte(env.HostCallData), &req); err != nil {
			t.Fatalf("decoding host call data: %v", err)
		}
		if req.Payload != "[true]" {
			t.Fatalf("expected toggled payload [true], got %s", req.Payload)
		}
	})
}

func TestMachineBusyFlag(t *testing.T) {
	program := compiler.Program{
		hostCall("println", lit("i32", 1)),
	}
	m, err := Create("busy", program)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	// A suspended machine is still processing: a second Run must report busy.
	if _, err := m.Run(); err != ErrBusy {
		t.Fatalf("expected ErrBusy on a suspended machine, got %v", err)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	program := compiler.Program{
		def("x", lit("i32", 1)),
	}
	if _, err := r.Create("reg1", program); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !r.Exists("reg1") {
		t.Fatalf("expected reg1 to exist")
	}
	if _, err := r.Run("reg1"); err != nil {
		t.Fatalf("run: %v", err)
	}
	r.Destroy("reg1")
	if r.Exists("reg1") {
		t.Fatalf("expected reg1 to be gone after destroy")
	}
	if _, err := r.Run("reg1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after destroy, got %v", err)
	}
	if _, err := r.ContinueRun("reg1", value.Null()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for continue_run on destroyed machine, got %v", err)
	}
}

func TestValidateProgram(t *testing.T) {
	program := compiler.Program{
		def("a", lit("i32", 1)),
		def("b", arith("+", ident("a"), lit("i32", 2))),
	}
	if err := ValidateProgram(program); err != nil {
		t.Fatalf("expected a well-formed program to validate, got %v", err)
	}
}
