// Package engine implements the reentrant bytecode interpreter: a main
// loop driven by a stack of "operation registers" (here, a single tagged
// frame struct per in-flight opcode, since Go has no sum types) that can
// suspend mid-expression when a host call is emitted and resume later with
// the host's reply spliced back in as if nothing had happened (§4.3/§4.4/
// §4.5).
package engine

import (
	"fmt"

	"github.com/cosmopole-org/elpian-vm/internal/compiler"
	"github.com/cosmopole-org/elpian-vm/internal/scope"
	"github.com/cosmopole-org/elpian-vm/internal/value"
)

// HostCallRequest is the suspended-host-call slot's payload: an API name
// and the already-evaluated argument array.
type HostCallRequest struct {
	ApiName string
	Args    *value.ArrayInstance
}

// Engine holds everything the main loop needs: the compiled program, the
// scope stack, the operation-register ("frame") stack, the cursor, and the
// slots the loop communicates through (§4.3).
type Engine struct {
	chunk *compiler.Chunk
	ctx   *scope.Context

	frames []*frame

	mainValue       *value.Value
	pendingReturn   *value.Value
	pendingHostCall *HostCallRequest
	finalResult     *value.Value

	cursor int
}

// NewEngine returns a fresh engine over chunk, with a global scope ready
// for either RunProgram or RunFunction.
func NewEngine(chunk *compiler.Chunk) *Engine {
	return &Engine{chunk: chunk, ctx: scope.NewContext(len(chunk.Code))}
}

// Context exposes the scope stack, used by the machine layer's Validate
// and by tests that want to inspect bindings after a run.
func (e *Engine) Context() *scope.Context { return e.ctx }

// PendingHostCall returns the in-flight host-call request, or nil if the
// engine is not currently suspended.
func (e *Engine) PendingHostCall() *HostCallRequest { return e.pendingHostCall }

// FinalResult returns the terminal value of the most recently completed
// run, or nil if none was produced ("done", per §6).
func (e *Engine) FinalResult() *value.Value { return e.finalResult }

// RunProgram executes the top-level program body starting at byte offset 0.
func (e *Engine) RunProgram() (terminate bool, suspended bool, err error) {
	e.finalResult = nil
	e.cursor = 0
	return e.safeResume()
}

// RunFunction executes a named top-level function as the entry point. When
// input is non-nil it is bound to the function's first declared parameter;
// remaining parameters (and the sole parameter when input is nil) bind to
// the null value (§6's run_func `input?`).
func (e *Engine) RunFunction(info compiler.FunctionInfo, input *value.Value) (bool, bool, error) {
	e.finalResult = nil
	fnScope := scope.NewScope("funcBody", int(info.End))
	fnScope.FrozenPointer = int(info.Start)
	for i, p := range info.Params {
		if i == 0 && input != nil {
			fnScope.Define(p, *input)
		} else {
			fnScope.Define(p, value.Null())
		}
	}
	e.ctx.Push(fnScope)
	e.cursor = int(info.Start)
	return e.safeResume()
}

// ContinueRun splices a decoded host-call reply back in as the completed
// result of the suspended call and resumes the main loop from the exact
// byte offset recorded at suspension (§4.5).
func (e *Engine) ContinueRun(reply value.Value) (bool, bool, error) {
	if e.pendingHostCall == nil {
		return false, false, fmt.Errorf("engine: continue_run called with no pending host call")
	}
	e.pendingHostCall = nil
	e.mainValue = ptr(reply)
	return e.safeResume()
}

// safeResume wraps resume with a recover-to-RuntimeError safety net, ported
// from the teacher's stack-trace convention (§4's resolution): the engine
// never relies on panicking as its error path, but a bug that does panic
// (an out-of-bounds slice index, a nil collection field) still surfaces as
// a structured error rather than crashing the embedder.
func (e *Engine) safeResume() (terminate bool, suspended bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			terminate, suspended = false, false
			err = value.NewRuntimeError(value.KindTypeMismatch, "recovered panic: %v", r).
				WithTrace(e.currentTrace())
		}
	}()
	return e.resume()
}

// currentTrace captures the active scope stack as a Trace, innermost first,
// for attaching to a panic-recovered RuntimeError.
func (e *Engine) currentTrace() value.Trace {
	trace := make(value.Trace, 0, e.ctx.Len())
	for i := e.ctx.Len() - 1; i >= 0; i-- {
		s := e.ctx.At(i)
		trace = append(trace, value.Frame{Tag: s.Tag, Offset: s.FrozenPointer})
	}
	return trace
}

// resume drives the three-sub-step priority loop from §4.3 until the
// program terminates, suspends on a host call, or an error occurs.
func (e *Engine) resume() (terminate bool, suspended bool, err error) {
	for {
		// Step 1: feed a completed value into the top operation register.
		if e.mainValue != nil {
			if len(e.frames) == 0 {
				e.finalResult = e.mainValue
				e.mainValue = nil
				continue
			}
			top := e.frames[len(e.frames)-1]
			v := *e.mainValue
			e.mainValue = nil
			if err := e.feed(top, v); err != nil {
				return false, false, err
			}
			continue
		}

		// Step 2: execute a finalized top operation.
		if len(e.frames) > 0 && e.frames[len(e.frames)-1].done {
			top := e.frames[len(e.frames)-1]
			e.frames = e.frames[:len(e.frames)-1]
			if err := e.execute(top); err != nil {
				return false, false, err
			}
			if e.pendingHostCall != nil {
				return false, true, nil
			}
			continue
		}

		// Step 3: unwind a finished scope, or dispatch the next opcode.
		if e.ctx.Len() > 1 && e.cursor == e.ctx.Top().FrozenEnd {
			e.ctx.Pop()
			newTop := e.ctx.Top()
			e.cursor = newTop.FrozenPointer
			if e.pendingReturn != nil {
				e.mainValue = e.pendingReturn
				e.pendingReturn = nil
			}
			continue
		}
		if e.ctx.Len() == 1 && e.cursor == e.ctx.Global().FrozenEnd {
			return true, false, nil
		}
		if err := e.dispatch(); err != nil {
			return false, false, err
		}
	}
}

func ptr(v value.Value) *value.Value { return &v }

func truthy(v value.Value) bool {
	if v.IsBool() {
		return v.AsBool()
	}
	b, err := value.Cast(v, "bool")
	if err != nil {
		return false
	}
	return b.AsBool()
}
