package engine

import (
	"fmt"

	"github.com/cosmopole-org/elpian-vm/internal/compiler"
	"github.com/cosmopole-org/elpian-vm/internal/scope"
	"github.com/cosmopole-org/elpian-vm/internal/value"
)

// execute performs a finalized operation's effect (§4.3's step 2). It may
// set e.mainValue (arithmetic, indexer read, cast, ...), mutate bindings
// (definition, assignment), or redirect the cursor and scope stack
// (if/loop/switch/call/return).
func (e *Engine) execute(f *frame) error {
	switch f.kind {
	case frameArithmetic:
		result, err := e.applyArithmetic(f.op, f.valA, f.valB)
		if err != nil {
			return err
		}
		e.mainValue = ptr(result)

	case frameNot:
		e.mainValue = ptr(value.Bool(!truthy(f.valA)))

	case frameCast:
		result, err := value.Cast(f.valA, f.castType)
		if err != nil {
			return err
		}
		e.mainValue = ptr(result)

	case frameObjectLiteral:
		e.mainValue = ptr(value.Object(f.objResult))

	case frameArrayLiteral:
		e.mainValue = ptr(value.Array(value.NewArrayInstance(f.arrResult)))

	case frameIndexer:
		e.mainValue = ptr(readIndex(f.valA, f.valB))

	case frameCall:
		return e.executeCall(f)

	case frameDefinition:
		e.ctx.Define(f.name, f.valA)

	case frameAssignment:
		return e.executeAssignment(f)

	case frameIfStmt:
		return e.executeIf(f)

	case frameLoopStmt:
		return e.executeLoop(f)

	case frameSwitchStmt:
		return e.executeSwitch(f)

	case frameConditionalBranch:
		if truthy(f.condVal) {
			e.cursor = int(f.trueTarget)
		} else {
			e.cursor = int(f.falseTarget)
		}

	case frameReturn:
		returned := f.valA
		e.pendingReturn = &returned
		e.cursor = e.ctx.Top().FrozenEnd

	case frameDummy:
		e.mainValue = ptr(f.result)

	default:
		return fmt.Errorf("engine: execute: unhandled frame kind %d", f.kind)
	}
	return nil
}

func (e *Engine) executeIf(f *frame) error {
	enter := !f.conditioned || truthy(f.condVal)
	if !enter {
		e.cursor = int(f.nextChainStart)
		return nil
	}
	e.ctx.Top().FrozenPointer = int(f.afterChainStart)
	e.ctx.Push(scope.NewScope("ifBody", int(f.trueEnd)))
	e.cursor = int(f.trueStart)
	return nil
}

func (e *Engine) executeLoop(f *frame) error {
	if !truthy(f.condVal) {
		e.cursor = int(f.afterEnd)
		return nil
	}
	e.ctx.Top().FrozenPointer = int(f.nodeStart)
	e.ctx.Push(scope.NewScope("loopBody", int(f.bodyEnd)))
	e.cursor = int(f.bodyStart)
	return nil
}

func (e *Engine) executeSwitch(f *frame) error {
	if !f.matched {
		e.cursor = int(f.afterStart)
		return nil
	}
	e.ctx.Top().FrozenPointer = int(f.afterStart)
	e.ctx.Push(scope.NewScope("switchBody", int(f.matchedBodyEnd)))
	e.cursor = int(f.matchedBodyStart)
	return nil
}

func (e *Engine) executeCall(f *frame) error {
	switch f.callee.Tag {
	case value.TagFunction:
		fn := f.callee.AsFunction()
		e.ctx.Top().FrozenPointer = e.cursor
		fnScope := scope.NewScope("funcBody", int(fn.End))
		fnScope.FrozenPointer = int(fn.Start)
		for i, param := range fn.Params {
			if i < len(f.args) {
				fnScope.Define(param, f.args[i])
			} else {
				fnScope.Define(param, value.Null())
			}
		}
		e.ctx.Push(fnScope)
		e.cursor = int(fn.Start)
		e.pushFrame(&frame{kind: frameDummy})
		return nil

	case value.TagAskHost:
		if len(f.args) != 2 {
			return value.NewRuntimeError(value.KindTypeMismatch, "host call expects exactly 2 arguments, got %d", len(f.args))
		}
		e.pendingHostCall = &HostCallRequest{ApiName: f.args[0].AsString(), Args: f.args[1].AsArray()}
		e.pushFrame(&frame{kind: frameDummy})
		return nil

	default:
		return value.TypeError("call", "function", f.callee.Tag)
	}
}

func (e *Engine) executeAssignment(f *frame) error {
	if !f.isIndexAssign {
		e.ctx.Assign(f.name, f.valA)
		return nil
	}
	target, idx, val := f.indexTarget, f.indexIndex, f.valA
	switch {
	case target.IsArray():
		if !idx.IsInt() {
			return value.TypeError("indexed assignment", "integer index on array", idx.Tag)
		}
		i := int(idx.AsInt64())
		if i < 0 || !target.AsArray().Set(i, val) {
			return value.NewRuntimeError(value.KindIndexOutOfRange, "array index %d out of range", i)
		}
	case target.IsObject():
		if !idx.IsString() {
			return value.TypeError("indexed assignment", "string index on object", idx.Tag)
		}
		target.AsObject().Set(idx.AsString(), val)
	default:
		return value.TypeError("indexed assignment", "array or object target", target.Tag)
	}
	return nil
}

// readIndex implements the lenient read-path policy (§4.3): missing keys
// or out-of-range indices, or indexing the wrong collection kind, all
// yield null rather than erroring.
func readIndex(target, idx value.Value) value.Value {
	switch {
	case target.IsArray() && idx.IsInt():
		return target.AsArray().Get(int(idx.AsInt64()))
	case target.IsObject() && idx.IsString():
		v, ok := target.AsObject().Get(idx.AsString())
		if !ok {
			return value.Null()
		}
		return v
	default:
		return value.Null()
	}
}

// applyArithmetic dispatches one of the twelve arithmetic/comparison
// opcodes to its value-package implementation (§4.1).
func (e *Engine) applyArithmetic(op compiler.OpCode, left, right value.Value) (value.Value, error) {
	switch op {
	case compiler.OpAdd:
		return value.Add(left, right)
	case compiler.OpSub:
		return value.Sub(left, right)
	case compiler.OpMul:
		return value.Mul(left, right)
	case compiler.OpDiv:
		return value.Div(left, right)
	case compiler.OpMod:
		return value.Mod(left, right)
	case compiler.OpPow:
		return value.Pow(left, right)
	case compiler.OpEq:
		return value.Bool(value.Equal(left, right)), nil
	case compiler.OpNe:
		return value.Bool(!value.Equal(left, right)), nil
	case compiler.OpLt:
		ok, err := value.Compare("<", left, right)
		return value.Bool(ok), err
	case compiler.OpLe:
		ok, err := value.Compare("<=", left, right)
		return value.Bool(ok), err
	case compiler.OpGt:
		ok, err := value.Compare(">", left, right)
		return value.Bool(ok), err
	case compiler.OpGe:
		ok, err := value.Compare(">=", left, right)
		return value.Bool(ok), err
	default:
		return value.Null(), fmt.Errorf("engine: unknown arithmetic opcode %s", op)
	}
}
