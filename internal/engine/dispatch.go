package engine

import (
	"fmt"

	"github.com/cosmopole-org/elpian-vm/internal/compiler"
	"github.com/cosmopole-org/elpian-vm/internal/value"
)

func (e *Engine) pushFrame(f *frame) { e.frames = append(e.frames, f) }

// dispatch decodes the opcode at the cursor. Atomic nodes (literals,
// identifiers) resolve straight to mainValue; composite nodes push a frame
// and advance the cursor to their first sub-expression, to be gathered via
// feed as the main loop's step 1 keeps running (§4.3's dispatch table).
func (e *Engine) dispatch() error {
	code := e.chunk.Code
	if e.cursor < 0 || e.cursor >= len(code) {
		return fmt.Errorf("engine: cursor %d out of range (len=%d)", e.cursor, len(code))
	}
	nodeStart := e.cursor
	op := compiler.OpCode(code[e.cursor])
	cur := e.cursor + 1

	switch op {
	case compiler.OpNull:
		e.mainValue = ptr(value.Null())
		e.cursor = cur
	case compiler.OpI16:
		e.mainValue = ptr(value.I16(e.chunk.ReadI16(cur)))
		e.cursor = cur + 2
	case compiler.OpI32:
		e.mainValue = ptr(value.I32(e.chunk.ReadI32(cur)))
		e.cursor = cur + 4
	case compiler.OpI64:
		e.mainValue = ptr(value.I64(e.chunk.ReadI64(cur)))
		e.cursor = cur + 8
	case compiler.OpF32:
		e.mainValue = ptr(value.F32(e.chunk.ReadF32(cur)))
		e.cursor = cur + 4
	case compiler.OpF64:
		e.mainValue = ptr(value.F64(e.chunk.ReadF64(cur)))
		e.cursor = cur + 8
	case compiler.OpBool:
		e.mainValue = ptr(value.Bool(code[cur] != 0))
		e.cursor = cur + 1
	case compiler.OpString:
		s, next := e.chunk.ReadString(cur)
		e.mainValue = ptr(value.String(s))
		e.cursor = next

	case compiler.OpIdentifier:
		name, next := e.chunk.ReadString(cur)
		e.mainValue = ptr(e.resolveIdentifier(name))
		e.cursor = next

	case compiler.OpObjectLiteral:
		typeID := e.chunk.ReadI64(cur)
		cur += 8
		count := int(e.chunk.ReadI32(cur))
		cur += 4
		f := &frame{kind: frameObjectLiteral, typeID: typeID, fieldCount: count, objResult: value.NewObjectInstance(typeID)}
		if count == 0 {
			f.done = true
			e.cursor = cur
		} else {
			key, next := e.chunk.ReadString(cur)
			f.pendingKey = key
			e.cursor = next
		}
		e.pushFrame(f)

	case compiler.OpArrayLiteral:
		count := int(e.chunk.ReadI32(cur))
		cur += 4
		f := &frame{kind: frameArrayLiteral, elemCount: count}
		if count == 0 {
			f.done = true
		}
		e.cursor = cur
		e.pushFrame(f)

	case compiler.OpIndexer:
		e.cursor = cur
		e.pushFrame(&frame{kind: frameIndexer})

	case compiler.OpCall:
		e.cursor = cur
		e.pushFrame(&frame{kind: frameCall})

	case compiler.OpDefinition:
		if compiler.OpCode(code[cur]) != compiler.OpIdentifier {
			return fmt.Errorf("engine: definition lhs at offset %d is not an identifier", cur)
		}
		name, next := e.chunk.ReadString(cur + 1)
		e.cursor = next
		e.pushFrame(&frame{kind: frameDefinition, name: name})

	case compiler.OpAssignment:
		lhsOp := compiler.OpCode(code[cur])
		switch lhsOp {
		case compiler.OpIdentifier:
			name, next := e.chunk.ReadString(cur + 1)
			e.cursor = next
			e.pushFrame(&frame{kind: frameAssignment, name: name})
		case compiler.OpIndexer:
			e.cursor = cur + 1
			e.pushFrame(&frame{kind: frameAssignment, isIndexAssign: true})
		default:
			return fmt.Errorf("engine: assignment lhs at offset %d is neither identifier nor indexer", cur)
		}

	case compiler.OpIfStmt:
		conditioned := code[cur] != 0
		cur++
		f := &frame{kind: frameIfStmt, conditioned: conditioned}
		if !conditioned {
			f.trueStart = e.chunk.ReadI64(cur)
			cur += 8
			f.trueEnd = e.chunk.ReadI64(cur)
			cur += 8
			f.afterChainStart = e.chunk.ReadI64(cur)
			cur += 8
			f.done = true
		}
		e.cursor = cur
		e.pushFrame(f)

	case compiler.OpLoopStmt:
		e.cursor = cur
		e.pushFrame(&frame{kind: frameLoopStmt, nodeStart: int64(nodeStart)})

	case compiler.OpSwitchStmt:
		e.cursor = cur
		e.pushFrame(&frame{kind: frameSwitchStmt})

	case compiler.OpFunctionDefinition:
		name, next := e.chunk.ReadString(cur)
		cur = next
		paramCount := int(e.chunk.ReadI32(cur))
		cur += 4
		params := make([]string, paramCount)
		for i := 0; i < paramCount; i++ {
			params[i], cur = e.chunk.ReadString(cur)
		}
		start := e.chunk.ReadI64(cur)
		cur += 8
		end := e.chunk.ReadI64(cur)
		cur += 8
		e.ctx.Define(name, value.Func(&value.Function{Start: start, End: end, Params: params}))
		e.cursor = int(end)

	case compiler.OpReturnOperation:
		e.cursor = cur
		e.pushFrame(&frame{kind: frameReturn})

	case compiler.OpJumpOperation:
		target := e.chunk.ReadI64(cur)
		e.cursor = int(target)

	case compiler.OpConditionalBranch:
		e.cursor = cur
		e.pushFrame(&frame{kind: frameConditionalBranch})

	case compiler.OpNot:
		e.cursor = cur
		e.pushFrame(&frame{kind: frameNot})

	case compiler.OpCast:
		e.cursor = cur
		e.pushFrame(&frame{kind: frameCast})

	case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv,
		compiler.OpEq, compiler.OpNe, compiler.OpLt, compiler.OpLe,
		compiler.OpGt, compiler.OpGe, compiler.OpMod, compiler.OpPow:
		e.cursor = cur
		e.pushFrame(&frame{kind: frameArithmetic, op: op})

	default:
		return fmt.Errorf("engine: unknown opcode 0x%02x at offset %d", op, nodeStart)
	}
	return nil
}

func (e *Engine) resolveIdentifier(name string) value.Value {
	if name == "askHost" {
		return value.AskHost()
	}
	return e.ctx.Lookup(name)
}
