package engine

import (
	"fmt"

	"github.com/cosmopole-org/elpian-vm/internal/value"
)

// feed delivers a newly-completed value to the top operation register,
// gathering whatever further inline bytes that operand's arrival makes
// readable (a cast's trailing type name, a call's trailing arg count, a
// switch case's trailing body bounds, ...) per §4.3's step 1.
func (e *Engine) feed(f *frame, v value.Value) error {
	switch f.kind {
	case frameArithmetic, frameIndexer:
		if !f.haveA {
			f.valA, f.haveA = v, true
			return nil
		}
		f.valB, f.haveB = v, true
		f.done = true

	case frameNot, frameCast:
		f.valA = v
		if f.kind == frameCast {
			targetType, next := e.chunk.ReadString(e.cursor)
			f.castType = targetType
			e.cursor = next
		}
		f.done = true

	case frameObjectLiteral:
		f.objResult.Set(f.pendingKey, v)
		f.gathered++
		if f.gathered >= f.fieldCount {
			f.done = true
			return nil
		}
		key, next := e.chunk.ReadString(e.cursor)
		f.pendingKey = key
		e.cursor = next

	case frameArrayLiteral:
		f.arrResult = append(f.arrResult, v)
		if len(f.arrResult) >= f.elemCount {
			f.done = true
		}

	case frameCall:
		if f.callee == nil {
			cv := v
			f.callee = &cv
			argCount := int(e.chunk.ReadI32(e.cursor))
			e.cursor += 4
			f.argCount = argCount
			if argCount == 0 {
				f.done = true
			}
			return nil
		}
		f.args = append(f.args, v)
		if len(f.args) >= f.argCount {
			f.done = true
		}

	case frameDefinition, frameReturn:
		f.valA = v
		f.done = true

	case frameAssignment:
		if f.isIndexAssign {
			if !f.haveA {
				f.indexTarget, f.haveA = v, true
				return nil
			}
			if !f.haveB {
				f.indexIndex, f.haveB = v, true
				return nil
			}
		}
		f.valA = v
		f.done = true

	case frameIfStmt:
		f.condVal = v
		f.trueStart = e.chunk.ReadI64(e.cursor)
		e.cursor += 8
		f.trueEnd = e.chunk.ReadI64(e.cursor)
		e.cursor += 8
		f.nextChainStart = e.chunk.ReadI64(e.cursor)
		e.cursor += 8
		f.afterChainStart = e.chunk.ReadI64(e.cursor)
		e.cursor += 8
		f.done = true

	case frameLoopStmt:
		f.condVal = v
		f.bodyStart = e.chunk.ReadI64(e.cursor)
		e.cursor += 8
		f.bodyEnd = e.chunk.ReadI64(e.cursor)
		e.cursor += 8
		f.afterEnd = e.chunk.ReadI64(e.cursor)
		e.cursor += 8
		f.done = true

	case frameSwitchStmt:
		if f.switchValue == nil {
			sv := v
			f.switchValue = &sv
			f.afterStart = e.chunk.ReadI64(e.cursor)
			e.cursor += 8
			f.caseCount = int(e.chunk.ReadI32(e.cursor))
			e.cursor += 4
			if f.caseCount == 0 {
				f.done = true
			}
			return nil
		}
		bodyStart := e.chunk.ReadI64(e.cursor)
		e.cursor += 8
		bodyEnd := e.chunk.ReadI64(e.cursor)
		e.cursor += 8
		if value.Equal(*f.switchValue, v) {
			f.matched = true
			f.matchedBodyStart = bodyStart
			f.matchedBodyEnd = bodyEnd
			f.done = true
			return nil
		}
		e.cursor = int(bodyEnd)
		f.caseIndex++
		if f.caseIndex >= f.caseCount {
			f.done = true
		}

	case frameConditionalBranch:
		f.condVal = v
		f.trueTarget = e.chunk.ReadI64(e.cursor)
		e.cursor += 8
		f.falseTarget = e.chunk.ReadI64(e.cursor)
		e.cursor += 8
		f.done = true

	case frameDummy:
		f.result = v
		f.done = true

	default:
		return fmt.Errorf("engine: feed: unhandled frame kind %d", f.kind)
	}
	return nil
}
