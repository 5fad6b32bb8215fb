package compiler

import (
	"fmt"
	"strings"
)

// Disassemble renders a Chunk's byte stream as an indented, one-line-per-
// node listing, each line prefixed with the node's absolute byte offset.
// Because opcodes in this stream nest their sub-expressions inline (rather
// than at fixed-width operand positions, as in the teacher's packed
// instruction words), disassembly is a recursive descent that mirrors the
// compiler's own write order exactly: it is the only way to know where one
// node's bytes end and the next begins.
func Disassemble(c *Chunk) (string, error) {
	var b strings.Builder
	offset := 0
	for offset < len(c.Code) {
		next, err := disassembleNode(&b, c, offset, 0)
		if err != nil {
			return "", err
		}
		offset = next
	}
	return b.String(), nil
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func disassembleNode(b *strings.Builder, c *Chunk, offset int, depth int) (int, error) {
	if offset >= len(c.Code) {
		return 0, fmt.Errorf("compiler: disassemble: truncated stream at offset %d", offset)
	}
	op := OpCode(c.Code[offset])
	cur := offset + 1

	line := func(format string, args ...interface{}) {
		fmt.Fprintf(b, "%06d  ", offset)
		indent(b, depth)
		fmt.Fprintf(b, format+"\n", args...)
	}

	switch op {
	case OpNull:
		line("%s", op)
		return cur, nil
	case OpI16:
		v := c.ReadI16(cur)
		line("%s %d", op, v)
		return cur + 2, nil
	case OpI32:
		v := c.ReadI32(cur)
		line("%s %d", op, v)
		return cur + 4, nil
	case OpI64:
		v := c.ReadI64(cur)
		line("%s %d", op, v)
		return cur + 8, nil
	case OpF32:
		v := c.ReadF32(cur)
		line("%s %g", op, v)
		return cur + 4, nil
	case OpF64:
		v := c.ReadF64(cur)
		line("%s %g", op, v)
		return cur + 8, nil
	case OpBool:
		line("%s %v", op, c.Code[cur] != 0)
		return cur + 1, nil
	case OpString:
		s, next := c.ReadString(cur)
		line("%s %q", op, s)
		return next, nil
	case OpIdentifier:
		s, next := c.ReadString(cur)
		line("%s %s", op, s)
		return next, nil

	case OpObjectLiteral:
		typeID := c.ReadI64(cur)
		cur += 8
		count := int(c.ReadI32(cur))
		cur += 4
		line("%s typeId=%d fields=%d", op, typeID, count)
		for i := 0; i < count; i++ {
			key, next := c.ReadString(cur)
			cur = next
			indent(b, depth+1)
			fmt.Fprintf(b, "        key=%q\n", key)
			var err error
			cur, err = disassembleNode(b, c, cur, depth+1)
			if err != nil {
				return 0, err
			}
		}
		return cur, nil

	case OpArrayLiteral:
		count := int(c.ReadI32(cur))
		cur += 4
		line("%s count=%d", op, count)
		for i := 0; i < count; i++ {
			var err error
			cur, err = disassembleNode(b, c, cur, depth+1)
			if err != nil {
				return 0, err
			}
		}
		return cur, nil

	case OpIndexer:
		line("%s", op)
		var err error
		cur, err = disassembleNode(b, c, cur, depth+1)
		if err != nil {
			return 0, err
		}
		return disassembleNode(b, c, cur, depth+1)

	case OpCall:
		line("%s", op)
		var err error
		cur, err = disassembleNode(b, c, cur, depth+1)
		if err != nil {
			return 0, err
		}
		argCount := int(c.ReadI32(cur))
		cur += 4
		for i := 0; i < argCount; i++ {
			cur, err = disassembleNode(b, c, cur, depth+1)
			if err != nil {
				return 0, err
			}
		}
		return cur, nil

	case OpDefinition:
		line("%s", op)
		var err error
		cur, err = disassembleNode(b, c, cur, depth+1)
		if err != nil {
			return 0, err
		}
		return disassembleNode(b, c, cur, depth+1)

	case OpAssignment:
		line("%s", op)
		var err error
		cur, err = disassembleNode(b, c, cur, depth+1)
		if err != nil {
			return 0, err
		}
		return disassembleNode(b, c, cur, depth+1)

	case OpNot:
		line("%s", op)
		return disassembleNode(b, c, cur, depth+1)

	case OpCast:
		line("%s", op)
		var err error
		cur, err = disassembleNode(b, c, cur, depth+1)
		if err != nil {
			return 0, err
		}
		targetType, next := c.ReadString(cur)
		indent(b, depth+1)
		fmt.Fprintf(b, "        targetType=%q\n", targetType)
		return next, nil

	case OpIfStmt:
		conditioned := c.Code[cur] != 0
		cur++
		var err error
		if conditioned {
			line("%s conditioned", op)
			cur, err = disassembleNode(b, c, cur, depth+1)
			if err != nil {
				return 0, err
			}
		} else {
			line("%s else", op)
		}
		trueStart := c.ReadI64(cur)
		cur += 8
		trueEnd := c.ReadI64(cur)
		cur += 8
		if conditioned {
			nextChain := c.ReadI64(cur)
			cur += 8
			indent(b, depth+1)
			fmt.Fprintf(b, "        trueStart=%d trueEnd=%d nextChain=%d\n", trueStart, trueEnd, nextChain)
		} else {
			indent(b, depth+1)
			fmt.Fprintf(b, "        trueStart=%d trueEnd=%d\n", trueStart, trueEnd)
		}
		after := c.ReadI64(cur)
		cur += 8
		indent(b, depth+1)
		fmt.Fprintf(b, "        afterChainStart=%d\n", after)
		for cur < int(trueEnd) {
			cur, err = disassembleNode(b, c, cur, depth+1)
			if err != nil {
				return 0, err
			}
		}
		return cur, nil

	case OpLoopStmt:
		line("%s", op)
		var err error
		cur, err = disassembleNode(b, c, cur, depth+1)
		if err != nil {
			return 0, err
		}
		bodyStart := c.ReadI64(cur)
		cur += 8
		bodyEnd := c.ReadI64(cur)
		cur += 8
		afterEnd := c.ReadI64(cur)
		cur += 8
		indent(b, depth+1)
		fmt.Fprintf(b, "        bodyStart=%d bodyEnd=%d afterEnd=%d\n", bodyStart, bodyEnd, afterEnd)
		for cur < int(bodyEnd) {
			cur, err = disassembleNode(b, c, cur, depth+1)
			if err != nil {
				return 0, err
			}
		}
		return cur, nil

	case OpSwitchStmt:
		line("%s", op)
		var err error
		cur, err = disassembleNode(b, c, cur, depth+1)
		if err != nil {
			return 0, err
		}
		after := c.ReadI64(cur)
		cur += 8
		caseCount := int(c.ReadI32(cur))
		cur += 4
		indent(b, depth+1)
		fmt.Fprintf(b, "        afterStart=%d cases=%d\n", after, caseCount)
		for i := 0; i < caseCount; i++ {
			cur, err = disassembleNode(b, c, cur, depth+1)
			if err != nil {
				return 0, err
			}
			bodyStart := c.ReadI64(cur)
			cur += 8
			bodyEnd := c.ReadI64(cur)
			cur += 8
			indent(b, depth+2)
			fmt.Fprintf(b, "        bodyStart=%d bodyEnd=%d\n", bodyStart, bodyEnd)
			for cur < int(bodyEnd) {
				cur, err = disassembleNode(b, c, cur, depth+2)
				if err != nil {
					return 0, err
				}
			}
		}
		return cur, nil

	case OpFunctionDefinition:
		name, next := c.ReadString(cur)
		cur = next
		paramCount := int(c.ReadI32(cur))
		cur += 4
		params := make([]string, paramCount)
		for i := 0; i < paramCount; i++ {
			params[i], cur = c.ReadString(cur)
		}
		start := c.ReadI64(cur)
		cur += 8
		end := c.ReadI64(cur)
		cur += 8
		line("%s %s params=%v start=%d end=%d", op, name, params, start, end)
		var err error
		for cur < int(end) {
			cur, err = disassembleNode(b, c, cur, depth+1)
			if err != nil {
				return 0, err
			}
		}
		return cur, nil

	case OpReturnOperation:
		line("%s", op)
		return disassembleNode(b, c, cur, depth+1)

	case OpJumpOperation:
		target := c.ReadI64(cur)
		line("%s -> %d", op, target)
		return cur + 8, nil

	case OpConditionalBranch:
		line("%s", op)
		var err error
		cur, err = disassembleNode(b, c, cur, depth+1)
		if err != nil {
			return 0, err
		}
		trueTarget := c.ReadI64(cur)
		cur += 8
		falseTarget := c.ReadI64(cur)
		cur += 8
		indent(b, depth+1)
		fmt.Fprintf(b, "        trueTarget=%d falseTarget=%d\n", trueTarget, falseTarget)
		return cur, nil

	case OpAdd, OpSub, OpMul, OpDiv, OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpMod, OpPow:
		line("%s", op)
		var err error
		cur, err = disassembleNode(b, c, cur, depth+1)
		if err != nil {
			return 0, err
		}
		return disassembleNode(b, c, cur, depth+1)

	default:
		return 0, fmt.Errorf("compiler: disassemble: unknown opcode 0x%02x at offset %d", op, offset)
	}
}
