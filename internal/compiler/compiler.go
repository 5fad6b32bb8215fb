package compiler

import (
	"encoding/json"
	"fmt"
)

// Compiler lowers a Program into a Chunk. A Compiler is single-use: build
// one per call to Compile.
type Compiler struct {
	chunk *Chunk

	stepOffsets  []int
	pendingJumps []pendingJump
}

type pendingJump struct {
	slot int
	step int
}

// Compile lowers program into a Chunk. The top-level statements are the
// step sequence jumpOperation/conditionalBranch nodes address by index
// (§4.2's "step-numbered sequences").
func Compile(program Program) (*Chunk, error) {
	c := &Compiler{chunk: NewChunk()}
	for _, node := range program {
		c.stepOffsets = append(c.stepOffsets, c.chunk.Len())
		if err := c.compileStmt(node); err != nil {
			return nil, err
		}
	}
	for _, pj := range c.pendingJumps {
		if pj.step < 0 || pj.step >= len(c.stepOffsets) {
			return nil, fmt.Errorf("compiler: step %d out of range (program has %d steps)", pj.step, len(c.stepOffsets))
		}
		c.chunk.PatchI64(pj.slot, int64(c.stepOffsets[pj.step]))
	}
	if err := c.chunk.Validate(); err != nil {
		return nil, err
	}
	return c.chunk, nil
}

func (c *Compiler) compileStmt(node *Node) error {
	if node == nil {
		return fmt.Errorf("compiler: nil statement node")
	}
	switch node.Kind {
	case KindDefinition:
		return c.compileDefinition(node)
	case KindAssignment:
		return c.compileAssignment(node)
	case KindFunctionDefinition:
		return c.compileFunctionDefinition(node)
	case KindReturnOperation:
		return c.compileReturn(node)
	case KindJumpOperation:
		return c.compileJump(node)
	case KindConditionalBranch:
		return c.compileConditionalBranch(node)
	case KindIfStmt:
		return c.compileIf(node)
	case KindLoopStmt:
		return c.compileLoop(node)
	case KindSwitchStmt:
		return c.compileSwitch(node)
	default:
		return c.compileExpr(node)
	}
}

func (c *Compiler) compileExpr(node *Node) error {
	if node == nil {
		return fmt.Errorf("compiler: nil expression node")
	}
	switch node.Kind {
	case KindLiteral:
		return c.compileLiteral(node)
	case KindIdentifier:
		return c.compileIdentifier(node)
	case KindIndexer:
		return c.compileIndexer(node)
	case KindArithmetic:
		return c.compileArithmetic(node)
	case KindNot:
		return c.compileNot(node)
	case KindCast:
		return c.compileCast(node)
	case KindObjectLiteral:
		return c.compileObjectLiteral(node)
	case KindArrayLiteral:
		return c.compileArrayLiteral(node)
	case KindFunctionCall:
		return c.compileFunctionCall(node)
	case KindHostCall:
		return c.compileHostCall(node)
	default:
		return fmt.Errorf("compiler: unrecognized kind tag %q", node.Kind)
	}
}

func (c *Compiler) compileLiteral(node *Node) error {
	var p LiteralPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	switch p.Type {
	case "i16":
		var v int64
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return err
		}
		c.chunk.WriteOp(OpI16)
		c.chunk.WriteI16(int16(v))
	case "i32":
		var v int64
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return err
		}
		c.chunk.WriteOp(OpI32)
		c.chunk.WriteI32(int32(v))
	case "i64":
		var v int64
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return err
		}
		c.chunk.WriteOp(OpI64)
		c.chunk.WriteI64(v)
	case "f32":
		var v float64
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return err
		}
		c.chunk.WriteOp(OpF32)
		c.chunk.WriteF32(float32(v))
	case "f64":
		var v float64
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return err
		}
		c.chunk.WriteOp(OpF64)
		c.chunk.WriteF64(v)
	case "bool":
		var v bool
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return err
		}
		c.chunk.WriteOp(OpBool)
		c.chunk.WriteBool(v)
	case "string":
		var v string
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return err
		}
		c.chunk.WriteOp(OpString)
		c.chunk.WriteString(v)
	case "":
		c.chunk.WriteOp(OpNull)
	default:
		return fmt.Errorf("compiler: unrecognized literal type %q", p.Type)
	}
	return nil
}

func (c *Compiler) compileIdentifier(node *Node) error {
	var p IdentifierPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpIdentifier)
	c.chunk.WriteString(p.Name)
	return nil
}

func (c *Compiler) compileIndexer(node *Node) error {
	var p IndexerPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpIndexer)
	if err := c.compileExpr(p.Target); err != nil {
		return err
	}
	return c.compileExpr(p.Index)
}

func (c *Compiler) compileArithmetic(node *Node) error {
	var p ArithmeticPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	op, ok := arithmeticOpcodes[p.Op]
	if !ok {
		return fmt.Errorf("compiler: unrecognized arithmetic operator %q", p.Op)
	}
	c.chunk.WriteOp(op)
	if err := c.compileExpr(p.Left); err != nil {
		return err
	}
	return c.compileExpr(p.Right)
}

func (c *Compiler) compileNot(node *Node) error {
	var p NotPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpNot)
	return c.compileExpr(p.Value)
}

func (c *Compiler) compileCast(node *Node) error {
	var p CastPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpCast)
	if err := c.compileExpr(p.Value); err != nil {
		return err
	}
	c.chunk.WriteString(p.TargetType)
	return nil
}

func (c *Compiler) compileObjectLiteral(node *Node) error {
	var p ObjectLiteralPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpObjectLiteral)
	c.chunk.WriteI64(p.TypeID)
	c.chunk.WriteI32(int32(len(p.Fields)))
	for _, field := range p.Fields {
		c.chunk.WriteString(field.Key)
		if err := c.compileExpr(field.Value); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileArrayLiteral(node *Node) error {
	var p ArrayLiteralPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpArrayLiteral)
	c.chunk.WriteI32(int32(len(p.Elements)))
	for _, el := range p.Elements {
		if err := c.compileExpr(el); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileCall(callee *Node, args []*Node) error {
	c.chunk.WriteOp(OpCall)
	if err := c.compileExpr(callee); err != nil {
		return err
	}
	c.chunk.WriteI32(int32(len(args)))
	for _, a := range args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileFunctionCall(node *Node) error {
	var p CallPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	return c.compileCall(p.Callee, p.Args)
}

// compileHostCall lowers host_call to exactly the bytes a functionCall with
// callee=identifier(askHost) and args=[apiName literal, args array literal]
// would produce (§4.2's table entry for host_call).
func (c *Compiler) compileHostCall(node *Node) error {
	var p HostCallPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpCall)
	c.chunk.WriteOp(OpIdentifier)
	c.chunk.WriteString("askHost")
	c.chunk.WriteI32(2)
	c.chunk.WriteOp(OpString)
	c.chunk.WriteString(p.ApiName)
	c.chunk.WriteOp(OpArrayLiteral)
	c.chunk.WriteI32(int32(len(p.Args)))
	for _, a := range p.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileDefinition(node *Node) error {
	var p DefinitionPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpDefinition)
	c.chunk.WriteOp(OpIdentifier)
	c.chunk.WriteString(p.Name)
	return c.compileExpr(p.Value)
}

func (c *Compiler) compileAssignment(node *Node) error {
	var p AssignmentPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	if p.Lhs == nil || (p.Lhs.Kind != KindIdentifier && p.Lhs.Kind != KindIndexer) {
		return fmt.Errorf("compiler: assignment lhs must be identifier or indexer")
	}
	c.chunk.WriteOp(OpAssignment)
	if err := c.compileExpr(p.Lhs); err != nil {
		return err
	}
	return c.compileExpr(p.Value)
}

// compileFunctionDefinition lowers `0x13 + name + param list + i64 start +
// i64 end + body` (§4.2). start/end are reserved then patched once the
// body's length is known, per the forward-patching algorithm in §4.2.
func (c *Compiler) compileFunctionDefinition(node *Node) error {
	var p FunctionDefinitionPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpFunctionDefinition)
	c.chunk.WriteString(p.Name)
	c.chunk.WriteI32(int32(len(p.Params)))
	for _, param := range p.Params {
		c.chunk.WriteString(param)
	}
	startSlot := c.chunk.ReserveI64()
	endSlot := c.chunk.ReserveI64()

	bodyStart := c.chunk.Len()
	for _, stmt := range p.Body {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	bodyEnd := c.chunk.Len()

	c.chunk.PatchI64(startSlot, int64(bodyStart))
	c.chunk.PatchI64(endSlot, int64(bodyEnd))
	c.chunk.Functions[p.Name] = FunctionInfo{Start: int64(bodyStart), End: int64(bodyEnd), Params: p.Params}
	return nil
}

func (c *Compiler) compileReturn(node *Node) error {
	var p ReturnPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpReturnOperation)
	if p.Value != nil {
		return c.compileExpr(p.Value)
	}
	c.chunk.WriteOp(OpNull)
	return nil
}

func (c *Compiler) compileJump(node *Node) error {
	var p JumpPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpJumpOperation)
	slot := c.chunk.ReserveI64()
	c.pendingJumps = append(c.pendingJumps, pendingJump{slot: slot, step: p.Step})
	return nil
}

func (c *Compiler) compileConditionalBranch(node *Node) error {
	var p ConditionalBranchPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpConditionalBranch)
	if err := c.compileExpr(p.Cond); err != nil {
		return err
	}
	trueSlot := c.chunk.ReserveI64()
	falseSlot := c.chunk.ReserveI64()
	c.pendingJumps = append(c.pendingJumps,
		pendingJump{slot: trueSlot, step: p.TrueStep},
		pendingJump{slot: falseSlot, step: p.FalseStep})
	return nil
}

// compileIf lowers the whole if/elseif/else chain. Each link's header
// reserves (true-start, true-end, [next-chain-start]) plus a shared
// after-chain-start collected across the whole recursion and patched once,
// after the entire chain (and its tail) has been measured (§4.2).
func (c *Compiler) compileIf(node *Node) error {
	var afterSlots []int
	if err := c.compileIfChain(node, &afterSlots); err != nil {
		return err
	}
	after := int64(c.chunk.Len())
	for _, slot := range afterSlots {
		c.chunk.PatchI64(slot, after)
	}
	return nil
}

func (c *Compiler) compileIfChain(node *Node, afterSlots *[]int) error {
	var p IfPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	conditioned := p.Cond != nil

	c.chunk.WriteOp(OpIfStmt)
	c.chunk.WriteBool(conditioned)
	if conditioned {
		if err := c.compileExpr(p.Cond); err != nil {
			return err
		}
	}

	trueStartSlot := c.chunk.ReserveI64()
	trueEndSlot := c.chunk.ReserveI64()
	var nextChainSlot int
	if conditioned {
		nextChainSlot = c.chunk.ReserveI64()
	}
	afterSlot := c.chunk.ReserveI64()
	*afterSlots = append(*afterSlots, afterSlot)

	c.chunk.PatchI64(trueStartSlot, int64(c.chunk.Len()))
	for _, stmt := range p.Body {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	c.chunk.PatchI64(trueEndSlot, int64(c.chunk.Len()))

	switch {
	case p.ElseIf != nil:
		if conditioned {
			c.chunk.PatchI64(nextChainSlot, int64(c.chunk.Len()))
		}
		return c.compileIfChain(p.ElseIf, afterSlots)
	case len(p.Else) > 0:
		if conditioned {
			c.chunk.PatchI64(nextChainSlot, int64(c.chunk.Len()))
		}
		tail := &Node{Kind: KindIfStmt}
		raw, err := json.Marshal(IfPayload{Body: p.Else})
		if err != nil {
			return err
		}
		tail.Payload = raw
		return c.compileIfChain(tail, afterSlots)
	default:
		if conditioned {
			// No further link: a false condition simply falls through to
			// after the whole chain, same as the shared after-chain-start.
			*afterSlots = append(*afterSlots, nextChainSlot)
		}
		return nil
	}
}

// compileLoop lowers `0x11 + cond + body-start, body-end, after-end`
// (§4.2). No trailing jump instruction is emitted: the engine restores the
// cursor to the loop header by reading the frozen_pointer the outer scope
// was given before loopBody was pushed, the same general mechanism used
// for if-bodies and function returns (§4.4).
func (c *Compiler) compileLoop(node *Node) error {
	var p LoopPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpLoopStmt)
	if err := c.compileExpr(p.Cond); err != nil {
		return err
	}
	bodyStartSlot := c.chunk.ReserveI64()
	bodyEndSlot := c.chunk.ReserveI64()
	afterEndSlot := c.chunk.ReserveI64()

	c.chunk.PatchI64(bodyStartSlot, int64(c.chunk.Len()))
	for _, stmt := range p.Body {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	c.chunk.PatchI64(bodyEndSlot, int64(c.chunk.Len()))
	c.chunk.PatchI64(afterEndSlot, int64(c.chunk.Len()))
	return nil
}

// compileSwitch lowers `0x12 + value + after-start + case count + for each
// case (caseValue, body-start, body-end, body-bytes)` (§4.2). Cases are
// laid out contiguously so a non-matching case's body-end offset is
// exactly where the next case's header begins.
func (c *Compiler) compileSwitch(node *Node) error {
	var p SwitchPayload
	if err := node.decode(&p); err != nil {
		return err
	}
	c.chunk.WriteOp(OpSwitchStmt)
	if err := c.compileExpr(p.Value); err != nil {
		return err
	}
	afterSlot := c.chunk.ReserveI64()
	c.chunk.WriteI32(int32(len(p.Cases)))

	for _, cs := range p.Cases {
		if err := c.compileExpr(cs.Value); err != nil {
			return err
		}
		bodyStartSlot := c.chunk.ReserveI64()
		bodyEndSlot := c.chunk.ReserveI64()
		c.chunk.PatchI64(bodyStartSlot, int64(c.chunk.Len()))
		for _, stmt := range cs.Body {
			if err := c.compileStmt(stmt); err != nil {
				return err
			}
		}
		c.chunk.PatchI64(bodyEndSlot, int64(c.chunk.Len()))
	}
	c.chunk.PatchI64(afterSlot, int64(c.chunk.Len()))
	return nil
}
