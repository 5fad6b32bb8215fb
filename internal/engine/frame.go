package engine

import (
	"github.com/cosmopole-org/elpian-vm/internal/compiler"
	"github.com/cosmopole-org/elpian-vm/internal/value"
)

// frameKind tags which opcode a frame is gathering operands for. Go has no
// sum types, so one struct with a kind tag stands in for what the design
// notes describe as "one tagged variant per opcode" (see DESIGN.md).
type frameKind int

const (
	frameArithmetic frameKind = iota
	frameNot
	frameCast
	frameObjectLiteral
	frameArrayLiteral
	frameIndexer
	frameCall
	frameDefinition
	frameAssignment
	frameIfStmt
	frameLoopStmt
	frameSwitchStmt
	frameConditionalBranch
	frameReturn
	frameDummy
)

// frame is the single operation-register shape every composite opcode
// shares. Only the fields relevant to its kind are populated; feed/execute
// each switch on kind and touch only their own fields.
type frame struct {
	kind frameKind
	done bool
	op   compiler.OpCode // arithmetic opcode

	// arithmetic, indexer (read); valA alone also holds the operand of not,
	// cast, definition, assignment and return
	haveA bool
	valA  value.Value
	haveB bool
	valB  value.Value

	// cast
	castType string

	// object literal
	typeID     int64
	fieldCount int
	gathered   int
	pendingKey string
	objResult  *value.ObjectInstance

	// array literal
	elemCount int
	arrResult []value.Value

	// call
	callee   *value.Value
	argCount int
	args     []value.Value

	// definition / assignment
	name          string
	isIndexAssign bool
	indexTarget   value.Value
	indexIndex    value.Value

	// if
	conditioned     bool
	condVal         value.Value
	trueStart       int64
	trueEnd         int64
	nextChainStart  int64
	afterChainStart int64

	// loop
	nodeStart int64
	bodyStart int64
	bodyEnd   int64
	afterEnd  int64

	// switch
	switchValue      *value.Value
	afterStart       int64
	caseCount        int
	caseIndex        int
	matched          bool
	matchedBodyStart int64
	matchedBodyEnd   int64

	// conditional branch
	trueTarget  int64
	falseTarget int64

	// dummy passthrough (holds a call site open across a suspension/return)
	result value.Value
}
