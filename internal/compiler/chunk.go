package compiler

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Chunk is the compiled program: an immutable (once Compile returns) byte
// vector addressed by absolute offset, plus the metadata needed to resolve
// a named top-level function for run_func (§3, §6).
type Chunk struct {
	Code      []byte
	Functions map[string]FunctionInfo

	// reservedSlots records every offset ReserveI64 handed out, so Validate
	// can confirm each was patched to a value inside the byte stream
	// without needing to re-decode the whole opcode sequence.
	reservedSlots []int
	patched       map[int]bool
}

// FunctionInfo records where a top-level function definition's body lives,
// resolved by name for Machine.RunFunc.
type FunctionInfo struct {
	Start  int64
	End    int64
	Params []string
}

// NewChunk returns an empty chunk ready for writing.
func NewChunk() *Chunk {
	return &Chunk{Functions: make(map[string]FunctionInfo), patched: make(map[int]bool)}
}

// Len returns the current write offset, i.e. the chunk's length so far.
func (c *Chunk) Len() int { return len(c.Code) }

// WriteByte appends a single byte and returns its offset.
func (c *Chunk) WriteByte(b byte) int {
	offset := len(c.Code)
	c.Code = append(c.Code, b)
	return offset
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op OpCode) int {
	return c.WriteByte(byte(op))
}

// WriteI16 appends a big-endian 16-bit signed integer.
func (c *Chunk) WriteI16(v int16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(v))
	c.Code = append(c.Code, buf[:]...)
}

// WriteI32 appends a big-endian 32-bit signed integer.
func (c *Chunk) WriteI32(v int32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	c.Code = append(c.Code, buf[:]...)
}

// WriteI64 appends a big-endian 64-bit signed integer.
func (c *Chunk) WriteI64(v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	c.Code = append(c.Code, buf[:]...)
}

// WriteF32 appends a big-endian IEEE-754 32-bit float.
func (c *Chunk) WriteF32(v float32) {
	c.WriteI32(int32(math.Float32bits(v)))
}

// WriteF64 appends a big-endian IEEE-754 64-bit float.
func (c *Chunk) WriteF64(v float64) {
	c.WriteI64(int64(math.Float64bits(v)))
}

// WriteBool appends a single byte: 1 or 0.
func (c *Chunk) WriteBool(v bool) {
	if v {
		c.WriteByte(1)
	} else {
		c.WriteByte(0)
	}
}

// WriteString appends a u32 big-endian length prefix followed by UTF-8
// bytes, per §6's string encoding rule.
func (c *Chunk) WriteString(s string) {
	c.WriteI32(int32(len(s)))
	c.Code = append(c.Code, s...)
}

// ReserveI64 appends 8 zero bytes and returns their offset, to be filled
// in later by PatchI64 once the target is known.
func (c *Chunk) ReserveI64() int {
	offset := len(c.Code)
	c.Code = append(c.Code, make([]byte, 8)...)
	c.reservedSlots = append(c.reservedSlots, offset)
	return offset
}

// PatchI64 overwrites the 8 bytes at offset with v. Every reserved slot
// must be patched exactly once (§4.2's invariant).
func (c *Chunk) PatchI64(offset int, v int64) {
	if offset < 0 || offset+8 > len(c.Code) {
		panic(fmt.Sprintf("compiler: patch offset %d out of range (len=%d)", offset, len(c.Code)))
	}
	binary.BigEndian.PutUint64(c.Code[offset:offset+8], uint64(v))
	c.patched[offset] = true
}

// ReadI64 reads a big-endian 64-bit integer at offset, used by the
// disassembler and by Validate.
func (c *Chunk) ReadI64(offset int) int64 {
	return int64(binary.BigEndian.Uint64(c.Code[offset : offset+8]))
}

// ReadI32 reads a big-endian 32-bit integer at offset.
func (c *Chunk) ReadI32(offset int) int32 {
	return int32(binary.BigEndian.Uint32(c.Code[offset : offset+4]))
}

// ReadI16 reads a big-endian 16-bit integer at offset.
func (c *Chunk) ReadI16(offset int) int16 {
	return int16(binary.BigEndian.Uint16(c.Code[offset : offset+2]))
}

// ReadF32 reads a big-endian IEEE-754 32-bit float at offset.
func (c *Chunk) ReadF32(offset int) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(c.Code[offset : offset+4]))
}

// ReadF64 reads a big-endian IEEE-754 64-bit float at offset.
func (c *Chunk) ReadF64(offset int) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(c.Code[offset : offset+8]))
}

// ReadString reads a u32-length-prefixed UTF-8 string at offset, returning
// the string and the offset immediately following it.
func (c *Chunk) ReadString(offset int) (string, int) {
	n := int(c.ReadI32(offset))
	start := offset + 4
	return string(c.Code[start : start+n]), start + n
}

// Validate confirms every reserved jump/branch slot this compiler emitted
// was patched, to a value that is a valid offset within Code (the
// quantified invariant in §8: "no dangling jumps"). It does not count how
// often a slot was patched. It is a ledger check against the compiler's
// own bookkeeping, not a from-scratch redecode of the opcode stream — a
// forged create_from_bytecode stream that never went through Compile
// carries no such ledger and always validates trivially;
// machine.ValidateProgram is the caller-facing entry point that compiles a
// program tree (reporting its ParseFailure errors) and then runs this check.
func (c *Chunk) Validate() error {
	for _, offset := range c.reservedSlots {
		if !c.patched[offset] {
			return fmt.Errorf("compiler: slot at offset %d was never patched", offset)
		}
		target := c.ReadI64(offset)
		if target < 0 || target > int64(len(c.Code)) {
			return fmt.Errorf("compiler: slot at offset %d targets out-of-range offset %d (len=%d)", offset, target, len(c.Code))
		}
	}
	return nil
}
