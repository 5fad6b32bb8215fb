package compiler

import (
	"encoding/binary"
	"fmt"
)

// magic identifies a serialized Chunk container, mirroring the teacher's
// own magic-prefixed bytecode container convention.
var magic = [4]byte{'E', 'V', 'M', 0x00}

// version is the container format version. Bump it if the header or body
// layout changes incompatibly.
const version uint32 = 1

// Serialize renders a Chunk to the "EVM\x00" + version + body container
// format consumed by create_from_bytecode. The body is: u32 code length,
// code bytes, u32 function count, then per function (string name, i64
// start, i64 end, u32 param count, param strings).
func Serialize(c *Chunk) []byte {
	var out []byte
	out = append(out, magic[:]...)

	var versionBuf [4]byte
	binary.BigEndian.PutUint32(versionBuf[:], version)
	out = append(out, versionBuf[:]...)

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(c.Code)))
	out = append(out, lenBuf[:]...)
	out = append(out, c.Code...)

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(c.Functions)))
	out = append(out, countBuf[:]...)
	for name, info := range c.Functions {
		out = append(out, encodeString(name)...)
		out = append(out, encodeI64(info.Start)...)
		out = append(out, encodeI64(info.End)...)
		var paramCountBuf [4]byte
		binary.BigEndian.PutUint32(paramCountBuf[:], uint32(len(info.Params)))
		out = append(out, paramCountBuf[:]...)
		for _, p := range info.Params {
			out = append(out, encodeString(p)...)
		}
	}
	return out
}

func encodeString(s string) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	return append(lenBuf[:], s...)
}

func encodeI64(v int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return buf[:]
}

// Deserialize parses the container format Serialize produces, checking the
// header/body framing as it goes. The returned Chunk has an empty
// reservedSlots/patched ledger — a bytecode blob handed to
// create_from_bytecode carries no compiler-time jump ledger, only the final
// byte stream — so Validate on a deserialized Chunk has nothing to check
// and returns nil; the forward-patch invariant is only checked against
// Compile's own ledger (see Chunk.Validate's doc comment).
func Deserialize(data []byte) (*Chunk, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("compiler: bytecode blob too short for header")
	}
	var gotMagic [4]byte
	copy(gotMagic[:], data[:4])
	if gotMagic != magic {
		return nil, fmt.Errorf("compiler: bad magic bytes %v, expected %v", gotMagic, magic)
	}
	gotVersion := binary.BigEndian.Uint32(data[4:8])
	if gotVersion != version {
		return nil, fmt.Errorf("compiler: unsupported bytecode version %d", gotVersion)
	}

	offset := 8
	codeLen := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if offset+codeLen > len(data) {
		return nil, fmt.Errorf("compiler: truncated bytecode blob (code)")
	}
	code := make([]byte, codeLen)
	copy(code, data[offset:offset+codeLen])
	offset += codeLen

	if offset+4 > len(data) {
		return nil, fmt.Errorf("compiler: truncated bytecode blob (function count)")
	}
	funcCount := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4

	functions := make(map[string]FunctionInfo, funcCount)
	for i := 0; i < funcCount; i++ {
		name, next, err := decodeString(data, offset)
		if err != nil {
			return nil, err
		}
		offset = next

		if offset+16 > len(data) {
			return nil, fmt.Errorf("compiler: truncated bytecode blob (function bounds)")
		}
		start := int64(binary.BigEndian.Uint64(data[offset : offset+8]))
		offset += 8
		end := int64(binary.BigEndian.Uint64(data[offset : offset+8]))
		offset += 8

		if offset+4 > len(data) {
			return nil, fmt.Errorf("compiler: truncated bytecode blob (param count)")
		}
		paramCount := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4

		params := make([]string, paramCount)
		for j := 0; j < paramCount; j++ {
			params[j], offset, err = decodeString(data, offset)
			if err != nil {
				return nil, err
			}
		}
		functions[name] = FunctionInfo{Start: start, End: end, Params: params}
	}

	return &Chunk{Code: code, Functions: functions, patched: make(map[int]bool)}, nil
}

func decodeString(data []byte, offset int) (string, int, error) {
	if offset+4 > len(data) {
		return "", 0, fmt.Errorf("compiler: truncated bytecode blob (string length)")
	}
	n := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if offset+n > len(data) {
		return "", 0, fmt.Errorf("compiler: truncated bytecode blob (string bytes)")
	}
	return string(data[offset : offset+n]), offset + n, nil
}
