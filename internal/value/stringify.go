package value

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Stringify renders v in the canonical text form used for host-call
// payloads and result envelopes (§6): integers decimal, floats
// minimal-round-trip decimal, booleans true/false, strings JSON-escaped,
// arrays "[...]", objects "{...}" with fields in insertion order.
func Stringify(v Value) string {
	var b strings.Builder
	writeStringify(&b, v)
	return b.String()
}

func writeStringify(b *strings.Builder, v Value) {
	switch v.Tag {
	case TagNull:
		b.WriteString("null")
	case TagI16, TagI32, TagI64:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case TagF32:
		b.WriteString(strconv.FormatFloat(v.f, 'g', -1, 32))
	case TagF64:
		b.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case TagBool:
		if v.b {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case TagString:
		writeJSONString(b, v.s)
	case TagArray:
		b.WriteByte('[')
		elems := v.arr.Elements()
		for i, e := range elems {
			if i > 0 {
				b.WriteByte(',')
			}
			writeStringify(b, e)
		}
		b.WriteByte(']')
	case TagObject:
		b.WriteByte('{')
		keys := v.obj.Keys()
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, k)
			b.WriteByte(':')
			fv, _ := v.obj.Get(k)
			writeStringify(b, fv)
		}
		b.WriteByte('}')
	case TagFunction:
		b.WriteString("null")
	case TagReference:
		if v.ref != nil {
			writeStringify(b, *v.ref)
		} else {
			b.WriteString("null")
		}
	default:
		b.WriteString("null")
	}
}

func writeJSONString(b *strings.Builder, s string) {
	encoded, _ := json.Marshal(s)
	b.Write(encoded)
}

// ParseCanonical parses a canonical stringification back into a Value. It
// is deliberately narrow: it round-trips exactly the shapes Stringify
// produces (null, decimal numbers, true/false, JSON strings, arrays,
// objects), which is sufficient for the `stringify(parseValue(stringify(v)))
// == stringify(v)` property in §8 — it is not a general program-text parser
// (that parser is explicitly out of scope per §1).
func ParseCanonical(s string) (Value, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Null(), NewRuntimeError(KindTypeMismatch, "cannot parse canonical value: %v", err)
	}
	return fromInterface(raw), nil
}

func fromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case float64:
		if t == float64(int64(t)) {
			return NarrowInt(int64(t))
		}
		return WidenFloat(t)
	case []interface{}:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = fromInterface(e)
		}
		return Array(NewArrayInstance(elems))
	case map[string]interface{}:
		obj := NewObjectInstance(0)
		for k, v := range t {
			obj.Set(k, fromInterface(v))
		}
		return Object(obj)
	default:
		return Null()
	}
}
