package value

import (
	"bytes"
	"encoding/json"
)

// DecodeReply parses a continue_run reply payload per §4.5/§6: a typed
// envelope `{type, data:{value:...}}`, or a bare JSON null. Unrecognized
// shapes decode to the null value rather than erroring, matching the "the
// embedder must impose structure" stance of the host-call contract.
//
// Numbers decode via json.Number rather than encoding/json's default
// float64 so a host-supplied "i64" reply survives the round trip into an
// I64 Value without first collapsing through float64 precision.
func DecodeReply(raw []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var root interface{}
	if err := dec.Decode(&root); err != nil {
		return Null(), NewRuntimeError(KindTypeMismatch, "malformed reply: %v", err)
	}
	if root == nil {
		return Null(), nil
	}
	envelope, ok := root.(map[string]interface{})
	if !ok {
		return Null(), nil
	}
	typeName, ok := envelope["type"].(string)
	if !ok {
		return Null(), nil
	}
	var inner interface{}
	if data, ok := envelope["data"].(map[string]interface{}); ok {
		inner = data["value"]
	}
	return decodeTyped(typeName, inner), nil
}

func decodeTyped(typeName string, data interface{}) Value {
	switch typeName {
	case "null":
		return Null()
	case "bool", "boolean":
		b, _ := data.(bool)
		return Bool(b)
	case "i16":
		return I16(int16(replyInt(data)))
	case "i32":
		return I32(int32(replyInt(data)))
	case "i64":
		return I64(replyInt(data))
	case "f32":
		return F32(float32(replyFloat(data)))
	case "f64":
		return F64(replyFloat(data))
	case "string":
		s, _ := data.(string)
		return String(s)
	case "array":
		return Array(replyArray(data))
	case "object":
		return Object(replyObject(data))
	default:
		return Null()
	}
}

func replyInt(data interface{}) int64 {
	n, ok := data.(json.Number)
	if !ok {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return int64(f)
}

func replyFloat(data interface{}) float64 {
	n, ok := data.(json.Number)
	if !ok {
		return 0
	}
	f, _ := n.Float64()
	return f
}

func replyArray(data interface{}) *ArrayInstance {
	elems, ok := data.([]interface{})
	if !ok {
		return NewArrayInstance(nil)
	}
	out := make([]Value, len(elems))
	for i, e := range elems {
		out[i] = fromUntypedReply(e)
	}
	return NewArrayInstance(out)
}

func replyObject(data interface{}) *ObjectInstance {
	obj := NewObjectInstance(0)
	fields, ok := data.(map[string]interface{})
	if !ok {
		return obj
	}
	for k, v := range fields {
		obj.Set(k, fromUntypedReply(v))
	}
	return obj
}

// fromUntypedReply converts a nested value that arrived without its own
// typed envelope (an element of an "array" reply, a field of an "object"
// reply) into a Value, using the same number/collection inference
// ParseCanonical uses for canonical text.
func fromUntypedReply(data interface{}) Value {
	switch t := data.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return NarrowInt(i)
		}
		f, _ := t.Float64()
		return WidenFloat(f)
	case []interface{}:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = fromUntypedReply(e)
		}
		return Array(NewArrayInstance(elems))
	case map[string]interface{}:
		obj := NewObjectInstance(0)
		for k, v := range t {
			obj.Set(k, fromUntypedReply(v))
		}
		return Object(obj)
	default:
		return Null()
	}
}
