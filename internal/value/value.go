// Package value implements the VM's tagged dynamic value model: a closed set
// of value tags, the arithmetic/comparison coercion matrix, canonical
// stringification, and the typed-reply decoding used by the host-call
// protocol.
package value

import "fmt"

// Tag identifies the kind of a Value. The set is closed: every constructed
// Value carries one of these tags.
type Tag uint8

const (
	TagNull Tag = iota
	TagI16
	TagI32
	TagI64
	TagF32
	TagF64
	TagBool
	TagString
	TagObject
	TagArray
	TagFunction
	TagReference
)

// Sentinel tags live outside the 0-11 range used by ordinary values; they
// never appear in a canonical stringification or cross a host-call boundary.
const (
	TagSuspension   Tag = 253
	TagContinuation Tag = 254
	TagAskHost      Tag = 255
)

// String returns a human-readable name for the tag, mirroring the teacher's
// ValueType.String() convention.
func (t Tag) String() string {
	switch t {
	case TagNull:
		return "Null"
	case TagI16:
		return "I16"
	case TagI32:
		return "I32"
	case TagI64:
		return "I64"
	case TagF32:
		return "F32"
	case TagF64:
		return "F64"
	case TagBool:
		return "Bool"
	case TagString:
		return "String"
	case TagObject:
		return "Object"
	case TagArray:
		return "Array"
	case TagFunction:
		return "Function"
	case TagReference:
		return "Reference"
	case TagSuspension:
		return "Suspension"
	case TagContinuation:
		return "Continuation"
	case TagAskHost:
		return "AskHost"
	default:
		return "Unknown"
	}
}

// Function describes a user-defined function's location in the owning byte
// stream plus its declared parameter names.
type Function struct {
	Start  int64
	End    int64
	Params []string
}

// Value is the VM's tagged union. It intentionally keeps scalar payloads as
// plain fields rather than interface{}, so the zero Value (TagNull) is
// usable without construction.
type Value struct {
	Tag Tag

	i   int64
	f   float64
	b   bool
	s   string
	arr *ArrayInstance
	obj *ObjectInstance
	fn  *Function
	ref *Value
}

// Null returns the null/uninitialized value.
func Null() Value { return Value{Tag: TagNull} }

// I16 returns a tag-1 integer value.
func I16(v int16) Value { return Value{Tag: TagI16, i: int64(v)} }

// I32 returns a tag-2 integer value.
func I32(v int32) Value { return Value{Tag: TagI32, i: int64(v)} }

// I64 returns a tag-3 integer value.
func I64(v int64) Value { return Value{Tag: TagI64, i: v} }

// F32 returns a tag-4 float value.
func F32(v float32) Value { return Value{Tag: TagF32, f: float64(v)} }

// F64 returns a tag-5 float value.
func F64(v float64) Value { return Value{Tag: TagF64, f: v} }

// Bool returns a tag-6 boolean value.
func Bool(v bool) Value { return Value{Tag: TagBool, b: v} }

// String returns a tag-7 string value.
func String(v string) Value { return Value{Tag: TagString, s: v} }

// Object returns a tag-8 object value wrapping the given instance.
func Object(o *ObjectInstance) Value { return Value{Tag: TagObject, obj: o} }

// Array returns a tag-9 array value wrapping the given instance.
func Array(a *ArrayInstance) Value { return Value{Tag: TagArray, arr: a} }

// Func returns a tag-10 function value.
func Func(fn *Function) Value { return Value{Tag: TagFunction, fn: fn} }

// Reference returns a tag-11 value holding a shared handle to another Value.
func Reference(target *Value) Value { return Value{Tag: TagReference, ref: target} }

// Suspension returns the engine-paused sentinel.
func Suspension() Value { return Value{Tag: TagSuspension} }

// Continuation returns the mid-unwind sentinel carrying a returned value.
func Continuation(v Value) Value {
	cv := Value{Tag: TagContinuation}
	cv.ref = &v
	return cv
}

// ContinuationValue unwraps a Continuation sentinel's carried value.
func (v Value) ContinuationValue() Value {
	if v.Tag != TagContinuation || v.ref == nil {
		return Null()
	}
	return *v.ref
}

// AskHost returns the ask-host callee sentinel.
func AskHost() Value { return Value{Tag: TagAskHost} }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Tag == TagNull }

// IsInt reports whether v holds one of the three integer widths.
func (v Value) IsInt() bool { return v.Tag == TagI16 || v.Tag == TagI32 || v.Tag == TagI64 }

// IsFloat reports whether v holds one of the two float widths.
func (v Value) IsFloat() bool { return v.Tag == TagF32 || v.Tag == TagF64 }

// IsNumber reports whether v is an integer or a float.
func (v Value) IsNumber() bool { return v.IsInt() || v.IsFloat() }

// IsBool reports whether v holds a boolean.
func (v Value) IsBool() bool { return v.Tag == TagBool }

// IsString reports whether v holds a string.
func (v Value) IsString() bool { return v.Tag == TagString }

// IsObject reports whether v holds an object.
func (v Value) IsObject() bool { return v.Tag == TagObject }

// IsArray reports whether v holds an array.
func (v Value) IsArray() bool { return v.Tag == TagArray }

// IsFunction reports whether v holds a function.
func (v Value) IsFunction() bool { return v.Tag == TagFunction }

// AsInt64 returns the integer payload, widened to int64 regardless of tag.
func (v Value) AsInt64() int64 { return v.i }

// AsFloat64 returns the numeric payload as float64, converting integers.
func (v Value) AsFloat64() float64 {
	if v.IsInt() {
		return float64(v.i)
	}
	return v.f
}

// AsBool returns the boolean payload.
func (v Value) AsBool() bool { return v.b }

// AsString returns the string payload.
func (v Value) AsString() string { return v.s }

// AsArray returns the array payload, or nil if v is not an array.
func (v Value) AsArray() *ArrayInstance { return v.arr }

// AsObject returns the object payload, or nil if v is not an object.
func (v Value) AsObject() *ObjectInstance { return v.obj }

// AsFunction returns the function payload, or nil if v is not a function.
func (v Value) AsFunction() *Function { return v.fn }

// AsReference returns the referenced Value, or nil if v is not a reference.
func (v Value) AsReference() *Value { return v.ref }

// NarrowInt returns a new integer Value tagged with the smallest width
// (16→32→64) that can represent n, per the auto-narrowing invariant in §3.
func NarrowInt(n int64) Value {
	switch {
	case n >= -32768 && n <= 32767:
		return I16(int16(n))
	case n >= -2147483648 && n <= 2147483647:
		return I32(int32(n))
	default:
		return I64(n)
	}
}

// WidenFloat returns a float Value, widening to 64-bit when the magnitude
// overflows float32's maximum finite value.
func WidenFloat(f float64) Value {
	const float32Max = 3.4028234663852886e+38
	if f > -float32Max && f < float32Max {
		return F32(float32(f))
	}
	return F64(f)
}

// GoString renders a debug form of the value, used in error messages. It is
// deliberately distinct from canonical stringification (see stringify.go),
// which is the wire-facing representation.
func (v Value) GoString() string {
	switch v.Tag {
	case TagNull:
		return "null"
	case TagI16, TagI32, TagI64:
		return fmt.Sprintf("%d", v.i)
	case TagF32, TagF64:
		return fmt.Sprintf("%g", v.f)
	case TagBool:
		return fmt.Sprintf("%t", v.b)
	case TagString:
		return v.s
	case TagArray:
		return "<array>"
	case TagObject:
		return "<object>"
	case TagFunction:
		return "<function>"
	case TagReference:
		return "<reference>"
	default:
		return "<" + v.Tag.String() + ">"
	}
}
