package value

import "strconv"

// Cast implements the `cast` operator (§4.2/§4.3): target types are
// "i16", "i32", "i64", "f32", "f64", "bool", "string". Numeric → numeric is
// saturating/truncating; string → numeric attempts a decimal parse and
// fails with a ParseError-flavored RuntimeError; anything → string uses
// canonical stringification; string → bool treats the literal "true" as
// true and everything else as false.
func Cast(v Value, targetType string) (Value, error) {
	switch targetType {
	case "string":
		return String(Stringify(v)), nil
	case "bool":
		return castBool(v), nil
	case "i16", "i32", "i64":
		return castInt(v, targetType)
	case "f32", "f64":
		return castFloat(v, targetType)
	default:
		return Null(), NewRuntimeError(KindTypeMismatch, "unknown cast target type %q", targetType)
	}
}

func castBool(v Value) Value {
	if v.IsString() {
		return Bool(v.s == "true")
	}
	if v.IsBool() {
		return v
	}
	if v.IsNumber() {
		return Bool(v.AsFloat64() != 0)
	}
	return Bool(false)
}

func castInt(v Value, targetType string) (Value, error) {
	var n int64
	switch {
	case v.IsInt():
		n = v.AsInt64()
	case v.IsFloat():
		n = int64(v.AsFloat64())
	case v.IsBool():
		if v.b {
			n = 1
		}
	case v.IsString():
		parsed, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			return Null(), NewRuntimeError(KindTypeMismatch, "cannot parse %q as integer", v.s)
		}
		n = parsed
	default:
		return Null(), TypeError("cast to "+targetType, "numeric, bool or string", v.Tag)
	}
	switch targetType {
	case "i16":
		return I16(saturateI16(n)), nil
	case "i32":
		return I32(saturateI32(n)), nil
	default:
		return I64(n), nil
	}
}

func castFloat(v Value, targetType string) (Value, error) {
	var f float64
	switch {
	case v.IsNumber():
		f = v.AsFloat64()
	case v.IsBool():
		if v.b {
			f = 1
		}
	case v.IsString():
		parsed, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return Null(), NewRuntimeError(KindTypeMismatch, "cannot parse %q as float", v.s)
		}
		f = parsed
	default:
		return Null(), TypeError("cast to "+targetType, "numeric, bool or string", v.Tag)
	}
	if targetType == "f32" {
		return F32(float32(f)), nil
	}
	return F64(f), nil
}

func saturateI16(n int64) int16 {
	switch {
	case n > 32767:
		return 32767
	case n < -32768:
		return -32768
	default:
		return int16(n)
	}
}

func saturateI32(n int64) int32 {
	switch {
	case n > 2147483647:
		return 2147483647
	case n < -2147483648:
		return -2147483648
	default:
		return int32(n)
	}
}
