package value

import (
	"math"
	"sort"
	"strings"
)

// Add implements `+` per §4.1's coercion table.
func Add(left, right Value) (Value, error) {
	switch {
	case left.IsString() || right.IsString():
		l, r := Stringify(left), Stringify(right)
		if left.IsString() {
			l = left.s
		}
		if right.IsString() {
			r = right.s
		}
		return String(l + r), nil
	case left.IsNumber() && right.IsNumber():
		return numericAdd(left, right), nil
	case left.IsArray() && right.IsArray():
		return Array(Concat(left.arr, right.arr)), nil
	case left.IsArray():
		return Array(appendOne(left.arr, right, true)), nil
	case right.IsArray():
		return Array(appendOne(right.arr, left, false)), nil
	case left.IsObject() && right.IsObject():
		return Object(Merge(left.obj, right.obj)), nil
	case left.IsBool() && right.IsBool():
		return Bool(left.b != right.b), nil
	case left.IsFunction() || right.IsFunction():
		return Null(), TypeError("+", "non-function", functionSide(left, right))
	default:
		return Null(), TypeError("+", "compatible operands", pairTag(left, right))
	}
}

func appendOne(a *ArrayInstance, v Value, vIsRight bool) *ArrayInstance {
	elems := a.Elements()
	if vIsRight {
		elems = append(elems, v)
	} else {
		elems = append([]Value{v}, elems...)
	}
	return NewArrayInstance(elems)
}

func functionSide(left, right Value) Tag {
	if left.IsFunction() {
		return right.Tag
	}
	return left.Tag
}

func pairTag(left, right Value) Tag {
	// Used only for error messages; only the right operand's tag is reported.
	return right.Tag
}

func numericAdd(left, right Value) Value {
	if left.IsInt() && right.IsInt() {
		return NarrowInt(left.AsInt64() + right.AsInt64())
	}
	return WidenFloat(left.AsFloat64() + right.AsFloat64())
}

func numericSub(left, right Value) Value {
	if left.IsInt() && right.IsInt() {
		return NarrowInt(left.AsInt64() - right.AsInt64())
	}
	return WidenFloat(left.AsFloat64() - right.AsFloat64())
}

func numericMul(left, right Value) Value {
	if left.IsInt() && right.IsInt() {
		return NarrowInt(left.AsInt64() * right.AsInt64())
	}
	return WidenFloat(left.AsFloat64() * right.AsFloat64())
}

// Sub implements `-` per §4.1.
func Sub(left, right Value) (Value, error) {
	switch {
	case left.IsNumber() && right.IsNumber():
		return numericSub(left, right), nil
	case left.IsString():
		pattern := Stringify(right)
		if right.IsString() {
			pattern = right.s
		}
		return String(strings.Replace(left.s, pattern, "", 1)), nil
	case left.IsObject() && right.IsObject():
		out := left.obj.Clone()
		for _, k := range right.obj.Keys() {
			out.Delete(k)
		}
		return Object(out), nil
	case left.IsArray():
		return Array(arraySubtract(left.arr, right)), nil
	default:
		return Null(), TypeError("-", "compatible operands", pairTag(left, right))
	}
}

// arraySubtract filters left, removing elements equal to right (or to any
// element of right, when right is itself an array) — §4.1's array `-` rule.
func arraySubtract(left *ArrayInstance, right Value) *ArrayInstance {
	var removeSet []Value
	if right.IsArray() {
		removeSet = right.arr.Elements()
	} else {
		removeSet = []Value{right}
	}
	out := make([]Value, 0, left.Len())
	for _, e := range left.Elements() {
		remove := false
		for _, r := range removeSet {
			if Equal(e, r) {
				remove = true
				break
			}
		}
		if !remove {
			out = append(out, e)
		}
	}
	return NewArrayInstance(out)
}

// Mul implements `*` per §4.1.
func Mul(left, right Value) (Value, error) {
	switch {
	case left.IsString() && right.IsInt():
		return String(strings.Repeat(left.s, clampRepeat(right.AsInt64()))), nil
	case right.IsString() && left.IsInt():
		return String(strings.Repeat(right.s, clampRepeat(left.AsInt64()))), nil
	case left.IsArray() && right.IsInt():
		return Array(repeatArray(left.arr, clampRepeat(right.AsInt64()))), nil
	case right.IsArray() && left.IsInt():
		return Array(repeatArray(right.arr, clampRepeat(left.AsInt64()))), nil
	case left.IsBool() && isCollection(right):
		return boolAnnihilate(left.b, right), nil
	case right.IsBool() && isCollection(left):
		return boolAnnihilate(right.b, left), nil
	case left.IsNumber() && right.IsNumber():
		return numericMul(left, right), nil
	default:
		return Null(), TypeError("*", "compatible operands", pairTag(left, right))
	}
}

func isCollection(v Value) bool { return v.IsArray() || v.IsObject() || v.IsString() }

func boolAnnihilate(flag bool, collection Value) Value {
	if flag {
		return collection
	}
	switch {
	case collection.IsArray():
		return Array(NewArrayInstance(nil))
	case collection.IsObject():
		return Object(NewObjectInstance(collection.obj.TypeID))
	case collection.IsString():
		return String("")
	default:
		return collection
	}
}

func clampRepeat(n int64) int {
	if n < 0 {
		return 0
	}
	return int(n)
}

func repeatArray(a *ArrayInstance, n int) *ArrayInstance {
	elems := a.Elements()
	out := make([]Value, 0, len(elems)*n)
	for i := 0; i < n; i++ {
		out = append(out, elems...)
	}
	return NewArrayInstance(out)
}

// Div implements `/`: always a float, division by zero yields a
// non-finite IEEE-754 value rather than an error (§4.1).
func Div(left, right Value) (Value, error) {
	if !left.IsNumber() || !right.IsNumber() {
		return Null(), TypeError("/", "numeric operands", pairTag(left, right))
	}
	return WidenFloat(left.AsFloat64() / right.AsFloat64()), nil
}

// Mod implements `%`. Per the open-question resolution in SPEC_FULL.md §4,
// it is a distinct opcode from `^`; integer % integer stays integer, any
// float operand widens per the `+` rule.
func Mod(left, right Value) (Value, error) {
	if !left.IsNumber() || !right.IsNumber() {
		return Null(), TypeError("%", "numeric operands", pairTag(left, right))
	}
	if left.IsInt() && right.IsInt() {
		r := right.AsInt64()
		if r == 0 {
			return WidenFloat(math.Mod(left.AsFloat64(), 0)), nil
		}
		return NarrowInt(left.AsInt64() % r), nil
	}
	return WidenFloat(math.Mod(left.AsFloat64(), right.AsFloat64())), nil
}

// Pow implements `^`: always produces a float via math.Pow.
func Pow(left, right Value) (Value, error) {
	if !left.IsNumber() || !right.IsNumber() {
		return Null(), TypeError("^", "numeric operands", pairTag(left, right))
	}
	return WidenFloat(math.Pow(left.AsFloat64(), right.AsFloat64())), nil
}

// Equal implements `==` (and by negation `!=`): defined for all pairs,
// false on tag mismatch except numeric cross-width comparisons.
func Equal(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.AsFloat64() == b.AsFloat64()
	}
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case TagNull:
		return true
	case TagBool:
		return a.b == b.b
	case TagString:
		return a.s == b.s
	case TagArray:
		return a.arr == b.arr
	case TagObject:
		return a.obj == b.obj
	case TagFunction:
		return a.fn == b.fn
	case TagReference:
		return a.ref == b.ref
	default:
		return false
	}
}

// Compare implements the ordered comparisons `<`, `<=`, `>`, `>=`. It
// returns a TypeMismatch error for any pair that isn't both-numeric,
// both-bool, both-string, or both-collection (per §4.1).
func Compare(op string, a, b Value) (bool, error) {
	switch {
	case a.IsNumber() && b.IsNumber():
		return compareOrdered(op, a.AsFloat64(), b.AsFloat64()), nil
	case a.IsString() && b.IsString():
		return compareOrderedString(op, a.s, b.s), nil
	case a.IsBool() && b.IsBool():
		return compareOrdered(op, boolToFloat(a.b), boolToFloat(b.b)), nil
	case a.IsArray() && b.IsArray():
		return compareCollections(op, a.arr.Elements(), b.arr.Elements())
	case a.IsObject() && b.IsObject():
		la, lb := pairedObjectValues(a.obj, b.obj)
		return compareCollections(op, la, lb)
	default:
		return false, NewRuntimeError(KindTypeMismatch, "ordered comparison of %s and %s", a.Tag, b.Tag)
	}
}

// pairedObjectValues builds two same-length value slices over the union of
// both objects' keys (sorted, so the pairing is deterministic regardless of
// map iteration order), each object contributing null for a key it lacks,
// so compareCollections can run the same majority-wins comparison it runs
// for arrays.
func pairedObjectValues(a, b *ObjectInstance) ([]Value, []Value) {
	seen := make(map[string]bool)
	keys := make([]string, 0, len(a.Keys())+len(b.Keys()))
	for _, k := range append(a.Keys(), b.Keys()...) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	la := make([]Value, len(keys))
	lb := make([]Value, len(keys))
	for i, k := range keys {
		la[i] = Null()
		lb[i] = Null()
		if v, ok := a.Get(k); ok {
			la[i] = v
		}
		if v, ok := b.Get(k); ok {
			lb[i] = v
		}
	}
	return la, lb
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func compareOrdered[T int64 | float64](op string, l, r T) bool {
	switch op {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	return false
}

func compareOrderedString(op string, l, r string) bool {
	switch op {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	return false
}

// compareCollections implements "majority-wins element-wise comparison" for
// two collections of the same kind: the ordered comparison holds when it
// holds for a strict majority of the paired-up elements (shorter collection
// pads with null, which never satisfies an ordered comparison against a
// non-null element).
func compareCollections(op string, a, b []Value) (bool, error) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	wins := 0
	for i := 0; i < n; i++ {
		var l, r Value = Null(), Null()
		if i < len(a) {
			l = a[i]
		}
		if i < len(b) {
			r = b[i]
		}
		ok, err := Compare(op, l, r)
		if err != nil {
			continue
		}
		if ok {
			wins++
		}
	}
	return wins*2 > n, nil
}
