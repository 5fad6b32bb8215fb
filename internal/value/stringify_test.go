package value

import "testing"

func TestStringifyPrimitives(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Null(), "null"},
		{I32(42), "42"},
		{F64(3.5), "3.5"},
		{Bool(true), "true"},
		{Bool(false), "false"},
		{String(`hi "there"`), `"hi \"there\""`},
	}
	for _, tt := range tests {
		if got := Stringify(tt.v); got != tt.want {
			t.Errorf("Stringify(%v) = %q, want %q", tt.v.Tag, got, tt.want)
		}
	}
}

func TestStringifyArrayAndObject(t *testing.T) {
	arr := Array(NewArrayInstance([]Value{I32(1), I32(2), I32(3)}))
	if got := Stringify(arr); got != "[1,2,3]" {
		t.Fatalf("got %q", got)
	}

	obj := NewObjectInstance(0)
	obj.Set("b", I32(2))
	obj.Set("a", I32(1))
	if got := Stringify(Object(obj)); got != `{"b":2,"a":1}` {
		t.Fatalf("got %q, want fields in insertion order", got)
	}
}

func TestScenarioOnePayload(t *testing.T) {
	// Mirrors §8 scenario 1: println(a + b) where a=30, b=12.
	sum, err := Add(I16(30), I16(12))
	if err != nil {
		t.Fatal(err)
	}
	args := Array(NewArrayInstance([]Value{sum}))
	if got := Stringify(args); got != "[42]" {
		t.Fatalf("got %q, want [42]", got)
	}
}

func TestRoundTripStringifyParseValue(t *testing.T) {
	values := []Value{
		Null(),
		I32(42),
		F64(2.5),
		Bool(true),
		String("hello"),
		Array(NewArrayInstance([]Value{I32(1), String("x")})),
	}
	for _, v := range values {
		s1 := Stringify(v)
		parsed, err := ParseCanonical(s1)
		if err != nil {
			t.Fatalf("ParseCanonical(%q): %v", s1, err)
		}
		s2 := Stringify(parsed)
		if s1 != s2 {
			t.Errorf("round trip mismatch: %q != %q", s1, s2)
		}
	}
}
