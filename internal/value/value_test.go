package value

import "testing"

func TestNarrowInt(t *testing.T) {
	tests := []struct {
		in   int64
		want Tag
	}{
		{0, TagI16},
		{32767, TagI16},
		{32768, TagI32},
		{2147483647, TagI32},
		{2147483648, TagI64},
		{-32769, TagI32},
	}
	for _, tt := range tests {
		v := NarrowInt(tt.in)
		if v.Tag != tt.want {
			t.Errorf("NarrowInt(%d).Tag = %v, want %v", tt.in, v.Tag, tt.want)
		}
		if v.AsInt64() != tt.in {
			t.Errorf("NarrowInt(%d).AsInt64() = %d", tt.in, v.AsInt64())
		}
	}
}

func TestWidenFloat(t *testing.T) {
	if v := WidenFloat(1.5); v.Tag != TagF32 {
		t.Errorf("small float should stay F32, got %v", v.Tag)
	}
	if v := WidenFloat(1e40); v.Tag != TagF64 {
		t.Errorf("overflowing float should widen to F64, got %v", v.Tag)
	}
}

func TestArrayInstanceSharedByReference(t *testing.T) {
	arr := NewArrayInstance([]Value{I16(1), I16(2)})
	a := Array(arr)
	b := Array(arr)
	a.AsArray().Set(0, I16(99))
	if b.AsArray().Get(0).AsInt64() != 99 {
		t.Fatalf("mutation through one holder should be visible through the other")
	}
}

func TestArrayInstanceOutOfRangeReadsNull(t *testing.T) {
	arr := NewArrayInstance([]Value{I16(1)})
	if got := arr.Get(5); !got.IsNull() {
		t.Fatalf("out-of-range read should yield null, got %v", got.Tag)
	}
	if arr.Set(5, I16(1)) {
		t.Fatalf("out-of-range write should report false")
	}
}

func TestObjectInsertionOrderPreserved(t *testing.T) {
	obj := NewObjectInstance(1)
	obj.Set("z", I16(1))
	obj.Set("a", I16(2))
	obj.Set("z", I16(3))
	keys := obj.Keys()
	if len(keys) != 2 || keys[0] != "z" || keys[1] != "a" {
		t.Fatalf("keys = %v, want [z a] (first-seen order, no dup on re-set)", keys)
	}
}

func TestMergeIsRightBiased(t *testing.T) {
	left := NewObjectInstance(0)
	left.Set("a", I16(1))
	left.Set("b", I16(2))
	right := NewObjectInstance(0)
	right.Set("b", I16(20))
	right.Set("c", I16(3))
	merged := Merge(left, right)
	if v, _ := merged.Get("b"); v.AsInt64() != 20 {
		t.Fatalf("right side should win on overlapping field, got %d", v.AsInt64())
	}
	if len(merged.Keys()) != 3 {
		t.Fatalf("merged object should have 3 fields, got %d", len(merged.Keys()))
	}
}
