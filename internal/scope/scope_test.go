package scope

import (
	"testing"

	"github.com/cosmopole-org/elpian-vm/internal/value"
)

func TestLookupUnboundReturnsNull(t *testing.T) {
	ctx := NewContext(100)
	if got := ctx.Lookup("nope"); !got.IsNull() {
		t.Fatalf("unbound lookup should return null, got %v", got.Tag)
	}
}

func TestDefineShadowsOuterBinding(t *testing.T) {
	ctx := NewContext(100)
	ctx.Define("x", value.I16(1))
	ctx.Push(NewScope("ifBody", 50))
	ctx.Define("x", value.I16(2))
	if got := ctx.Lookup("x"); got.AsInt64() != 2 {
		t.Fatalf("inner definition should shadow outer, got %d", got.AsInt64())
	}
	ctx.Pop()
	if got := ctx.Lookup("x"); got.AsInt64() != 1 {
		t.Fatalf("after popping, outer binding should be visible again, got %d", got.AsInt64())
	}
}

func TestAssignUpdatesExistingOuterBinding(t *testing.T) {
	ctx := NewContext(100)
	ctx.Define("count", value.I16(0))
	ctx.Push(NewScope("loopBody", 50))
	ctx.Assign("count", value.I16(1))
	if got := ctx.Lookup("count"); got.AsInt64() != 1 {
		t.Fatalf("assign should update the outer scope's binding, got %d", got.AsInt64())
	}
	ctx.Pop()
	if got := ctx.Lookup("count"); got.AsInt64() != 1 {
		t.Fatalf("outer binding should reflect the inner assign after pop, got %d", got.AsInt64())
	}
}

func TestAssignWithNoExistingBindingDefinesInTop(t *testing.T) {
	ctx := NewContext(100)
	ctx.Push(NewScope("ifBody", 50))
	ctx.Assign("fresh", value.I16(7))
	if _, ok := ctx.Top().Lookup("fresh"); !ok {
		t.Fatalf("assign with no existing binding should define in the top scope")
	}
}

func TestGlobalScopeNeverPops(t *testing.T) {
	ctx := NewContext(100)
	if ctx.Pop() != nil {
		t.Fatalf("popping with only the global scope left should be a no-op")
	}
	if ctx.Len() != 1 {
		t.Fatalf("global scope should remain, Len() = %d", ctx.Len())
	}
}
