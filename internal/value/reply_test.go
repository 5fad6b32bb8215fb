package value

import "testing"

func TestDecodeReplyTypedScalars(t *testing.T) {
	tests := []struct {
		raw  string
		tag  Tag
		want string
	}{
		{`{"type":"bool","data":{"value":true}}`, TagBool, "true"},
		{`{"type":"i64","data":{"value":7}}`, TagI64, "7"},
		{`{"type":"string","data":{"value":"hi"}}`, TagString, "hi"},
		{`null`, TagNull, "null"},
		{`{"type":"null"}`, TagNull, "null"},
	}
	for _, tt := range tests {
		v, err := DecodeReply([]byte(tt.raw))
		if err != nil {
			t.Fatalf("DecodeReply(%s): %v", tt.raw, err)
		}
		if v.Tag != tt.tag {
			t.Errorf("DecodeReply(%s).Tag = %v, want %v", tt.raw, v.Tag, tt.tag)
		}
	}
}

func TestDecodeReplyObjectAndArray(t *testing.T) {
	v, err := DecodeReply([]byte(`{"type":"object","data":{"value":{"k":1}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsObject() {
		t.Fatalf("expected object, got %v", v.Tag)
	}
	k, ok := v.AsObject().Get("k")
	if !ok || k.AsInt64() != 1 {
		t.Fatalf("expected field k=1, got %v ok=%v", k, ok)
	}

	arrVal, err := DecodeReply([]byte(`{"type":"array","data":{"value":[1,2,3]}}`))
	if err != nil {
		t.Fatal(err)
	}
	if !arrVal.IsArray() || arrVal.AsArray().Len() != 3 {
		t.Fatalf("expected array of 3, got %v", arrVal)
	}
}

func TestDecodeReplyUnrecognizedTypeIsNull(t *testing.T) {
	v, err := DecodeReply([]byte(`{"type":"mystery"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsNull() {
		t.Fatalf("unrecognized typed reply should decode to null, got %v", v.Tag)
	}
}
