package serializer

import (
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestJSONSerializer(t *testing.T) {
	ser := &JSONSerializer{}

	type TestStruct struct {
		Name  string
		Value int
	}

	original := &TestStruct{Name: "test", Value: 42}

	data, err := ser.Serialize(original)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}

	decoded := &TestStruct{}
	if err := ser.Deserialize(data, decoded); err != nil {
		t.Fatalf("Deserialize error: %v", err)
	}

	if decoded.Name != original.Name || decoded.Value != original.Value {
		t.Errorf("Mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestGobSerializer(t *testing.T) {
	ser := &GobSerializer{}

	original := map[string]int{"a": 1, "b": 2}

	data, err := ser.Serialize(original)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}

	var decoded map[string]int
	if err := ser.Deserialize(data, &decoded); err != nil {
		t.Fatalf("Deserialize error: %v", err)
	}

	if decoded["a"] != 1 || decoded["b"] != 2 {
		t.Errorf("Mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestProtobufSerializer(t *testing.T) {
	ser := &ProtobufSerializer{}

	original := wrapperspb.Int32(42)

	data, err := ser.Serialize(original)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}

	decoded := &wrapperspb.Int32Value{}
	if err := ser.Deserialize(data, decoded); err != nil {
		t.Fatalf("Deserialize error: %v", err)
	}

	if decoded.Value != original.Value {
		t.Errorf("Mismatch: got %d, want %d", decoded.Value, original.Value)
	}
}

func TestProtobufSerializerInvalidType(t *testing.T) {
	ser := &ProtobufSerializer{}

	_, err := ser.Serialize("not a proto message")
	if err == nil {
		t.Error("Expected error for non-proto message")
	}
}

func TestGet(t *testing.T) {
	for _, typ := range []Type{TypeJSON, TypeGob, TypeProtobuf} {
		s, err := Get(typ)
		if err != nil || s == nil {
			t.Errorf("Get(%d) = %v, %v", typ, s, err)
		}
	}

	if _, err := Get(Type(0xFF)); err != ErrUnsupportedSerializer {
		t.Errorf("Get(0xFF) err = %v, want ErrUnsupportedSerializer", err)
	}
}
