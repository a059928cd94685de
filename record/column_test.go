package record

import "testing"

func TestColumnValueAccessorsRejectWrongClass(t *testing.T) {
	v := ColumnValue{Class: Integral, Int: 5}
	if _, ok := v.AsString(); ok {
		t.Error("AsString should fail on an Integral value")
	}
	if _, ok := v.AsInt64(); !ok {
		t.Error("AsInt64 should succeed on an Integral value")
	}
}

func TestColumnValueCloneCopiesBytes(t *testing.T) {
	backing := []byte("borrowed text")
	v := ColumnValue{Class: Text, Bytes: backing}
	cloned := v.Clone()
	if !cloned.Owned {
		t.Fatal("Clone should mark the result Owned")
	}
	backing[0] = 'X'
	if s, _ := cloned.AsString(); s != "borrowed text" {
		t.Fatalf("clone observed mutation of the original backing array: %q", s)
	}
}

func TestColumnValueEqual(t *testing.T) {
	a := ColumnValue{Class: Text, Bytes: []byte("same")}
	b := ColumnValue{Class: Text, Bytes: []byte("same")}
	c := ColumnValue{Class: Text, Bytes: []byte("diff")}
	if !a.Equal(b) {
		t.Error("equal text values should compare equal")
	}
	if a.Equal(c) {
		t.Error("different text values should not compare equal")
	}
	if a.Equal(ColumnValue{Class: Integral, Int: 0}) {
		t.Error("values of different classes should never compare equal")
	}
}
