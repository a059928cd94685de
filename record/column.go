// Package record decodes and encodes SQLite table-b-tree record payloads:
// the varint header (column count + serial types) followed by
// concatenated column bodies, plus a span-based predicate matcher that
// evaluates filters directly against the raw payload bytes.
package record

import (
	"fmt"

	"github.com/google/uuid"
)

// Class is the storage class of a decoded column value.
type Class int

const (
	Null Class = iota
	Integral
	Real
	Text
	Blob
	UniqueID
)

func (c Class) String() string {
	switch c {
	case Null:
		return "NULL"
	case Integral:
		return "INTEGER"
	case Real:
		return "REAL"
	case Text:
		return "TEXT"
	case Blob:
		return "BLOB"
	case UniqueID:
		return "UUID"
	default:
		return "UNKNOWN"
	}
}

// ColumnValue is a tagged value decoded from (or destined for) a record
// column body. Text and Blob values carry a byte range that is either
// borrowed from the page buffer the record was decoded from, or owned
// (heap-copied) — see Owned. Borrowed values must not outlive the buffer
// they were decoded from.
type ColumnValue struct {
	Class      Class
	SerialType int64
	Int        int64
	Float      float64
	Bytes      []byte // valid when Class is Text or Blob
	GUID       uuid.UUID
	Owned      bool // true if Bytes is a heap copy, false if borrowed from the page
}

// NullValue is the canonical NULL column value.
var NullValue = ColumnValue{Class: Null, SerialType: 0}

// AsInt64 returns the integer value and true if the value's class is
// Integral; otherwise it returns 0, false.
func (v ColumnValue) AsInt64() (int64, bool) {
	if v.Class != Integral {
		return 0, false
	}
	return v.Int, true
}

// AsDouble returns the float value and true if the value's class is Real;
// otherwise it returns 0, false.
func (v ColumnValue) AsDouble() (float64, bool) {
	if v.Class != Real {
		return 0, false
	}
	return v.Float, true
}

// AsString returns the text value and true if the value's class is Text;
// otherwise it returns "", false.
func (v ColumnValue) AsString() (string, bool) {
	if v.Class != Text {
		return "", false
	}
	return string(v.Bytes), true
}

// AsBytes returns the blob value and true if the value's class is Blob;
// otherwise it returns nil, false.
func (v ColumnValue) AsBytes() ([]byte, bool) {
	if v.Class != Blob {
		return nil, false
	}
	return v.Bytes, true
}

// AsGUID returns the GUID value and true if the value's class is
// UniqueID; otherwise it returns the zero UUID, false.
func (v ColumnValue) AsGUID() (uuid.UUID, bool) {
	if v.Class != UniqueID {
		return uuid.UUID{}, false
	}
	return v.GUID, true
}

// IsNull reports whether the value's class is Null.
func (v ColumnValue) IsNull() bool { return v.Class == Null }

// Clone returns a copy of v with an owned (heap-allocated) Bytes slice,
// safe to retain past the lifetime of the page buffer v was decoded from.
func (v ColumnValue) Clone() ColumnValue {
	if v.Owned || v.Bytes == nil {
		return v
	}
	out := v
	out.Bytes = append([]byte(nil), v.Bytes...)
	out.Owned = true
	return out
}

// Equal reports whether two column values are equal in class and content.
func (v ColumnValue) Equal(o ColumnValue) bool {
	if v.Class != o.Class {
		return false
	}
	switch v.Class {
	case Null:
		return true
	case Integral:
		return v.Int == o.Int
	case Real:
		return v.Float == o.Float
	case Text, Blob:
		return string(v.Bytes) == string(o.Bytes)
	case UniqueID:
		return v.GUID == o.GUID
	default:
		return false
	}
}

func (v ColumnValue) String() string {
	switch v.Class {
	case Null:
		return "NULL"
	case Integral:
		return fmt.Sprintf("%d", v.Int)
	case Real:
		return fmt.Sprintf("%g", v.Float)
	case Text:
		return string(v.Bytes)
	case Blob:
		return fmt.Sprintf("x'%x'", v.Bytes)
	case UniqueID:
		return v.GUID.String()
	default:
		return "?"
	}
}
