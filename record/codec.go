package record

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/sharqdb/sharq/varint"
)

// ErrColumnOutOfRange is returned by DecodeColumn when ordinal is
// negative. A non-negative ordinal beyond the record's actual column
// count instead yields NullValue — this is the ALTER TABLE ADD COLUMN
// contract: rows written before a column was added simply don't have it.
var ErrColumnOutOfRange = errors.New("record: column ordinal out of range")

// stackColumns is the number of serial-type slots carried inline before
// falling back to a heap allocation; chosen so the common case (tables
// with a modest column count) never allocates.
const stackColumns = 128

// ColumnCount returns the number of columns encoded in payload without
// fully decoding the header.
func ColumnCount(payload []byte) int {
	n, serialTypes := readHeader(payload, nil)
	_ = n
	return len(serialTypes)
}

// readHeader decodes the record header (header length varint, followed
// by one serial-type varint per column) and returns the serial types plus
// the byte offset where the column bodies begin. If dst has enough
// capacity it is reused; otherwise a new slice is allocated.
func readHeader(payload []byte, dst []int64) (bodyOffset int, serialTypes []int64) {
	if len(payload) == 0 {
		return 0, dst[:0]
	}
	hdrLenBytes, hdrLen := varint.Read(payload)
	serialTypes = dst[:0]
	pos := hdrLenBytes
	for pos < int(hdrLen) && pos < len(payload) {
		n, st := varint.Read(payload[pos:])
		serialTypes = append(serialTypes, st)
		pos += n
	}
	return int(hdrLen), serialTypes
}

// ReadSerialTypes decodes the serial-type array from payload into dst
// (reusing its backing array when large enough) and returns the column
// count and the offset of the first column body byte.
func ReadSerialTypes(payload []byte, dst []int64) (count int, bodyOffset int, serialTypes []int64) {
	bodyOffset, serialTypes = readHeader(payload, dst)
	return len(serialTypes), bodyOffset, serialTypes
}

// DecodeValue decodes a single column body of the given serial type from
// the front of content. The returned value borrows content's backing
// array for Text/Blob classes; call Clone to obtain an owned copy.
func DecodeValue(content []byte, serialType int64) ColumnValue {
	switch {
	case serialType == varint.SerialNull:
		return ColumnValue{Class: Null, SerialType: serialType}
	case serialType >= varint.SerialInt8 && serialType <= varint.SerialInt32:
		return ColumnValue{Class: Integral, SerialType: serialType, Int: decodeSignedInt(content, int(serialType))}
	case serialType == varint.SerialInt48:
		return ColumnValue{Class: Integral, SerialType: serialType, Int: decodeSignedInt(content, 6)}
	case serialType == varint.SerialInt64:
		return ColumnValue{Class: Integral, SerialType: serialType, Int: decodeSignedInt(content, 8)}
	case serialType == varint.SerialFloat64:
		bits := binary.BigEndian.Uint64(content[:8])
		return ColumnValue{Class: Real, SerialType: serialType, Float: math.Float64frombits(bits)}
	case serialType == varint.SerialZero:
		return ColumnValue{Class: Integral, SerialType: serialType, Int: 0}
	case serialType == varint.SerialOne:
		return ColumnValue{Class: Integral, SerialType: serialType, Int: 1}
	case serialType == varint.SerialGUID:
		id, _ := uuid.FromBytes(content[:16])
		return ColumnValue{Class: UniqueID, SerialType: serialType, GUID: id}
	case varint.IsBlob(serialType):
		n := varint.ContentSize(serialType)
		return ColumnValue{Class: Blob, SerialType: serialType, Bytes: content[:n]}
	case varint.IsText(serialType):
		n := varint.ContentSize(serialType)
		return ColumnValue{Class: Text, SerialType: serialType, Bytes: content[:n]}
	default:
		// Reserved serial type (10 or 11): treat as NULL rather than
		// panicking — the header walk itself is the place a caller should
		// reject a malformed record.
		return ColumnValue{Class: Null, SerialType: serialType}
	}
}

// decodeSignedInt sign-extends an n-byte big-endian two's-complement
// integer (n in {1,2,3,4,6,8}).
func decodeSignedInt(content []byte, n int) int64 {
	var u uint64
	for i := 0; i < n; i++ {
		u = (u << 8) | uint64(content[i])
	}
	signBit := uint64(1) << (n*8 - 1)
	if u&signBit != 0 {
		u |= ^uint64(0) << (n * 8)
	}
	return int64(u)
}

// DecodeRecord decodes every column of payload into a freshly allocated
// slice of owned ColumnValues (safe to retain past payload's lifetime).
func DecodeRecord(payload []byte) []ColumnValue {
	var stack [stackColumns]int64
	_, bodyOffset, serialTypes := ReadSerialTypes(payload, stack[:0])
	out := make([]ColumnValue, len(serialTypes))
	decodeBody(payload, bodyOffset, serialTypes, out, true)
	return out
}

// DecodeRecordInto decodes every column of payload into dst (which must
// have length >= the column count; use ColumnCount to size it), borrowing
// payload's backing array for Text/Blob values rather than copying.
func DecodeRecordInto(payload []byte, dst []ColumnValue) int {
	var stack [stackColumns]int64
	_, bodyOffset, serialTypes := ReadSerialTypes(payload, stack[:0])
	n := len(serialTypes)
	if n > len(dst) {
		n = len(dst)
	}
	decodeBody(payload, bodyOffset, serialTypes, dst[:n], false)
	return n
}

func decodeBody(payload []byte, bodyOffset int, serialTypes []int64, out []ColumnValue, owned bool) {
	pos := bodyOffset
	for i := 0; i < len(out) && i < len(serialTypes); i++ {
		st := serialTypes[i]
		size := varint.ContentSize(st)
		if size < 0 {
			size = 0
		}
		var content []byte
		if pos+size <= len(payload) {
			content = payload[pos : pos+size]
		} else {
			content = payload[len(payload):]
		}
		v := DecodeValue(content, st)
		if owned {
			v = v.Clone()
		}
		out[i] = v
		pos += size
	}
}

// DecodeColumn decodes a single column of payload by ordinal, computing
// the full header internally. Returns ErrColumnOutOfRange only for a
// negative ordinal; an ordinal at or beyond the record's actual column
// count returns NullValue, nil (the ALTER TABLE ADD COLUMN contract).
func DecodeColumn(payload []byte, ordinal int) (ColumnValue, error) {
	if ordinal < 0 {
		return ColumnValue{}, ErrColumnOutOfRange
	}
	var stack [stackColumns]int64
	_, bodyOffset, serialTypes := ReadSerialTypes(payload, stack[:0])
	return DecodeColumnAt(payload, serialTypes, bodyOffset, ordinal), nil
}

// DecodeColumnAt is the span-indexed random-access accessor: given an
// already-computed serial-type array and body offset, it decodes just
// the requested column without re-walking preceding columns' bodies.
// ordinal >= len(serialTypes) returns NullValue (never an error).
func DecodeColumnAt(payload []byte, serialTypes []int64, bodyOffset int, ordinal int) ColumnValue {
	if ordinal < 0 || ordinal >= len(serialTypes) {
		return NullValue
	}
	pos := bodyOffset
	for i := 0; i < ordinal; i++ {
		size := varint.ContentSize(serialTypes[i])
		if size < 0 {
			size = 0
		}
		pos += size
	}
	st := serialTypes[ordinal]
	size := varint.ContentSize(st)
	if size < 0 {
		size = 0
	}
	var content []byte
	if pos+size <= len(payload) {
		content = payload[pos : pos+size]
	}
	return DecodeValue(content, st)
}

// ComputeColumnOffsets fills offsets[i] with the body byte offset of
// column i (relative to payload's start), given the serial types and the
// body's starting offset. len(offsets) must equal len(serialTypes).
func ComputeColumnOffsets(serialTypes []int64, bodyOffset int, offsets []int) {
	pos := bodyOffset
	for i, st := range serialTypes {
		offsets[i] = pos
		size := varint.ContentSize(st)
		if size < 0 {
			size = 0
		}
		pos += size
	}
}

// DecodeInt64At decodes column ordinal as an integer, returning 0, false
// if it is out of range or not of Integral class.
func DecodeInt64At(payload []byte, serialTypes []int64, bodyOffset, ordinal int) (int64, bool) {
	return DecodeColumnAt(payload, serialTypes, bodyOffset, ordinal).AsInt64()
}

// DecodeDoubleAt decodes column ordinal as a float64, returning 0, false
// if it is out of range or not of Real class.
func DecodeDoubleAt(payload []byte, serialTypes []int64, bodyOffset, ordinal int) (float64, bool) {
	return DecodeColumnAt(payload, serialTypes, bodyOffset, ordinal).AsDouble()
}

// DecodeStringAt decodes column ordinal as a string, returning "", false
// if it is out of range or not of Text class.
func DecodeStringAt(payload []byte, serialTypes []int64, bodyOffset, ordinal int) (string, bool) {
	return DecodeColumnAt(payload, serialTypes, bodyOffset, ordinal).AsString()
}

// TryDecodeIndexRecord decodes an index b-tree record, which is a
// payload of key columns followed by a final rowid column appended by
// SQLite for non-unique or partially-covering indexes. It returns the
// key columns and the trailing rowid (0 if the record has no extra
// rowid column, i.e. the index is on exactly the declared columns).
func TryDecodeIndexRecord(payload []byte, declaredKeyColumns int) (keys []ColumnValue, rowid int64) {
	all := DecodeRecord(payload)
	if len(all) > declaredKeyColumns {
		rid, _ := all[len(all)-1].AsInt64()
		return all[:declaredKeyColumns], rid
	}
	return all, 0
}

// ComputeEncodedSize returns the number of bytes EncodeRecord would
// produce for values, without doing the encode.
func ComputeEncodedSize(values []ColumnValue) int {
	bodySize := 0
	headerBodySize := 0
	for _, v := range values {
		st := serialTypeFor(v)
		headerBodySize += varint.Len(st)
		bodySize += varint.ContentSize(st)
	}
	// Header length varint's own size depends on the total header length,
	// which depends on the header length varint's size — fixed point,
	// solved in at most two iterations since growing past a 1-byte-larger
	// varint only happens at specific size thresholds.
	hdrLenFieldSize := varint.Len(int64(headerBodySize + 1))
	total := hdrLenFieldSize + headerBodySize
	if grown := varint.Len(int64(total)); grown != hdrLenFieldSize {
		hdrLenFieldSize = grown
		total = hdrLenFieldSize + headerBodySize
	}
	return total + bodySize
}

func serialTypeFor(v ColumnValue) int64 {
	switch v.Class {
	case Null:
		return varint.SerialNull
	case Integral:
		return minimalIntSerialType(v.Int)
	case Real:
		return varint.SerialFloat64
	case Text:
		return varint.TextSerialType(len(v.Bytes))
	case Blob:
		return varint.BlobSerialType(len(v.Bytes))
	case UniqueID:
		return varint.SerialGUID
	default:
		return varint.SerialNull
	}
}

// minimalIntSerialType picks the smallest serial type that can hold n,
// preferring the SerialZero/SerialOne constant-value encodings.
func minimalIntSerialType(n int64) int64 {
	switch {
	case n == 0:
		return varint.SerialZero
	case n == 1:
		return varint.SerialOne
	case n >= -128 && n <= 127:
		return varint.SerialInt8
	case n >= -32768 && n <= 32767:
		return varint.SerialInt16
	case n >= -8388608 && n <= 8388607:
		return varint.SerialInt24
	case n >= -2147483648 && n <= 2147483647:
		return varint.SerialInt32
	case n >= -(1<<47) && n <= (1<<47)-1:
		return varint.SerialInt48
	default:
		return varint.SerialInt64
	}
}

// EncodeRecord serializes values into dst (which must be at least
// ComputeEncodedSize(values) bytes) using a two-pass approach: first
// compute each column's serial type and size to determine the header
// length, then write the header followed by the column bodies. Returns
// the number of bytes written.
func EncodeRecord(dst []byte, values []ColumnValue) int {
	serialTypes := make([]int64, len(values))
	headerBodySize := 0
	for i, v := range values {
		st := serialTypeFor(v)
		serialTypes[i] = st
		headerBodySize += varint.Len(st)
	}
	hdrLenFieldSize := varint.Len(int64(headerBodySize + 1))
	for {
		total := hdrLenFieldSize + headerBodySize
		grown := varint.Len(int64(total))
		if grown == hdrLenFieldSize {
			break
		}
		hdrLenFieldSize = grown
	}
	headerLen := hdrLenFieldSize + headerBodySize

	pos := varint.Write(dst, int64(headerLen))
	for _, st := range serialTypes {
		pos += varint.Write(dst[pos:], st)
	}
	for i, v := range values {
		pos += encodeColumnBody(dst[pos:], v, serialTypes[i])
	}
	return pos
}

func encodeColumnBody(dst []byte, v ColumnValue, serialType int64) int {
	switch v.Class {
	case Null:
		return 0
	case Integral:
		return encodeSignedInt(dst, v.Int, varint.ContentSize(serialType))
	case Real:
		binary.BigEndian.PutUint64(dst[:8], math.Float64bits(v.Float))
		return 8
	case Text, Blob:
		return copy(dst, v.Bytes)
	case UniqueID:
		b, _ := v.GUID.MarshalBinary()
		return copy(dst, b)
	default:
		return 0
	}
}

func encodeSignedInt(dst []byte, value int64, n int) int {
	if n == 0 {
		return 0
	}
	u := uint64(value)
	for i := n - 1; i >= 0; i-- {
		dst[i] = byte(u)
		u >>= 8
	}
	return n
}
