package page

import (
	"encoding/binary"
	"testing"

	"github.com/sharqdb/sharq/record"
	"github.com/sharqdb/sharq/varint"
)

const testPageSize = 4096

// fakeSource is a minimal in-memory PageSource for tests.
type fakeSource struct {
	pageSize uint32
	pages    map[uint32][]byte
}

func (f *fakeSource) PageSize() uint32  { return f.pageSize }
func (f *fakeSource) PageCount() uint32 { return uint32(len(f.pages)) }
func (f *fakeSource) ReadPage(pageNumber uint32, dst []byte) error {
	copy(dst, f.pages[pageNumber])
	return nil
}

// buildLeafPage1 builds a single-leaf-table page 1 (with the 100-byte
// file header prefix) containing the given (rowid, payload) rows, laid
// out back-to-front from the end of the page exactly as SQLite does.
func buildLeafPage1(t *testing.T, rows [][2]interface{}) []byte {
	t.Helper()
	buf := make([]byte, testPageSize)
	content := buf[fileHeaderSize:]

	cellEnd := len(content)
	cellPtrs := make([]uint16, 0, len(rows))
	for _, row := range rows {
		rowid := row[0].(int64)
		payload := row[1].([]byte)

		cellBuf := make([]byte, 0, len(payload)+18)
		var tmp [varint.MaxLen]byte
		n := varint.Write(tmp[:], int64(len(payload)))
		cellBuf = append(cellBuf, tmp[:n]...)
		n = varint.Write(tmp[:], rowid)
		cellBuf = append(cellBuf, tmp[:n]...)
		cellBuf = append(cellBuf, payload...)

		cellEnd -= len(cellBuf)
		copy(content[cellEnd:], cellBuf)
		cellPtrs = append(cellPtrs, uint16(cellEnd))
	}

	content[0] = PageTypeLeafTable
	binary.BigEndian.PutUint16(content[1:3], 0)
	binary.BigEndian.PutUint16(content[3:5], uint16(len(rows)))
	binary.BigEndian.PutUint16(content[5:7], uint16(cellEnd))
	content[7] = 0

	for i, off := range cellPtrs {
		binary.BigEndian.PutUint16(content[8+2*i:10+2*i], off)
	}
	return buf
}

func TestCursorWalkTableSingleLeaf(t *testing.T) {
	rec1 := encodeOneIntColumn(t, 111)
	rec2 := encodeOneIntColumn(t, 222)

	page1 := buildLeafPage1(t, [][2]interface{}{
		{int64(1), rec1},
		{int64(2), rec2},
	})
	src := &fakeSource{pageSize: testPageSize, pages: map[uint32][]byte{1: page1}}
	cursor := NewCursor(src)

	var gotRowids []int64
	var gotVals []int64
	err := cursor.WalkTable(1, func(rowid int64, payload []byte) error {
		gotRowids = append(gotRowids, rowid)
		v := record.DecodeRecord(payload)
		n, _ := v[0].AsInt64()
		gotVals = append(gotVals, n)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkTable error: %v", err)
	}
	if len(gotRowids) != 2 || gotRowids[0] != 1 || gotRowids[1] != 2 {
		t.Fatalf("got rowids %v", gotRowids)
	}
	if gotVals[0] != 111 || gotVals[1] != 222 {
		t.Fatalf("got values %v", gotVals)
	}
}

func encodeOneIntColumn(t *testing.T, v int64) []byte {
	t.Helper()
	values := []record.ColumnValue{{Class: record.Integral, Int: v}}
	size := record.ComputeEncodedSize(values)
	buf := make([]byte, size)
	record.EncodeRecord(buf, values)
	return buf
}

func TestLocalPayloadSizeNoOverflowForSmallPayload(t *testing.T) {
	local, overflow := localPayloadSize(50, testPageSize)
	if overflow || local != 50 {
		t.Fatalf("got local=%d overflow=%v, want 50, false", local, overflow)
	}
}

func TestLocalPayloadSizeOverflowsLargePayload(t *testing.T) {
	local, overflow := localPayloadSize(testPageSize*2, testPageSize)
	if !overflow {
		t.Fatal("expected overflow for a payload larger than the page")
	}
	if local <= 0 || local > testPageSize {
		t.Fatalf("unreasonable local size: %d", local)
	}
}
