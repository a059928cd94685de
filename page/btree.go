package page

import (
	"encoding/binary"
	"fmt"

	"github.com/sharqdb/sharq/varint"
)

// Table b-tree page type bytes (§2 of the on-disk format).
const (
	PageTypeInteriorIndex = 0x02
	PageTypeInteriorTable = 0x05
	PageTypeLeafIndex     = 0x0a
	PageTypeLeafTable     = 0x0d
)

// fileHeaderSize is the 100-byte database header that precedes page 1's
// own content within that page's buffer.
const fileHeaderSize = 100

// RowFunc is called once per row found while walking a table b-tree, in
// left-to-right (ascending rowid) order.
type RowFunc func(rowid int64, payload []byte) error

// Cursor walks table b-trees over a PageSource, resolving interior pages
// and overflow chains transparently so callers always see complete row
// payloads.
type Cursor struct {
	src PageSource
}

// NewCursor returns a Cursor reading pages from src.
func NewCursor(src PageSource) *Cursor {
	return &Cursor{src: src}
}

// WalkTable visits every row reachable from the table b-tree rooted at
// rootPage, calling fn once per row in ascending rowid order. Walking
// stops and returns the first error fn or page access returns.
func (c *Cursor) WalkTable(rootPage uint32, fn RowFunc) error {
	return c.walkTablePage(rootPage, fn)
}

func (c *Cursor) readPage(pageNumber uint32) ([]byte, []byte, error) {
	buf := make([]byte, c.src.PageSize())
	if err := c.src.ReadPage(pageNumber, buf); err != nil {
		return nil, nil, err
	}
	content := buf
	if pageNumber == 1 {
		content = buf[fileHeaderSize:]
	}
	return buf, content, nil
}

func (c *Cursor) walkTablePage(pageNumber uint32, fn RowFunc) error {
	_, content, err := c.readPage(pageNumber)
	if err != nil {
		return err
	}
	pageType := content[0]
	cellCount := int(binary.BigEndian.Uint16(content[3:5]))
	headerSize := 8
	if pageType == PageTypeInteriorTable {
		headerSize = 12
	}
	cellPtrs := content[headerSize : headerSize+2*cellCount]

	switch pageType {
	case PageTypeLeafTable:
		for i := 0; i < cellCount; i++ {
			offset := binary.BigEndian.Uint16(cellPtrs[2*i : 2*i+2])
			rowid, payload, err := c.readLeafCell(content[offset:])
			if err != nil {
				return err
			}
			if err := fn(rowid, payload); err != nil {
				return err
			}
		}
		return nil
	case PageTypeInteriorTable:
		for i := 0; i < cellCount; i++ {
			offset := binary.BigEndian.Uint16(cellPtrs[2*i : 2*i+2])
			cell := content[offset:]
			leftChild := binary.BigEndian.Uint32(cell[0:4])
			if err := c.walkTablePage(leftChild, fn); err != nil {
				return err
			}
		}
		rightMost := binary.BigEndian.Uint32(content[8:12])
		return c.walkTablePage(rightMost, fn)
	default:
		return fmt.Errorf("page %d: expected a table b-tree page, got type 0x%02x", pageNumber, pageType)
	}
}

// readLeafCell decodes a table-leaf cell's varint(payload_size),
// varint(rowid), and payload (following the overflow chain if the
// payload didn't fit locally).
func (c *Cursor) readLeafCell(cell []byte) (rowid int64, payload []byte, err error) {
	n1, payloadSize := varint.Read(cell)
	n2, rid := varint.Read(cell[n1:])
	body := cell[n1+n2:]

	usable := int(c.src.PageSize())
	local, hasOverflow := localPayloadSize(int(payloadSize), usable)
	if !hasOverflow {
		if local > len(body) {
			local = len(body)
		}
		return rid, body[:local], nil
	}

	out := make([]byte, 0, payloadSize)
	out = append(out, body[:local]...)
	overflowPage := binary.BigEndian.Uint32(body[local : local+4])
	remaining := int(payloadSize) - local
	for overflowPage != 0 && remaining > 0 {
		raw, _, err := c.readPage(overflowPage)
		if err != nil {
			return 0, nil, err
		}
		next := binary.BigEndian.Uint32(raw[0:4])
		chunk := raw[4:]
		take := remaining
		if take > len(chunk) {
			take = len(chunk)
		}
		out = append(out, chunk[:take]...)
		remaining -= take
		overflowPage = next
	}
	return rid, out, nil
}

// localPayloadSize implements SQLite's table-leaf local-payload formula:
// payloads that fit within usableSize-35 bytes are stored entirely
// in-page; larger payloads spill the remainder to an overflow chain
// whose first page number follows the local bytes.
func localPayloadSize(payloadSize, usableSize int) (local int, hasOverflow bool) {
	maxLocal := usableSize - 35
	if payloadSize <= maxLocal {
		return payloadSize, false
	}
	minLocal := (usableSize-12)*32/255 - 23
	k := minLocal + (payloadSize-minLocal)%(usableSize-4)
	if k <= maxLocal {
		return k, true
	}
	return minLocal, true
}
