// Package page defines the storage-layer collaborator interfaces that the
// rest of sharq is built against (§6): a read-only PageSource for the
// read-optimized engine, and a PageStore extension for callers that also
// need to write pages.
package page

import "errors"

// ErrPageOutOfRange is returned by ReadPage/WritePage when pageNumber is
// 0 or exceeds the store's current page count.
var ErrPageOutOfRange = errors.New("page: page number out of range")

// PageSource is the minimal read surface the schema reader, record
// decoder, and query engine need: fixed-size page reads by 1-based page
// number. Page 1 holds the first 100 bytes of database header before the
// sqlite_schema b-tree root page content.
type PageSource interface {
	// PageSize returns the database's page size in bytes (512–65536,
	// power of two).
	PageSize() uint32

	// PageCount returns the number of pages in the database.
	PageCount() uint32

	// ReadPage copies the full contents of the given 1-based page number
	// into dst, which must be at least PageSize() bytes long.
	ReadPage(pageNumber uint32, dst []byte) error
}

// PageStore extends PageSource with mutation operations for a backing
// store that also supports writes.
type PageStore interface {
	PageSource

	// WritePage writes src (exactly PageSize() bytes) as the full
	// contents of the given 1-based page number.
	WritePage(pageNumber uint32, src []byte) error

	// AllocatePage reserves a new page and returns its page number.
	AllocatePage() (pageNumber uint32, err error)

	// FreePage returns a page to the store's free list.
	FreePage(pageNumber uint32) error

	// Sync flushes any buffered writes to durable storage.
	Sync() error
}
