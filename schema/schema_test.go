package schema

import (
	"encoding/binary"
	"testing"

	"github.com/sharqdb/sharq/record"
	"github.com/sharqdb/sharq/varint"
)

const testPageSize = 4096
const fileHeaderSize = 100

type fakeSource struct {
	page1 []byte
}

func (f *fakeSource) PageSize() uint32  { return testPageSize }
func (f *fakeSource) PageCount() uint32 { return 1 }
func (f *fakeSource) ReadPage(pageNumber uint32, dst []byte) error {
	copy(dst, f.page1)
	return nil
}

type schemaRow struct {
	typ, name, tblName, sql string
	rootPage                int64
}

func buildSchemaPage(t *testing.T, rows []schemaRow) *fakeSource {
	t.Helper()
	buf := make([]byte, testPageSize)
	content := buf[fileHeaderSize:]

	cellEnd := len(content)
	var cellPtrs []uint16
	for i, row := range rows {
		values := []record.ColumnValue{
			{Class: record.Text, Bytes: []byte(row.typ)},
			{Class: record.Text, Bytes: []byte(row.name)},
			{Class: record.Text, Bytes: []byte(row.tblName)},
			{Class: record.Integral, Int: row.rootPage},
			{Class: record.Text, Bytes: []byte(row.sql)},
		}
		size := record.ComputeEncodedSize(values)
		payload := make([]byte, size)
		record.EncodeRecord(payload, values)

		var tmp [varint.MaxLen]byte
		cellBuf := make([]byte, 0, size+18)
		n := varint.Write(tmp[:], int64(size))
		cellBuf = append(cellBuf, tmp[:n]...)
		n = varint.Write(tmp[:], int64(i+1))
		cellBuf = append(cellBuf, tmp[:n]...)
		cellBuf = append(cellBuf, payload...)

		cellEnd -= len(cellBuf)
		copy(content[cellEnd:], cellBuf)
		cellPtrs = append(cellPtrs, uint16(cellEnd))
	}

	content[0] = 0x0d // leaf table page
	binary.BigEndian.PutUint16(content[3:5], uint16(len(rows)))
	binary.BigEndian.PutUint16(content[5:7], uint16(cellEnd))
	for i, off := range cellPtrs {
		binary.BigEndian.PutUint16(content[8+2*i:10+2*i], off)
	}
	return &fakeSource{page1: buf}
}

func TestReadSchemaTableAndIndex(t *testing.T) {
	rows := []schemaRow{
		{
			typ: "table", name: "users", tblName: "users", rootPage: 2,
			sql: `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER)`,
		},
		{
			typ: "index", name: "idx_users_name", tblName: "users", rootPage: 3,
			sql: `CREATE UNIQUE INDEX idx_users_name ON users (name COLLATE NOCASE DESC)`,
		},
	}
	src := buildSchemaPage(t, rows)
	s, err := Read(src)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	users, ok := s.Tables["users"]
	if !ok {
		t.Fatal("expected users table in schema")
	}
	if len(users.Columns) != 3 {
		t.Fatalf("got %d columns, want 3", len(users.Columns))
	}
	if !users.Columns[0].PrimaryKey || !users.Columns[0].NotNull {
		t.Errorf("id column should be PK and implicitly NOT NULL: %+v", users.Columns[0])
	}
	if !users.Columns[1].NotNull {
		t.Errorf("name column should be NOT NULL: %+v", users.Columns[1])
	}
	if users.RowidAliasOrdinal() != 0 {
		t.Errorf("RowidAliasOrdinal = %d, want 0", users.RowidAliasOrdinal())
	}

	if len(users.Indexes) != 1 {
		t.Fatalf("expected 1 linked index, got %d", len(users.Indexes))
	}
	idx := users.Indexes[0]
	if !idx.Unique {
		t.Error("idx_users_name should be unique")
	}
	if len(idx.Columns) != 1 || idx.Columns[0].Name != "name" || !idx.Columns[0].Desc || idx.Columns[0].Collate != "NOCASE" {
		t.Errorf("unexpected index columns: %+v", idx.Columns)
	}

	if _, ok := s.Tables["sqlite_master"]; !ok {
		t.Error("expected synthetic sqlite_master entry")
	}
}

func TestParseCreateTableWithoutRowid(t *testing.T) {
	tbl := parseCreateTable("kv", 2, `CREATE TABLE kv (k TEXT PRIMARY KEY, v BLOB) WITHOUT ROWID`)
	if !tbl.WithoutRowid {
		t.Error("expected WithoutRowid = true")
	}
	if tbl.RowidAliasOrdinal() != -1 {
		t.Error("WITHOUT ROWID tables have no rowid alias")
	}
}

func TestParseCreateTableGUIDMerge(t *testing.T) {
	tbl := parseCreateTable("docs", 2, `CREATE TABLE docs (id__hi INTEGER, id__lo INTEGER, title TEXT)`)
	if len(tbl.GUIDMerges) != 1 {
		t.Fatalf("expected 1 GUID merge, got %d", len(tbl.GUIDMerges))
	}
	if tbl.PhysicalColumnCount <= len(tbl.Columns) {
		t.Errorf("PhysicalColumnCount (%d) should exceed logical Columns count (%d)",
			tbl.PhysicalColumnCount, len(tbl.Columns))
	}
	if tbl.Columns[0].Name != "id" || tbl.Columns[0].Type != "guid" {
		t.Errorf("expected merged logical column 'id' of type guid, got %+v", tbl.Columns[0])
	}
	if tbl.Columns[1].Name != "title" {
		t.Errorf("expected second logical column 'title', got %+v", tbl.Columns[1])
	}
}

func TestParseCreateTableSkipsTableLevelConstraints(t *testing.T) {
	tbl := parseCreateTable("orders", 2, `CREATE TABLE orders (
		id INTEGER,
		customer_id INTEGER,
		PRIMARY KEY (id),
		FOREIGN KEY (customer_id) REFERENCES customers(id)
	)`)
	if len(tbl.Columns) != 2 {
		t.Fatalf("expected 2 columns (constraints skipped), got %d: %+v", len(tbl.Columns), tbl.Columns)
	}
}

func TestScanCreateViewExtractsStructure(t *testing.T) {
	v := scanCreateView("active_users", `SELECT id, name AS display_name FROM users WHERE active = 1`)
	if v.SourceTable != "users" {
		t.Errorf("SourceTable = %q, want users", v.SourceTable)
	}
	if !v.HasWhere {
		t.Error("expected HasWhere = true")
	}
	if v.HasJoin {
		t.Error("expected HasJoin = false")
	}
	if v.HasStar {
		t.Error("expected HasStar = false")
	}
	if len(v.SelectItems) != 2 {
		t.Fatalf("expected 2 select items, got %d: %+v", len(v.SelectItems), v.SelectItems)
	}
	if v.SelectItems[1].DisplayName != "display_name" {
		t.Errorf("expected alias display_name, got %q", v.SelectItems[1].DisplayName)
	}
}

func TestScanCreateViewStarAndJoin(t *testing.T) {
	v := scanCreateView("joined", `SELECT * FROM a JOIN b ON a.id = b.a_id`)
	if !v.HasStar {
		t.Error("expected HasStar = true")
	}
	if !v.HasJoin {
		t.Error("expected HasJoin = true")
	}
}
