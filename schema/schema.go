// Package schema reads the sqlite_schema table-b-tree (page 1) and
// parses the CREATE TABLE/INDEX/VIEW text it contains into structured
// metadata, without depending on the full Sharq statement parser.
package schema

import (
	"strings"

	"github.com/sharqdb/sharq/page"
	"github.com/sharqdb/sharq/record"
)

// ColumnInfo describes one logical column of a table.
type ColumnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
	Ordinal    int // logical ordinal, into Columns
}

// GUIDMerge records that two adjacent physical Integral columns (named
// "<base>__hi" and "<base>__lo") were merged into a single logical GUID
// column.
type GUIDMerge struct {
	LogicalName    string
	HiOrdinal      int // physical ordinal of the __hi half
	LoOrdinal      int // physical ordinal of the __lo half
	LogicalOrdinal int // ordinal of the merged column within Columns
}

// TableInfo describes one table parsed from a CREATE TABLE statement.
type TableInfo struct {
	Name                string
	RootPage            uint32
	SQL                 string
	Columns             []ColumnInfo
	WithoutRowid        bool
	PhysicalColumnCount int // > len(Columns) when GUIDMerges is non-empty
	GUIDMerges          []GUIDMerge
	Indexes             []*IndexInfo
}

// RowidAliasOrdinal returns the logical ordinal of the column declared
// INTEGER PRIMARY KEY (whose record-stored value is always NULL and
// must come from the b-tree rowid instead), or -1 if there is none or
// the table is WITHOUT ROWID.
func (t *TableInfo) RowidAliasOrdinal() int {
	if t.WithoutRowid {
		return -1
	}
	for _, c := range t.Columns {
		if c.PrimaryKey && strings.EqualFold(c.Type, "integer") {
			return c.Ordinal
		}
	}
	return -1
}

// IndexColumnInfo describes one column of an index's key.
type IndexColumnInfo struct {
	Name    string
	Collate string
	Desc    bool
}

// IndexInfo describes one index parsed from a CREATE INDEX statement.
type IndexInfo struct {
	Name      string
	TableName string
	RootPage  uint32
	SQL       string
	Unique    bool
	Columns   []IndexColumnInfo
}

// ViewSelectItem is one projected item of a view's SELECT list.
type ViewSelectItem struct {
	SourceName  string
	DisplayName string
	Ordinal     int
}

// ViewInfo describes one view parsed from a CREATE VIEW statement.
type ViewInfo struct {
	Name        string
	SQL         string
	SourceTable string
	SelectItems []ViewSelectItem
	HasStar     bool
	HasJoin     bool
	HasWhere    bool
}

// Schema is the fully ingested set of tables, indexes, and views from
// one database's sqlite_schema table.
type Schema struct {
	Tables  map[string]*TableInfo
	Indexes map[string]*IndexInfo
	Views   map[string]*ViewInfo
}

// schemaRootPage is the fixed page number of the sqlite_schema b-tree.
const schemaRootPage = 1

// sqliteMasterRootPage matches the physical sqlite_schema root page; the
// synthetic sqlite_master entry lets query plans reference the schema
// itself by its legacy name.
const sqliteMasterRootPage = 1

// Read walks the sqlite_schema table b-tree via src and returns the
// ingested Schema. Index ingestion runs before linking so that indexes
// can be attached to their owning TableInfo by case-insensitive name
// match; a synthetic sqlite_master entry is prepended covering the
// schema table itself.
func Read(src page.PageSource) (*Schema, error) {
	s := &Schema{
		Tables:  make(map[string]*TableInfo),
		Indexes: make(map[string]*IndexInfo),
		Views:   make(map[string]*ViewInfo),
	}
	s.Tables["sqlite_master"] = &TableInfo{
		Name:     "sqlite_master",
		RootPage: sqliteMasterRootPage,
		Columns: []ColumnInfo{
			{Name: "type", Type: "text", Ordinal: 0},
			{Name: "name", Type: "text", Ordinal: 1},
			{Name: "tbl_name", Type: "text", Ordinal: 2},
			{Name: "rootpage", Type: "integer", Ordinal: 3},
			{Name: "sql", Type: "text", Ordinal: 4},
		},
	}

	cursor := page.NewCursor(src)
	err := cursor.WalkTable(schemaRootPage, func(rowid int64, payload []byte) error {
		vals := record.DecodeRecord(payload)
		if len(vals) < 5 {
			return nil
		}
		typ, _ := vals[0].AsString()
		name, _ := vals[1].AsString()
		tblName, _ := vals[2].AsString()
		rootPage, _ := vals[3].AsInt64()
		sql, _ := vals[4].AsString()

		switch typ {
		case "table":
			s.Tables[name] = parseCreateTable(name, uint32(rootPage), sql)
		case "index":
			idx := parseCreateIndex(name, tblName, uint32(rootPage), sql)
			s.Indexes[name] = idx
		case "view":
			s.Views[name] = scanCreateView(name, sql)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, idx := range s.Indexes {
		for tname, tbl := range s.Tables {
			if strings.EqualFold(tname, idx.TableName) {
				tbl.Indexes = append(tbl.Indexes, idx)
				break
			}
		}
	}
	return s, nil
}
