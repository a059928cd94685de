package schema

import (
	"strings"
)

// parseCreateTable scans CREATE TABLE text into a TableInfo using a
// dependency-free character scanner: it never invokes the full Sharq
// parser, since DDL text only needs column names/types/constraints, not
// a full expression grammar.
func parseCreateTable(name string, rootPage uint32, sql string) *TableInfo {
	t := &TableInfo{Name: name, RootPage: rootPage, SQL: sql}

	open := strings.IndexByte(sql, '(')
	if open < 0 {
		return t
	}
	closeIdx := matchingParen(sql, open)
	if closeIdx < 0 {
		closeIdx = len(sql)
	}
	body := sql[open+1 : closeIdx]
	tail := sql[closeIdx+1:]
	if strings.Contains(strings.ToUpper(tail), "WITHOUT ROWID") {
		t.WithoutRowid = true
	}

	physical := 0
	for _, seg := range splitSegments(body) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if isTableConstraintSegment(seg) {
			continue
		}
		col, ok := parseColumnDef(seg, physical)
		if !ok {
			continue
		}
		t.Columns = append(t.Columns, col)
		physical++
	}
	t.PhysicalColumnCount = physical
	mergeGUIDColumns(t)
	return t
}

// isTableConstraintSegment reports whether seg is a table-level
// constraint clause rather than a column definition.
func isTableConstraintSegment(seg string) bool {
	upper := strings.ToUpper(seg)
	prefixes := []string{"PRIMARY KEY", "UNIQUE", "CHECK", "FOREIGN KEY", "CONSTRAINT "}
	for _, p := range prefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

// parseColumnDef scans one column-definition segment: identifier, type
// name (including parenthesized arguments), then a case-insensitive scan
// of the remainder for PRIMARY KEY and NOT NULL.
func parseColumnDef(seg string, ordinal int) (ColumnInfo, bool) {
	pos := 0
	name, pos := scanIdentifier(seg, pos)
	if name == "" {
		return ColumnInfo{}, false
	}
	typeName, pos := scanTypeName(seg, pos)

	rest := strings.ToUpper(seg[pos:])
	primaryKey := strings.Contains(rest, "PRIMARY KEY")
	notNull := primaryKey || strings.Contains(rest, "NOT NULL")

	return ColumnInfo{
		Name:       name,
		Type:       typeName,
		NotNull:    notNull,
		PrimaryKey: primaryKey,
		Ordinal:    ordinal,
	}, true
}

// scanIdentifier reads a possibly-quoted identifier starting at pos,
// returning the unquoted name and the position just past it.
func scanIdentifier(s string, pos int) (string, int) {
	pos = skipSpace(s, pos)
	if pos >= len(s) {
		return "", pos
	}
	switch s[pos] {
	case '"', '`':
		quote := s[pos]
		end := strings.IndexByte(s[pos+1:], quote)
		if end < 0 {
			return "", len(s)
		}
		return s[pos+1 : pos+1+end], pos + 1 + end + 1
	case '[':
		end := strings.IndexByte(s[pos+1:], ']')
		if end < 0 {
			return "", len(s)
		}
		return s[pos+1 : pos+1+end], pos + 1 + end + 1
	default:
		start := pos
		for pos < len(s) && isIdentChar(s[pos]) {
			pos++
		}
		return s[start:pos], pos
	}
}

// scanTypeName reads a type name (e.g. VARCHAR, INTEGER) optionally
// followed by parenthesized arguments (e.g. (255) or (10,2)).
func scanTypeName(s string, pos int) (string, int) {
	pos = skipSpace(s, pos)
	start := pos
	for pos < len(s) && (isIdentChar(s[pos]) || s[pos] == ' ') {
		// Allow multi-word types like "DOUBLE PRECISION" but stop before a
		// following constraint keyword by checking word boundaries lazily:
		// we only continue past a space if the next word is not itself a
		// known constraint starter.
		if s[pos] == ' ' {
			next, _ := scanIdentifier(s, pos+1)
			upperNext := strings.ToUpper(next)
			if upperNext == "PRIMARY" || upperNext == "NOT" || upperNext == "NULL" ||
				upperNext == "UNIQUE" || upperNext == "DEFAULT" || upperNext == "REFERENCES" ||
				upperNext == "CHECK" || upperNext == "COLLATE" || upperNext == "GENERATED" || upperNext == "AS" {
				break
			}
		}
		pos++
	}
	typeName := strings.TrimSpace(s[start:pos])
	pos = skipSpace(s, pos)
	if pos < len(s) && s[pos] == '(' {
		end := matchingParen(s, pos)
		if end < 0 {
			end = len(s)
		} else {
			end++
		}
		typeName += s[pos:end]
		pos = end
	}
	return typeName, pos
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t' || s[pos] == '\n' || s[pos] == '\r') {
		pos++
	}
	return pos
}

// matchingParen returns the index of the ')' matching the '(' at open,
// respecting nested parens and single-quoted strings (so a comma or
// paren inside a string literal default value doesn't confuse the
// scanner). Returns -1 if unmatched.
func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\'':
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return -1
			}
			i += end + 1
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitSegments splits body on top-level commas, respecting paren depth
// and single-quoted strings.
func splitSegments(body string) []string {
	var segs []string
	depth := 0
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\'':
			end := strings.IndexByte(body[i+1:], '\'')
			if end < 0 {
				i = len(body)
			} else {
				i += end + 1
			}
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				segs = append(segs, body[start:i])
				start = i + 1
			}
		}
	}
	segs = append(segs, body[start:])
	return segs
}

// mergeGUIDColumns folds adjacent "<base>__hi"/"<base>__lo" Integral
// column pairs into a single logical GUID column, recording the physical
// ordinals in a GUIDMerge and leaving PhysicalColumnCount greater than
// len(Columns).
func mergeGUIDColumns(t *TableInfo) {
	var merged []ColumnInfo
	var merges []GUIDMerge
	cols := t.Columns
	for i := 0; i < len(cols); i++ {
		if i+1 < len(cols) && isIntegralType(cols[i].Type) && isIntegralType(cols[i+1].Type) {
			hiName, hiBase, hiOK := splitGUIDHalf(cols[i].Name, "__hi")
			loName, loBase, loOK := splitGUIDHalf(cols[i+1].Name, "__lo")
			if hiOK && loOK && strings.EqualFold(hiBase, loBase) {
				logical := ColumnInfo{
					Name:       hiBase,
					Type:       "guid",
					NotNull:    cols[i].NotNull && cols[i+1].NotNull,
					PrimaryKey: false,
					Ordinal:    len(merged),
				}
				merged = append(merged, logical)
				merges = append(merges, GUIDMerge{
					LogicalName:    hiBase,
					HiOrdinal:      cols[i].Ordinal,
					LoOrdinal:      cols[i+1].Ordinal,
					LogicalOrdinal: logical.Ordinal,
				})
				_ = hiName
				_ = loName
				i++
				continue
			}
		}
		c := cols[i]
		c.Ordinal = len(merged)
		merged = append(merged, c)
	}
	if len(merges) > 0 {
		t.Columns = merged
		t.GUIDMerges = merges
	}
}

func isIntegralType(typeName string) bool {
	u := strings.ToUpper(typeName)
	return strings.HasPrefix(u, "INT")
}

func splitGUIDHalf(name, suffix string) (full, base string, ok bool) {
	if strings.HasSuffix(strings.ToLower(name), suffix) {
		return name, name[:len(name)-len(suffix)], true
	}
	return "", "", false
}

// parseCreateIndex scans CREATE [UNIQUE] INDEX text into an IndexInfo.
func parseCreateIndex(name, tableName string, rootPage uint32, sql string) *IndexInfo {
	idx := &IndexInfo{Name: name, TableName: tableName, RootPage: rootPage, SQL: sql}
	upper := strings.ToUpper(sql)
	if i := strings.Index(upper, "INDEX"); i >= 0 {
		idx.Unique = strings.Contains(upper[:i], "UNIQUE")
	}

	open := strings.IndexByte(sql, '(')
	if open < 0 {
		return idx
	}
	closeIdx := matchingParen(sql, open)
	if closeIdx < 0 {
		closeIdx = len(sql)
	}
	body := sql[open+1 : closeIdx]
	for _, seg := range splitSegments(body) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		col := parseIndexColumn(seg)
		idx.Columns = append(idx.Columns, col)
	}
	return idx
}

func parseIndexColumn(seg string) IndexColumnInfo {
	name, pos := scanIdentifier(seg, 0)
	col := IndexColumnInfo{Name: name}
	rest := seg[pos:]
	upperRest := strings.ToUpper(rest)
	if i := strings.Index(upperRest, "COLLATE"); i >= 0 {
		collName, _ := scanIdentifier(rest, i+len("COLLATE"))
		col.Collate = collName
	}
	trimmed := strings.TrimSpace(upperRest)
	if strings.HasSuffix(trimmed, "DESC") {
		col.Desc = true
	}
	return col
}

