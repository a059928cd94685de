package schema

import (
	"github.com/sharqdb/sharq/lexer"
	"github.com/sharqdb/sharq/token"
)

// scanCreateView runs the Sharq tokenizer over a CREATE VIEW body to
// extract just enough structure for the query planner to reason about
// the view without fully parsing it: the first source table, the
// projected select-list items, and the presence of '*', JOIN, and WHERE.
func scanCreateView(name, sql string) *ViewInfo {
	v := &ViewInfo{Name: name, SQL: sql}

	lx := lexer.New(sql)
	var items []token.Item
	for {
		it := lx.Next()
		if it.Type == token.EOF {
			break
		}
		items = append(items, it)
	}

	selIdx := -1
	fromIdx := -1
	for i, it := range items {
		switch it.Type {
		case token.SELECT:
			if selIdx < 0 {
				selIdx = i
			}
		case token.FROM:
			if fromIdx < 0 {
				fromIdx = i
			}
		case token.JOIN:
			v.HasJoin = true
		case token.WHERE:
			v.HasWhere = true
		}
	}
	if selIdx < 0 {
		return v
	}

	listEnd := len(items)
	if fromIdx >= 0 {
		listEnd = fromIdx
	}
	v.SelectItems, v.HasStar = scanSelectItems(items[selIdx+1 : listEnd])

	if fromIdx >= 0 && fromIdx+1 < len(items) {
		if items[fromIdx+1].Type == token.IDENT {
			v.SourceTable = items[fromIdx+1].Value
		}
	}
	return v
}

// scanSelectItems splits a flat select-list token run on top-level
// commas (respecting paren depth) and derives a source/display name pair
// for each item: the display name is the text after AS if present,
// otherwise the last bare identifier in the item (matching unaliased
// "expr AS alias" / bare-column conventions).
func scanSelectItems(items []token.Item) ([]ViewSelectItem, bool) {
	var groups [][]token.Item
	depth := 0
	start := 0
	for i, it := range items {
		switch it.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		case token.COMMA:
			if depth == 0 {
				groups = append(groups, items[start:i])
				start = i + 1
			}
		}
	}
	groups = append(groups, items[start:])

	hasStar := false
	var out []ViewSelectItem
	for ord, g := range groups {
		if len(g) == 0 {
			continue
		}
		if len(g) == 1 && g[0].Type == token.ASTERISK {
			hasStar = true
			continue
		}
		sourceName := ""
		displayName := ""
		for i, it := range g {
			if it.Type == token.IDENT || it.Type == token.ASTERISK {
				if sourceName == "" {
					sourceName = it.Value
				}
				displayName = it.Value
			}
			if it.Type == token.AS && i+1 < len(g) {
				displayName = g[i+1].Value
			}
		}
		out = append(out, ViewSelectItem{SourceName: sourceName, DisplayName: displayName, Ordinal: ord})
	}
	return out, hasStar
}
