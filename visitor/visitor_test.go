package visitor_test

import (
	"testing"

	"github.com/sharqdb/sharq/ast"
	"github.com/sharqdb/sharq/parser"
	"github.com/sharqdb/sharq/token"
	"github.com/sharqdb/sharq/visitor"
)

func mustParse(t *testing.T, input string) ast.Statement {
	t.Helper()
	p := parser.New(input)
	stmt, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", input, err)
	}
	return stmt
}

func TestWalkCompoundSelect(t *testing.T) {
	stmt := mustParse(t, "SELECT id FROM a UNION SELECT id FROM b ORDER BY id LIMIT 5")
	var selects, colNames, limits int
	visitor.WalkFunc(stmt, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.SelectStmt:
			selects++
		case *ast.ColName:
			colNames++
		case *ast.Literal:
			limits++
		}
		return true
	})
	if selects != 2 {
		t.Errorf("expected 2 SelectStmt arms visited, got %d", selects)
	}
	if colNames == 0 {
		t.Error("expected at least one ColName visited")
	}
	if limits == 0 {
		t.Error("expected the LIMIT literal to be visited")
	}
}

func TestWalkArrowExpr(t *testing.T) {
	stmt := mustParse(t, "SELECT users |> orders <| items FROM users")
	sel := stmt.(*ast.SelectStmt)
	ae := sel.Columns[0].(*ast.AliasedExpr)
	chain := ae.Expr.(*ast.ArrowExpr)
	var steps int
	visitor.WalkFunc(chain, func(n ast.Node) bool {
		if _, ok := n.(*ast.ColName); ok {
			steps++
		}
		return true
	})
	// base + 2 steps = 3 ColName nodes
	if steps != 3 {
		t.Errorf("expected 3 ColName nodes in the arrow chain, got %d", steps)
	}
}

func TestWalkRecordIDLit(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM users WHERE id = users:42")
	var gotLiteral bool
	visitor.WalkFunc(stmt, func(n ast.Node) bool {
		if l, ok := n.(*ast.Literal); ok && l.Value == "42" {
			gotLiteral = true
		}
		return true
	})
	if !gotLiteral {
		t.Error("expected the record-id's literal to be walked")
	}
}

func TestWalkParamHasNoChildren(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM users WHERE id = ?")
	var visited int
	visitor.WalkFunc(stmt, func(n ast.Node) bool {
		if _, ok := n.(*ast.Param); ok {
			visited++
		}
		return true
	})
	if visited != 1 {
		t.Errorf("expected the Param node itself to be visited once, got %d", visited)
	}
}

func TestWalkStopsOnFalse(t *testing.T) {
	stmt := mustParse(t, "SELECT a, b FROM t WHERE a = 1")
	var visited int
	visitor.WalkFunc(stmt, func(n ast.Node) bool {
		visited++
		if _, ok := n.(*ast.SelectStmt); ok {
			return false
		}
		return true
	})
	if visited != 1 {
		t.Errorf("expected traversal to stop after the root SelectStmt, got %d visits", visited)
	}
}

func TestWalkValuesStmt(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM (VALUES (1, 2), (3, 4)) AS t")
	var ints int
	visitor.WalkFunc(stmt, func(n ast.Node) bool {
		if l, ok := n.(*ast.Literal); ok && l.Type == ast.LiteralInt {
			ints++
		}
		return true
	})
	if ints != 4 {
		t.Errorf("expected 4 integer literals walked from the VALUES rows, got %d", ints)
	}
}

// TestWalkArrowExprDirect exercises the *ast.ArrowExpr case with a
// hand-built node covering all three edge operators, rather than
// relying on the parser to produce one.
func TestWalkArrowExprDirect(t *testing.T) {
	chain := &ast.ArrowExpr{
		Base: &ast.ColName{Parts: []string{"a"}},
		Steps: []*ast.ArrowStep{
			{Op: token.EDGEFWD, Target: &ast.ColName{Parts: []string{"b"}}},
			{Op: token.EDGEBACK, Target: &ast.ColName{Parts: []string{"c"}}},
			{Op: token.EDGEBI, Target: &ast.ColName{Parts: []string{"d"}}},
		},
	}
	var names []string
	visitor.WalkFunc(chain, func(n ast.Node) bool {
		if cn, ok := n.(*ast.ColName); ok {
			names = append(names, cn.Parts[0])
		}
		return true
	})
	if len(names) != 4 {
		t.Fatalf("expected 4 ColName nodes (base + 3 steps), got %d: %v", len(names), names)
	}
}
