package sharq_test

import (
	"testing"

	"github.com/sharqdb/sharq"
	"github.com/sharqdb/sharq/ast"
)

func TestParseAndString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SELECT id, name FROM users WHERE id = 1", "SELECT id, name FROM users WHERE id = 1"},
		{"SELECT * FROM users JOIN orders ON users.id = orders.user_id", "SELECT * FROM users JOIN orders ON users.id = orders.user_id"},
		{"SELECT id FROM a UNION SELECT id FROM b", "SELECT id FROM a UNION SELECT id FROM b"},
		{"SELECT users |> orders FROM users", "SELECT users |> orders FROM users"},
		{"SELECT * FROM users WHERE id = users:42", "SELECT * FROM users WHERE id = users:42"},
		{"SELECT * FROM users WHERE id = $uid", "SELECT * FROM users WHERE id = $uid"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			stmt, err := sharq.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			got := sharq.String(stmt)
			if got != tt.want {
				t.Errorf("String mismatch:\n got:  %s\n want: %s", got, tt.want)
			}
		})
	}
}

func TestWalkFindsColumns(t *testing.T) {
	stmt, err := sharq.Parse("SELECT id, name FROM users WHERE age > 18")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	var names []string
	sharq.Walk(stmt, func(n ast.Node) bool {
		if col, ok := n.(*ast.ColName); ok {
			names = append(names, col.Parts[len(col.Parts)-1])
		}
		return true
	})
	want := map[string]bool{"id": true, "name": true, "age": true}
	if len(names) != len(want) {
		t.Fatalf("expected %d columns, got %d: %v", len(want), len(names), names)
	}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected column %q in %v", n, names)
		}
	}
}

func TestRewriteRenamesTable(t *testing.T) {
	stmt, err := sharq.Parse("SELECT id FROM users")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	rewritten := sharq.Rewrite(stmt, func(n ast.Node) ast.Node {
		if tn, ok := n.(*ast.TableName); ok && tn.Name() == "users" {
			tn.Parts[len(tn.Parts)-1] = "accounts"
		}
		return n
	})
	got := sharq.String(rewritten)
	want := "SELECT id FROM accounts"
	if got != want {
		t.Errorf("rewrite mismatch:\n got:  %s\n want: %s", got, want)
	}
}

func TestTranslateTSQLThenParse(t *testing.T) {
	sql := sharq.TranslateTSQL("SELECT TOP 5 name FROM users WHERE id = @uid")
	stmt, err := sharq.Parse(sql)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", sql, err)
	}
	sel, ok := stmt.(*ast.SelectStmt)
	if !ok {
		t.Fatalf("expected SelectStmt, got %T", stmt)
	}
	if sel.Limit == nil || sel.Limit.Count == nil {
		t.Fatal("expected TOP 5 to translate into a LIMIT clause")
	}
}

func TestCompile(t *testing.T) {
	stmt, err := sharq.Parse("SELECT id, name FROM users WHERE age > 18 LIMIT 10")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	intent, err := sharq.Compile(stmt)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if intent.Table != "users" {
		t.Errorf("expected table users, got %q", intent.Table)
	}
	if len(intent.Columns) != 2 {
		t.Errorf("expected 2 projected columns, got %d", len(intent.Columns))
	}
	if intent.Limit == nil || *intent.Limit != 10 {
		t.Errorf("expected limit 10, got %v", intent.Limit)
	}
}

func TestCompilePlanCompound(t *testing.T) {
	stmt, err := sharq.Parse("SELECT id FROM a UNION SELECT id FROM b")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	plan, err := sharq.CompilePlan(stmt)
	if err != nil {
		t.Fatalf("CompilePlan error: %v", err)
	}
	if plan.Leaf != nil {
		t.Fatal("expected a compound plan, not a leaf plan")
	}
	if plan.Left == nil || plan.Right == nil {
		t.Fatal("expected both arms of the compound plan to be populated")
	}
}

func TestRepool(t *testing.T) {
	stmt, err := sharq.Parse("SELECT id FROM users")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	// Repool must not panic on a freshly parsed statement.
	sharq.Repool(stmt)
}
