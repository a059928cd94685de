package format_test

import (
	"testing"

	"github.com/sharqdb/sharq/ast"
	"github.com/sharqdb/sharq/format"
	"github.com/sharqdb/sharq/parser"
	"github.com/sharqdb/sharq/token"
)

// parseAndFormat is the round-trip helper used throughout this file:
// parse input, format the result, and return the output string.
func parseAndFormat(t *testing.T, input string) string {
	t.Helper()
	p := parser.New(input)
	stmt, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", input, err)
	}
	return format.String(stmt)
}

func TestFormatCompoundSelect(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SELECT id FROM a UNION SELECT id FROM b", "SELECT id FROM a UNION SELECT id FROM b"},
		{"SELECT id FROM a UNION ALL SELECT id FROM b", "SELECT id FROM a UNION ALL SELECT id FROM b"},
		{"SELECT id FROM a |u SELECT id FROM b", "SELECT id FROM a UNION SELECT id FROM b"},
		{"SELECT id FROM a |n SELECT id FROM b", "SELECT id FROM a INTERSECT SELECT id FROM b"},
		{"SELECT id FROM a |x SELECT id FROM b", "SELECT id FROM a EXCEPT SELECT id FROM b"},
		{
			"SELECT id FROM a UNION SELECT id FROM b ORDER BY id LIMIT 5",
			"SELECT id FROM a UNION SELECT id FROM b ORDER BY id LIMIT 5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAndFormat(t, tt.input)
			if got != tt.want {
				t.Errorf("format mismatch:\n got:  %s\n want: %s", got, tt.want)
			}
		})
	}
}

func TestFormatArrowExpr(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SELECT users |> orders FROM users", "SELECT users |> orders FROM users"},
		{"SELECT users <| orders FROM users", "SELECT users <| orders FROM users"},
		{"SELECT users <|> orders FROM users", "SELECT users <|> orders FROM users"},
		{"SELECT users |> orders <| items FROM users", "SELECT users |> orders <| items FROM users"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAndFormat(t, tt.input)
			if got != tt.want {
				t.Errorf("format mismatch:\n got:  %s\n want: %s", got, tt.want)
			}
		})
	}
}

func TestFormatRecordIDLit(t *testing.T) {
	got := parseAndFormat(t, "SELECT * FROM users WHERE id = users:42")
	want := "SELECT * FROM users WHERE id = users:42"
	if got != want {
		t.Errorf("format mismatch:\n got:  %s\n want: %s", got, want)
	}
}

func TestFormatParam(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SELECT * FROM users WHERE id = ?", "SELECT * FROM users WHERE id = ?"},
		{"SELECT * FROM users WHERE id = $user_id", "SELECT * FROM users WHERE id = $user_id"},
		{"SELECT * FROM users WHERE id = @user_id", "SELECT * FROM users WHERE id = @user_id"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAndFormat(t, tt.input)
			if got != tt.want {
				t.Errorf("format mismatch:\n got:  %s\n want: %s", got, tt.want)
			}
		})
	}
}

func TestFormatExecutionHint(t *testing.T) {
	tests := []string{"DIRECT", "CACHED", "JIT"}
	for _, kw := range tests {
		t.Run(kw, func(t *testing.T) {
			input := "SELECT " + kw + " * FROM users"
			got := parseAndFormat(t, input)
			if got != input {
				t.Errorf("format mismatch:\n got:  %s\n want: %s", got, input)
			}
		})
	}
}

func TestFormatWindowFrame(t *testing.T) {
	tests := []string{
		"SELECT SUM(x) OVER (ORDER BY id ROWS UNBOUNDED PRECEDING) FROM t",
		"SELECT SUM(x) OVER (ORDER BY id ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW) FROM t",
		"SELECT SUM(x) OVER (ORDER BY id ROWS BETWEEN 1 PRECEDING AND 1 FOLLOWING) FROM t",
		"SELECT SUM(x) OVER (PARTITION BY g ORDER BY id RANGE BETWEEN CURRENT ROW AND UNBOUNDED FOLLOWING) FROM t",
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			got := parseAndFormat(t, input)
			if got != input {
				t.Errorf("format mismatch:\n got:  %s\n want: %s", got, input)
			}
		})
	}
}

// TestFormatParamQuestionDirect constructs a Param AST node directly
// rather than through the parser, since a bare "?" outside of any
// enclosing comparison still needs to format correctly on its own.
func TestFormatParamQuestionDirect(t *testing.T) {
	p := &ast.Param{Type: ast.ParamQuestion, Index: 0}
	if got := format.String(p); got != "?" {
		t.Errorf("expected ?, got %q", got)
	}
}

// TestFormatRecordIDLitDirect exercises formatRecordIDLit against a
// hand-built node with a quoted-identifier table name, which the
// parser round-trip in TestFormatRecordIDLit doesn't cover.
func TestFormatRecordIDLitDirect(t *testing.T) {
	r := &ast.RecordIDLit{
		Table: "my table",
		ID:    &ast.Literal{Type: ast.LiteralInt, Value: "7"},
	}
	want := `"my table":7`
	if got := format.String(r); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

// TestFormatArrowExprDirect exercises all three edge operators via a
// hand-built chain so each token.Token -> operator text mapping is
// checked directly against format output, not just parser round-trips.
func TestFormatArrowExprDirect(t *testing.T) {
	base := &ast.ColName{Parts: []string{"users"}}
	chain := &ast.ArrowExpr{
		Base: base,
		Steps: []*ast.ArrowStep{
			{Op: token.EDGEFWD, Target: &ast.ColName{Parts: []string{"orders"}}},
			{Op: token.EDGEBACK, Target: &ast.ColName{Parts: []string{"items"}}},
			{Op: token.EDGEBI, Target: &ast.ColName{Parts: []string{"tags"}}},
		},
	}
	want := "users |> orders <| items <|> tags"
	if got := format.String(chain); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
