package tsql

import "testing"

func TestTranslateAtParam(t *testing.T) {
	got := Translate("SELECT * FROM users WHERE id = @uid")
	want := "SELECT * FROM users WHERE id = $uid"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTranslateUnicodeStringPrefix(t *testing.T) {
	got := Translate("SELECT N'hello' FROM t")
	want := "SELECT 'hello' FROM t"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	got = Translate("SELECT n'hello' FROM t")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTranslateTopToLimit(t *testing.T) {
	tests := []struct{ input, want string }{
		{"SELECT TOP 5 name FROM users", "SELECT name FROM users LIMIT 5"},
		{"SELECT TOP 5 name FROM users;", "SELECT name FROM users LIMIT 5;"},
		{"SELECT DISTINCT TOP 5 name FROM users", "SELECT DISTINCT name FROM users LIMIT 5"},
		{"SELECT TOP (5) name FROM users", "SELECT name FROM users LIMIT 5"},
		{"SELECT TOP (@n) name FROM users", "SELECT name FROM users LIMIT $n"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Translate(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranslateOffsetFetch(t *testing.T) {
	input := "SELECT name FROM users ORDER BY id OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY"
	want := "SELECT name FROM users ORDER BY id LIMIT 5 OFFSET 10"
	if got := Translate(input); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTranslateTableHintStripped(t *testing.T) {
	input := "SELECT name FROM users WITH (NOLOCK) WHERE id = 1"
	want := "SELECT name FROM users WHERE id = 1"
	if got := Translate(input); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// TestTranslateCTEUnaffected confirms that a WITH cte AS (...) clause is
// never mistaken for a table-hint WITH, since no hint keyword follows its
// opening paren.
func TestTranslateCTEUnaffected(t *testing.T) {
	input := "WITH recent AS (SELECT id FROM users) SELECT * FROM recent"
	if got := Translate(input); got != input {
		t.Errorf("got %q, want input unchanged %q", got, input)
	}
}

func TestTranslateCombinedExample(t *testing.T) {
	input := "SELECT TOP 5 name FROM users WITH (NOLOCK) WHERE id = @uid"
	want := "SELECT name FROM users WHERE id = $uid LIMIT 5"
	if got := Translate(input); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTranslateIdempotentOnSharqInput(t *testing.T) {
	input := "SELECT name FROM users WHERE id = $uid LIMIT 5"
	if got := Translate(input); got != input {
		t.Errorf("expected identity translation, got %q", got)
	}
}

func TestTranslateIgnoresStringContents(t *testing.T) {
	input := "SELECT * FROM logs WHERE msg = 'uses @name and TOP 5'"
	if got := Translate(input); got != input {
		t.Errorf("expected string contents untouched, got %q", got)
	}
}

func TestTranslateIgnoresComments(t *testing.T) {
	input := "-- uses @name and TOP 5\nSELECT * FROM t"
	if got := Translate(input); got != input {
		t.Errorf("expected comment untouched, got %q", got)
	}
}
