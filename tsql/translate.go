// Package tsql translates T-SQL dialect surface syntax into Sharq's own
// surface syntax, as a single span-based rewrite pass over the source
// text rather than a full parse.
package tsql

import "strings"

// stackBufSize256 is the inline buffer capacity for inputs small enough to
// avoid a heap allocation for the rewritten output.
const stackBufSize256 = 256

// tableHints is the fixed set of SQL Server table hints that a WITH (...)
// clause following a table reference is stripped for.
var tableHints = map[string]bool{
	"NOLOCK": true, "READUNCOMMITTED": true, "READCOMMITTED": true,
	"REPEATABLEREAD": true, "SERIALIZABLE": true, "HOLDLOCK": true,
	"UPDLOCK": true, "XLOCK": true, "TABLOCK": true, "TABLOCKX": true,
	"ROWLOCK": true, "PAGLOCK": true, "READPAST": true, "NOWAIT": true,
}

// spanKind classifies a contiguous run of the source text produced while
// scanning, so later passes know which runs are eligible for keyword
// matching and which must be copied through byte-for-byte.
type spanKind int

const (
	spanVerbatim spanKind = iota // whitespace, punctuation, string/comment/quoted-ident bodies
	spanWord                     // identifier or keyword run
	spanAt                       // @name reference (stored without the leading '@')
)

type span struct {
	kind spanKind
	text string
}

// Translate rewrites T-SQL dialect quirks into Sharq's surface syntax. It
// never alters the contents of string literals, quoted identifiers, or
// comments. If the rewrite would produce output byte-identical to the
// input, it returns the input string unchanged (no allocation) — this
// makes the pass idempotent and allocation-free on pure Sharq input.
func Translate(sql string) string {
	spans := scanSpans(sql)

	limitText, offsetText, spans := extractRowLimits(spans)
	spans = stripTableHints(spans)

	var stack [stackBufSize256]byte
	out := stack[:0]
	for _, s := range spans {
		switch s.kind {
		case spanAt:
			out = append(out, '$')
			out = append(out, s.text...)
		default:
			out = append(out, s.text...)
		}
	}

	if limitText != "" || offsetText != "" {
		out = appendRowLimit(out, limitText, offsetText)
	}

	if string(out) == sql {
		return sql
	}
	return string(out)
}

// scanSpans walks sql once, producing a flat list of spans. String
// literals (with '' escapes, including the N'...'/n'...' Unicode prefix,
// which is stripped here), quoted identifiers ("...", [...], `...`), and
// comments (--... and /* ... */) are each folded into a single verbatim
// span so that later passes never look inside them. Everything else is
// split into word runs (identifiers, keywords and digit runs, for
// keyword and number matching) and single-byte verbatim runs
// (punctuation, whitespace).
func scanSpans(sql string) []span {
	var spans []span
	i, n := 0, len(sql)
	for i < n {
		c := sql[i]
		switch {
		case c == '\'':
			j := scanStringLiteral(sql, i)
			spans = append(spans, span{spanVerbatim, sql[i:j]})
			i = j
		case (c == 'N' || c == 'n') && i+1 < n && sql[i+1] == '\'' && !precededByIdentByte(sql, i):
			j := scanStringLiteral(sql, i+1)
			spans = append(spans, span{spanVerbatim, sql[i+1 : j]})
			i = j
		case c == '"' || c == '`':
			j := scanQuoted(sql, i, c)
			spans = append(spans, span{spanVerbatim, sql[i:j]})
			i = j
		case c == '[':
			j := scanBracket(sql, i)
			spans = append(spans, span{spanVerbatim, sql[i:j]})
			i = j
		case c == '-' && i+1 < n && sql[i+1] == '-':
			j := i + 2
			for j < n && sql[j] != '\n' {
				j++
			}
			spans = append(spans, span{spanVerbatim, sql[i:j]})
			i = j
		case c == '/' && i+1 < n && sql[i+1] == '*':
			j := i + 2
			for j < n && !(sql[j] == '*' && j+1 < n && sql[j+1] == '/') {
				j++
			}
			if j < n {
				j += 2
			}
			spans = append(spans, span{spanVerbatim, sql[i:j]})
			i = j
		case c == '@':
			j := i + 1
			for j < n && isIdentByte(sql[j]) {
				j++
			}
			if j > i+1 {
				spans = append(spans, span{spanAt, sql[i+1 : j]})
				i = j
			} else {
				spans = append(spans, span{spanVerbatim, sql[i:i+1]})
				i++
			}
		case isIdentStartByte(c):
			j := i + 1
			for j < n && isIdentByte(sql[j]) {
				j++
			}
			spans = append(spans, span{spanWord, sql[i:j]})
			i = j
		case c >= '0' && c <= '9':
			j := i + 1
			for j < n && sql[j] >= '0' && sql[j] <= '9' {
				j++
			}
			spans = append(spans, span{spanWord, sql[i:j]})
			i = j
		default:
			spans = append(spans, span{spanVerbatim, sql[i : i+1]})
			i++
		}
	}
	return spans
}

func scanStringLiteral(sql string, start int) int {
	i, n := start+1, len(sql)
	for i < n {
		if sql[i] == '\'' {
			if i+1 < n && sql[i+1] == '\'' {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return n
}

func scanQuoted(sql string, start int, quote byte) int {
	i, n := start+1, len(sql)
	for i < n {
		if sql[i] == quote {
			if i+1 < n && sql[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return n
}

func scanBracket(sql string, start int) int {
	i, n := start+1, len(sql)
	for i < n {
		if sql[i] == ']' {
			return i + 1
		}
		i++
	}
	return n
}

func isIdentStartByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStartByte(c) || (c >= '0' && c <= '9')
}

func precededByIdentByte(sql string, i int) bool {
	return i > 0 && isIdentByte(sql[i-1])
}

func eqFold(s, kw string) bool {
	return strings.EqualFold(s, kw)
}

// isWordAt reports whether spans[i] is a word span equal (case-
// insensitively) to kw.
func isWordAt(spans []span, i int, kw string) bool {
	return i < len(spans) && spans[i].kind == spanWord && eqFold(spans[i].text, kw)
}

// skipVerbatim returns the next index at or after i that is not a purely
// whitespace verbatim span, letting the matchers ignore inter-token
// spacing when looking for a keyword sequence. Comment spans are not
// skipped.
func skipVerbatim(spans []span, i int) int {
	for i < len(spans) && spans[i].kind == spanVerbatim && isAllSpace(spans[i].text) {
		i++
	}
	return i
}

func isAllSpace(s string) bool {
	for _, c := range s {
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return false
		}
	}
	return true
}

// extractRowLimits removes a `TOP n` clause (bare integer, `(integer)`,
// or `(@param)`) appearing after SELECT/DISTINCT, and/or an
// `OFFSET n ROWS [FETCH {NEXT|FIRST} m {ROW|ROWS} [ONLY]]` clause, and
// returns their rewritten text (for TOP: the LIMIT argument; for OFFSET:
// both the OFFSET and FETCH arguments) alongside the span list with the
// matched spans removed. Either return string is empty when its clause
// was absent.
func extractRowLimits(spans []span) (limitText, offsetText string, out []span) {
	out = spans
	limitText, out = extractTop(out)
	offsetText, out = extractOffsetFetch(out)
	return limitText, offsetText, out
}

func extractTop(spans []span) (string, []span) {
	for i := 0; i < len(spans); i++ {
		if !isWordAt(spans, i, "TOP") {
			continue
		}
		j := skipVerbatim(spans, i+1)
		// TOP n
		if j < len(spans) && spans[j].kind == spanWord && isDigits(spans[j].text) {
			n := spans[j].text
			return n, removeRange(spans, i, absorbTrailingSpace(spans, j+1))
		}
		// TOP (n) or TOP (@param)
		if j < len(spans) && spans[j].kind == spanVerbatim && spans[j].text == "(" {
			k := skipVerbatim(spans, j+1)
			if k < len(spans) && (spans[k].kind == spanWord && isDigits(spans[k].text) || spans[k].kind == spanAt) {
				argText := spans[k].text
				if spans[k].kind == spanAt {
					argText = "$" + argText
				}
				m := skipVerbatim(spans, k+1)
				if m < len(spans) && spans[m].kind == spanVerbatim && spans[m].text == ")" {
					return argText, removeRange(spans, i, absorbTrailingSpace(spans, m+1))
				}
			}
		}
		return "", spans
	}
	return "", spans
}

func extractOffsetFetch(spans []span) (string, []span) {
	for i := 0; i < len(spans); i++ {
		if !isWordAt(spans, i, "OFFSET") {
			continue
		}
		j := skipVerbatim(spans, i+1)
		var offsetArg string
		if j < len(spans) && spans[j].kind == spanWord && isDigits(spans[j].text) {
			offsetArg = spans[j].text
		} else if j < len(spans) && spans[j].kind == spanAt {
			offsetArg = "$" + spans[j].text
		} else {
			continue
		}
		j = skipVerbatim(spans, j+1)
		if !isWordAt(spans, j, "ROW") && !isWordAt(spans, j, "ROWS") {
			continue
		}
		j = skipVerbatim(spans, j+1)

		end := j
		var fetchArg string
		if isWordAt(spans, j, "FETCH") {
			k := skipVerbatim(spans, j+1)
			if !isWordAt(spans, k, "NEXT") && !isWordAt(spans, k, "FIRST") {
				continue
			}
			k = skipVerbatim(spans, k+1)
			if k < len(spans) && spans[k].kind == spanWord && isDigits(spans[k].text) {
				fetchArg = spans[k].text
			} else if k < len(spans) && spans[k].kind == spanAt {
				fetchArg = "$" + spans[k].text
			} else {
				continue
			}
			k = skipVerbatim(spans, k+1)
			if !isWordAt(spans, k, "ROW") && !isWordAt(spans, k, "ROWS") {
				continue
			}
			k = skipVerbatim(spans, k+1)
			if isWordAt(spans, k, "ONLY") {
				k++
			}
			end = k
		}
		combined := offsetArg
		if fetchArg != "" {
			combined = fetchArg + "|" + offsetArg
		}
		from, to := i, absorbTrailingSpace(spans, end)
		if to == end && from > 0 && spans[from-1].kind == spanVerbatim && isAllSpace(spans[from-1].text) {
			from--
		}
		return combined, removeRange(spans, from, to)
	}
	return "", spans
}

// absorbTrailingSpace extends a removal range by one span when the span
// immediately after it is pure whitespace, so that deleting a clause
// that had both a leading and trailing separator leaves exactly one
// space behind rather than two.
func absorbTrailingSpace(spans []span, end int) int {
	if end < len(spans) && spans[end].kind == spanVerbatim && isAllSpace(spans[end].text) {
		return end + 1
	}
	return end
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func removeRange(spans []span, from, to int) []span {
	out := make([]span, 0, len(spans)-(to-from))
	out = append(out, spans[:from]...)
	out = append(out, spans[to:]...)
	return out
}

// stripTableHints removes a `WITH (hint, ...)` clause whenever the first
// hint inside the parens is in the fixed table-hint set, along with one
// preceding space. `WITH cte AS (...)` is left untouched because no
// opening parenthesis immediately follows a hint keyword there.
func stripTableHints(spans []span) []span {
	for i := 0; i < len(spans); i++ {
		if !isWordAt(spans, i, "WITH") {
			continue
		}
		j := skipVerbatim(spans, i+1)
		if j >= len(spans) || spans[j].kind != spanVerbatim || spans[j].text != "(" {
			continue
		}
		k := skipVerbatim(spans, j+1)
		if k >= len(spans) || spans[k].kind != spanWord || !tableHints[strings.ToUpper(spans[k].text)] {
			continue
		}
		end := k
		for end < len(spans) {
			if spans[end].kind == spanVerbatim && spans[end].text == ")" {
				end++
				break
			}
			end++
		}
		start := i
		if start > 0 && spans[start-1].kind == spanVerbatim && spans[start-1].text == " " {
			start--
		}
		spans = removeRange(spans, start, end)
		i = start - 1
	}
	return spans
}

// appendRowLimit injects the Sharq LIMIT/OFFSET clause that replaces a
// removed TOP or OFFSET/FETCH clause, placing it before a trailing
// semicolon if present.
func appendRowLimit(out []byte, limitText, offsetText string) []byte {
	trimmed := strings.TrimRight(string(out), " \t\r\n")
	suffix := out[len(trimmed):]
	hasSemi := strings.HasSuffix(trimmed, ";")
	body := trimmed
	if hasSemi {
		body = trimmed[:len(trimmed)-1]
	}

	var clause strings.Builder
	if limitText != "" {
		clause.WriteString(" LIMIT ")
		clause.WriteString(limitText)
	}
	if offsetText != "" {
		fetchArg, offsetArg := "", offsetText
		if idx := strings.IndexByte(offsetText, '|'); idx >= 0 {
			fetchArg, offsetArg = offsetText[:idx], offsetText[idx+1:]
		}
		if fetchArg != "" {
			clause.WriteString(" LIMIT ")
			clause.WriteString(fetchArg)
		}
		clause.WriteString(" OFFSET ")
		clause.WriteString(offsetArg)
	}

	result := body + clause.String()
	if hasSemi {
		result += ";"
	}
	return append([]byte(result), suffix...)
}
