package record

// Op is a comparison operator usable in a Filter.
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// FilterValue is the literal operand of a Filter comparison.
type FilterValue struct {
	Kind  Class // Null, Integral, Real, or Text (Blob/UniqueID filters are not supported)
	Int   int64
	Float float64
	Text  string
}

// IntFilterValue builds an integer FilterValue.
func IntFilterValue(v int64) FilterValue { return FilterValue{Kind: Integral, Int: v} }

// FloatFilterValue builds a real FilterValue.
func FloatFilterValue(v float64) FilterValue { return FilterValue{Kind: Real, Float: v} }

// TextFilterValue builds a text FilterValue.
func TextFilterValue(v string) FilterValue { return FilterValue{Kind: Text, Text: v} }

// Filter is one leg of an AND-of-predicates list evaluated directly
// against a record's raw bytes by Matches, without materializing
// ColumnValues for columns the filter list doesn't reference.
type Filter struct {
	Ordinal int
	Op      Op
	Value   FilterValue
}

// Matches evaluates an AND of filters directly against payload. rowid is
// the row's integer key (from the b-tree cell); rowidAliasOrdinal, if
// >= 0, names the column declared INTEGER PRIMARY KEY, whose stored
// value is always NULL and must be substituted with rowid before
// comparison (SQLite's rowid-alias contract). Pass -1 for tables with no
// rowid alias.
//
// Filters are ANDed; an empty filter list matches every row. A filter
// whose column is NULL never matches (three-valued SQL comparison
// semantics: NULL compared to anything is unknown, treated as false
// here). A filter comparing a TEXT column against a non-TEXT value (or
// vice versa) never matches — no implicit coercion between text and
// non-text storage classes.
func Matches(payload []byte, filters []Filter, rowid int64, rowidAliasOrdinal int) bool {
	if len(filters) == 0 {
		return true
	}
	var stack [stackColumns]int64
	_, bodyOffset, serialTypes := ReadSerialTypes(payload, stack[:0])
	for _, f := range filters {
		var v ColumnValue
		if f.Ordinal == rowidAliasOrdinal {
			v = ColumnValue{Class: Integral, Int: rowid}
		} else {
			v = DecodeColumnAt(payload, serialTypes, bodyOffset, f.Ordinal)
		}
		if !matchOne(v, f.Op, f.Value) {
			return false
		}
	}
	return true
}

func matchOne(v ColumnValue, op Op, want FilterValue) bool {
	if v.Class == Null {
		return false
	}
	switch {
	case v.Class == Text || want.Kind == Text:
		if v.Class != Text || want.Kind != Text {
			return false
		}
		s, _ := v.AsString()
		return compareText(s, want.Text, op)
	case v.Class == Integral || v.Class == Real:
		if want.Kind != Integral && want.Kind != Real {
			return false
		}
		var lhs float64
		if v.Class == Integral {
			lhs = float64(v.Int)
		} else {
			lhs = v.Float
		}
		var rhs float64
		if want.Kind == Integral {
			rhs = float64(want.Int)
		} else {
			rhs = want.Float
		}
		return compareNumeric(lhs, rhs, op)
	default:
		return false
	}
}

func compareNumeric(lhs, rhs float64, op Op) bool {
	switch op {
	case Eq:
		return lhs == rhs
	case Ne:
		return lhs != rhs
	case Lt:
		return lhs < rhs
	case Le:
		return lhs <= rhs
	case Gt:
		return lhs > rhs
	case Ge:
		return lhs >= rhs
	default:
		return false
	}
}

func compareText(lhs, rhs string, op Op) bool {
	switch op {
	case Eq:
		return lhs == rhs
	case Ne:
		return lhs != rhs
	case Lt:
		return lhs < rhs
	case Le:
		return lhs <= rhs
	case Gt:
		return lhs > rhs
	case Ge:
		return lhs >= rhs
	default:
		return false
	}
}
