package intent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sharqdb/sharq/ast"
	"github.com/sharqdb/sharq/token"
)

// Compile lowers a simple, non-compound SELECT into a QueryIntent. It
// rejects compound selects and statements carrying a WITH clause —
// CompilePlan is the entry point for those, per §4.D.4.
func Compile(stmt ast.Statement) (*QueryIntent, error) {
	sel, ok := stmt.(*ast.SelectStmt)
	if !ok {
		return nil, fmt.Errorf("intent: Compile expects a simple SELECT, got %T; use CompilePlan for compound queries and CTEs", stmt)
	}
	if sel.With != nil {
		return nil, fmt.Errorf("intent: Compile rejects a WITH clause; use CompilePlan")
	}
	return compileIntent(sel)
}

// CompilePlan lowers a (possibly compound, possibly CTE-attached) SELECT
// into a QueryPlan.
func CompilePlan(stmt ast.Statement) (*QueryPlan, error) {
	switch s := stmt.(type) {
	case *ast.CompoundSelect:
		return compileCompoundPlan(s)
	case *ast.SelectStmt:
		intent, err := compileIntent(s)
		if err != nil {
			return nil, err
		}
		plan := &QueryPlan{Leaf: intent}
		ctes, err := compileCTEs(s.With)
		if err != nil {
			return nil, err
		}
		plan.CTEs = ctes
		return plan, nil
	default:
		return nil, fmt.Errorf("intent: CompilePlan received unsupported statement type %T", stmt)
	}
}

func compileCTEs(with *ast.WithClause) ([]NamedPlan, error) {
	if with == nil {
		return nil, nil
	}
	named := make([]NamedPlan, 0, len(with.CTEs))
	for _, cte := range with.CTEs {
		plan, err := CompilePlan(cte.Query)
		if err != nil {
			return nil, fmt.Errorf("intent: CTE %q: %w", cte.Name, err)
		}
		named = append(named, NamedPlan{Name: cte.Name, Plan: plan})
	}
	return named, nil
}

// compileCompoundPlan lowers `A op1 B op2 C ...` into a left leaf (A)
// plus a recursively-compiled right compound (`B op2 C ...`), hoisting
// the rightmost arm's ORDER BY/LIMIT/OFFSET onto the outermost plan's
// Final* fields exactly as the parser already hoisted them onto the
// CompoundSelect itself.
func compileCompoundPlan(cs *ast.CompoundSelect) (*QueryPlan, error) {
	left, err := compileIntent(cs.First)
	if err != nil {
		return nil, err
	}
	if len(cs.Rest) == 0 {
		// Not actually compound; shouldn't happen (finishCompound only
		// returns a CompoundSelect when at least one arm follows), but
		// degrade gracefully to a leaf plan.
		return &QueryPlan{Leaf: left}, nil
	}

	root, err := buildChain(left, cs.Rest)
	if err != nil {
		return nil, err
	}

	orderBy, err := compileOrderBy(cs.OrderBy)
	if err != nil {
		return nil, err
	}
	root.FinalOrderBy = orderBy
	if cs.Limit != nil {
		if root.FinalLimit, err = literalInt64Ptr(cs.Limit.Count); err != nil {
			return nil, err
		}
		if cs.Limit.Offset != nil {
			if root.FinalOffset, err = literalInt64Ptr(cs.Limit.Offset); err != nil {
				return nil, err
			}
		}
	}

	ctes, err := compileCTEs(cs.First.With)
	if err != nil {
		return nil, err
	}
	root.CTEs = ctes
	return root, nil
}

// buildChain recursively builds the left-leaf/right-compound shape from
// a flat arm list: arms[0] pairs with left as the outermost plan, and
// the remainder (left=arms[0].Select, arms[1:]) becomes its Right.
func buildChain(left *QueryIntent, arms []*ast.CompoundArm) (*QueryPlan, error) {
	arm := arms[0]
	op, err := compileSetOp(arm)
	if err != nil {
		return nil, err
	}
	rightIntent, err := compileIntent(arm.Select)
	if err != nil {
		return nil, err
	}

	var right *QueryPlan
	if len(arms) == 1 {
		right = &QueryPlan{Leaf: rightIntent}
	} else {
		right, err = buildChain(rightIntent, arms[1:])
		if err != nil {
			return nil, err
		}
	}

	return &QueryPlan{Left: left, Op: op, Right: right}, nil
}

func compileSetOp(arm *ast.CompoundArm) (SetOp, error) {
	switch arm.Op {
	case ast.Union:
		if arm.All {
			return SetUnionAll, nil
		}
		return SetUnion, nil
	case ast.Intersect:
		return SetIntersect, nil
	case ast.Except:
		return SetExcept, nil
	case ast.PipeExists:
		return SetPipeExists, nil
	default:
		return 0, fmt.Errorf("intent: unknown compound operator %v", arm.Op)
	}
}

// compileIntent lowers one simple SELECT's clauses. It ignores sel.With
// — CTE attachment is the caller's job (Compile rejects it outright;
// CompilePlan surfaces it onto the outer QueryPlan).
func compileIntent(sel *ast.SelectStmt) (*QueryIntent, error) {
	qi := &QueryIntent{Distinct: sel.Distinct, Hint: compileHint(sel.Hint)}

	table, recordID, hasRecordID, err := compileFrom(sel.From)
	if err != nil {
		return nil, err
	}
	qi.Table, qi.RecordID, qi.HasRecordID = table, recordID, hasRecordID

	cols, aggs, err := compileProjection(sel.Columns)
	if err != nil {
		return nil, err
	}
	qi.Columns, qi.Aggregates = cols, aggs

	if sel.Where != nil {
		where, err := compilePredicate(sel.Where)
		if err != nil {
			return nil, fmt.Errorf("intent: WHERE: %w", err)
		}
		qi.Where = where
	}

	groupBy, err := compileGroupBy(sel.GroupBy)
	if err != nil {
		return nil, err
	}
	qi.GroupBy = groupBy

	if sel.Having != nil {
		having, err := compilePredicate(sel.Having)
		if err != nil {
			return nil, fmt.Errorf("intent: HAVING: %w", err)
		}
		qi.Having = having
	}

	orderBy, err := compileOrderBy(sel.OrderBy)
	if err != nil {
		return nil, err
	}
	qi.OrderBy = orderBy

	if sel.Limit != nil {
		if qi.Limit, err = literalInt64Ptr(sel.Limit.Count); err != nil {
			return nil, err
		}
		if sel.Limit.Offset != nil {
			if qi.Offset, err = literalInt64Ptr(sel.Limit.Offset); err != nil {
				return nil, err
			}
		}
	}

	return qi, nil
}

func compileHint(t token.Token) ExecutionHint {
	switch t {
	case token.CACHED:
		return Cached
	case token.JIT:
		return Jit
	default:
		return Direct
	}
}

// compileFrom extracts the table name (and optional record-id) a simple
// FROM clause names. Joins, subqueries, and derived tables have no
// single-table answer and are rejected — compiled intents address one
// base table per §4.D.4's "table + optional record-id copied directly".
func compileFrom(from ast.TableExpr) (table, recordID string, hasRecordID bool, err error) {
	switch t := from.(type) {
	case nil:
		return "", "", false, nil
	case *ast.TableName:
		return t.Name(), "", false, nil
	case *ast.AliasedTableExpr:
		return compileFrom(t.Expr)
	case *ast.RecordIDLit:
		return t.Table, t.ID.Value, true, nil
	default:
		return "", "", false, fmt.Errorf("intent: unsupported FROM clause %T; compiled intents address a single base table", from)
	}
}

var aggregateNames = map[string]AggregateKind{
	"COUNT": AggCount,
	"SUM":   AggSum,
	"AVG":   AggAvg,
	"MIN":   AggMin,
	"MAX":   AggMax,
}

// compileProjection lowers the SELECT list. `*` (bare, unqualified)
// means "no projection" (nil columns, nil aggregates); anything else
// must be a plain column reference or one of the five supported
// aggregate calls.
func compileProjection(exprs []ast.SelectExpr) ([]string, []Aggregate, error) {
	if len(exprs) == 1 {
		if star, ok := exprs[0].(*ast.StarExpr); ok && !star.HasQualifier {
			return nil, nil, nil
		}
	}

	var columns []string
	var aggs []Aggregate
	for _, se := range exprs {
		ae, ok := se.(*ast.AliasedExpr)
		if !ok {
			return nil, nil, fmt.Errorf("intent: unsupported select item %T", se)
		}
		switch e := ae.Expr.(type) {
		case *ast.ColName:
			columns = append(columns, columnName(e))
		case *ast.FuncExpr:
			kind, ok := aggregateNames[strings.ToUpper(e.Name)]
			if !ok {
				return nil, nil, fmt.Errorf("intent: unsupported aggregate function %q", e.Name)
			}
			agg := Aggregate{Kind: kind, Distinct: e.Distinct, Alias: ae.Alias}
			if kind == AggCount && len(e.Args) == 1 {
				if star, ok := e.Args[0].(*ast.StarExpr); ok && !star.HasQualifier {
					agg.Kind = AggCountStar
					aggs = append(aggs, agg)
					continue
				}
			}
			if len(e.Args) != 1 {
				return nil, nil, fmt.Errorf("intent: aggregate %q expects exactly one argument", e.Name)
			}
			col, ok := e.Args[0].(*ast.ColName)
			if !ok {
				return nil, nil, fmt.Errorf("intent: aggregate %q argument must be a column reference", e.Name)
			}
			agg.Column = columnName(col)
			aggs = append(aggs, agg)
		default:
			return nil, nil, fmt.Errorf("intent: unsupported select item expression %T", ae.Expr)
		}
	}
	return columns, aggs, nil
}

func compileGroupBy(exprs []ast.Expr) ([]string, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(exprs))
	for _, e := range exprs {
		col, ok := e.(*ast.ColName)
		if !ok {
			return nil, fmt.Errorf("intent: unsupported GROUP BY expression %T; compiled intents require plain column references", e)
		}
		out = append(out, columnName(col))
	}
	return out, nil
}

func compileOrderBy(exprs []*ast.OrderByExpr) ([]OrderByIntent, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make([]OrderByIntent, 0, len(exprs))
	for _, o := range exprs {
		col, ok := o.Expr.(*ast.ColName)
		if !ok {
			return nil, fmt.Errorf("intent: unsupported ORDER BY expression %T; compiled intents require plain column references", o.Expr)
		}
		out = append(out, OrderByIntent{Column: columnName(col), Descending: o.Desc, NullsFirst: o.NullsFirst})
	}
	return out, nil
}

func columnName(c *ast.ColName) string {
	return strings.Join(c.Parts, ".")
}

func literalInt64Ptr(e ast.Expr) (*int64, error) {
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Type != ast.LiteralInt {
		return nil, fmt.Errorf("intent: LIMIT/OFFSET must be an integer literal, got %T", e)
	}
	n, err := strconv.ParseInt(lit.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("intent: invalid LIMIT/OFFSET literal %q: %w", lit.Value, err)
	}
	return &n, nil
}

// compilePredicate walks expr emitting a flat post-order PredicateIntent:
// children are appended to nodes before their parent, so a node's own
// index is always the largest index among itself and its descendants.
// Leaf nodes get -1 for both child indices.
func compilePredicate(expr ast.Expr) (PredicateIntent, error) {
	var nodes []PredicateNode
	if _, err := lowerPredicate(expr, &nodes); err != nil {
		return nil, err
	}
	for i := range nodes {
		switch nodes[i].Op {
		case OpAnd, OpOr, OpNot:
		default:
			nodes[i].LeftIndex, nodes[i].RightIndex = -1, -1
		}
	}
	return nodes, nil
}

func lowerPredicate(expr ast.Expr, nodes *[]PredicateNode) (int, error) {
	switch e := expr.(type) {
	case *ast.ParenExpr:
		return lowerPredicate(e.Expr, nodes)

	case *ast.UnaryExpr:
		if e.Op != token.NOT {
			return -1, fmt.Errorf("unsupported unary operator %v in predicate", e.Op)
		}
		child, err := lowerPredicate(e.Operand, nodes)
		if err != nil {
			return -1, err
		}
		*nodes = append(*nodes, PredicateNode{Op: OpNot, LeftIndex: child, RightIndex: -1})
		return len(*nodes) - 1, nil

	case *ast.BinaryExpr:
		switch e.Op {
		case token.AND, token.OR:
			left, err := lowerPredicate(e.Left, nodes)
			if err != nil {
				return -1, err
			}
			right, err := lowerPredicate(e.Right, nodes)
			if err != nil {
				return -1, err
			}
			op := OpAnd
			if e.Op == token.OR {
				op = OpOr
			}
			*nodes = append(*nodes, PredicateNode{Op: op, LeftIndex: left, RightIndex: right})
			return len(*nodes) - 1, nil

		case token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE:
			return lowerComparison(e, nodes)

		default:
			return -1, fmt.Errorf("unsupported operator %v in predicate", e.Op)
		}

	case *ast.IsExpr:
		if e.What != ast.IsNull {
			return -1, fmt.Errorf("unsupported IS predicate (only IS [NOT] NULL is lowered)")
		}
		col, err := columnRef(e.Expr)
		if err != nil {
			return -1, err
		}
		op := OpIsNull
		if e.Not {
			op = OpIsNotNull
		}
		*nodes = append(*nodes, PredicateNode{Op: op, Column: col})
		return len(*nodes) - 1, nil

	case *ast.BetweenExpr:
		col, err := columnRef(e.Expr)
		if err != nil {
			return -1, err
		}
		low, err := lowerValue(e.Low)
		if err != nil {
			return -1, err
		}
		high, err := lowerValue(e.High)
		if err != nil {
			return -1, err
		}
		op := OpBetween
		if e.Not {
			return -1, fmt.Errorf("NOT BETWEEN is not lowered; wrap in NOT(...) instead")
		}
		*nodes = append(*nodes, PredicateNode{Op: op, Column: col, Value: low, HighValue: high})
		return len(*nodes) - 1, nil

	case *ast.InExpr:
		if e.Select != nil {
			return -1, fmt.Errorf("IN (subquery) is not supported by the compiled predicate lowering")
		}
		col, err := columnRef(e.Expr)
		if err != nil {
			return -1, err
		}
		val, err := lowerInValues(e.Values)
		if err != nil {
			return -1, err
		}
		op := OpIn
		if e.Not {
			op = OpNotIn
		}
		*nodes = append(*nodes, PredicateNode{Op: op, Column: col, Value: val})
		return len(*nodes) - 1, nil

	case *ast.LikeExpr:
		return lowerLike(e, nodes)

	default:
		return -1, fmt.Errorf("unsupported predicate expression %T", expr)
	}
}

func lowerComparison(e *ast.BinaryExpr, nodes *[]PredicateNode) (int, error) {
	col, err := columnRef(e.Left)
	if err != nil {
		return -1, err
	}
	val, err := lowerValue(e.Right)
	if err != nil {
		return -1, err
	}
	var op IntentOp
	switch e.Op {
	case token.EQ:
		op = OpEq
	case token.NEQ:
		op = OpNeq
	case token.LT:
		op = OpLt
	case token.LTE:
		op = OpLte
	case token.GT:
		op = OpGt
	case token.GTE:
		op = OpGte
	}
	*nodes = append(*nodes, PredicateNode{Op: op, Column: col, Value: val})
	return len(*nodes) - 1, nil
}

func lowerLike(e *ast.LikeExpr, nodes *[]PredicateNode) (int, error) {
	col, err := columnRef(e.Expr)
	if err != nil {
		return -1, err
	}
	lit, isLit := e.Pattern.(*ast.Literal)
	op := OpLike
	text := ""
	if isLit {
		if lit.Type != ast.LiteralString {
			return -1, fmt.Errorf("LIKE pattern must be a string literal, got %v", lit.Type)
		}
		text = lit.Value
		hasPrefix := strings.HasSuffix(text, "%")
		hasSuffix := strings.HasPrefix(text, "%")
		switch {
		case hasPrefix && hasSuffix && len(text) >= 2:
			op, text = OpContains, text[1:len(text)-1]
		case hasPrefix:
			op, text = OpStartsWith, text[:len(text)-1]
		case hasSuffix:
			op, text = OpEndsWith, text[1:]
		default:
			op = OpLike
		}
	}
	if e.Not {
		if op == OpLike {
			op = OpNotLike
		} else {
			// StartsWith/EndsWith/Contains have no negated IntentOp;
			// fall back to the generic negated form.
			op = OpNotLike
			text = lit.Value
		}
	}
	val := IntentValue{Kind: ValueText, Text: text}
	if !isLit {
		pv, err := lowerValue(e.Pattern)
		if err != nil {
			return -1, err
		}
		val = pv
	}
	*nodes = append(*nodes, PredicateNode{Op: op, Column: col, Value: val})
	return len(*nodes) - 1, nil
}

func columnRef(e ast.Expr) (string, error) {
	col, ok := e.(*ast.ColName)
	if !ok {
		return "", fmt.Errorf("expected a column reference, got %T", e)
	}
	return columnName(col), nil
}

func lowerValue(e ast.Expr) (IntentValue, error) {
	switch v := e.(type) {
	case *ast.Literal:
		return lowerLiteral(v)
	case *ast.Param:
		name := v.Name
		if v.Type == ast.ParamQuestion {
			name = fmt.Sprintf("?%d", v.Index)
		}
		return IntentValue{Kind: ValueParameter, Parameter: name}, nil
	case *ast.RecordIDLit:
		return IntentValue{Kind: ValueText, Text: v.Table + ":" + v.ID.Value}, nil
	case *ast.UnaryExpr:
		if v.Op == token.MINUS {
			inner, err := lowerValue(v.Operand)
			if err != nil {
				return IntentValue{}, err
			}
			switch inner.Kind {
			case ValueSigned64:
				inner.Signed64 = -inner.Signed64
			case ValueReal:
				inner.Real = -inner.Real
			default:
				return IntentValue{}, fmt.Errorf("unary minus only applies to numeric literals")
			}
			return inner, nil
		}
		return IntentValue{}, fmt.Errorf("unsupported unary value expression with operator %v", v.Op)
	default:
		return IntentValue{}, fmt.Errorf("unsupported value expression %T", e)
	}
}

func lowerLiteral(lit *ast.Literal) (IntentValue, error) {
	switch lit.Type {
	case ast.LiteralNull:
		return IntentValue{Kind: ValueNull}, nil
	case ast.LiteralInt:
		n, err := strconv.ParseInt(lit.Value, 10, 64)
		if err != nil {
			return IntentValue{}, fmt.Errorf("invalid integer literal %q: %w", lit.Value, err)
		}
		return IntentValue{Kind: ValueSigned64, Signed64: n}, nil
	case ast.LiteralFloat:
		f, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return IntentValue{}, fmt.Errorf("invalid float literal %q: %w", lit.Value, err)
		}
		return IntentValue{Kind: ValueReal, Real: f}, nil
	case ast.LiteralString:
		return IntentValue{Kind: ValueText, Text: lit.Value}, nil
	case ast.LiteralBool:
		return IntentValue{Kind: ValueBool, Bool: strings.EqualFold(lit.Value, "true")}, nil
	default:
		return IntentValue{}, fmt.Errorf("unsupported literal type %v", lit.Type)
	}
}

// lowerInValues builds an IN value set from literal values only — a
// parameter-only IN list has no known cardinality at compile time, so
// it is rejected per §4.D.4 ("IN with only parameters is rejected").
func lowerInValues(values []ast.Expr) (IntentValue, error) {
	if len(values) == 0 {
		return IntentValue{}, fmt.Errorf("IN requires at least one value")
	}
	allParams := true
	for _, v := range values {
		if _, ok := v.(*ast.Param); !ok {
			allParams = false
			break
		}
	}
	if allParams {
		return IntentValue{}, fmt.Errorf("IN requires literal values, not only parameters")
	}

	var ints []int64
	var texts []string
	isText := false
	for i, v := range values {
		lit, ok := v.(*ast.Literal)
		if !ok {
			return IntentValue{}, fmt.Errorf("IN value %d must be a literal, got %T", i, v)
		}
		switch lit.Type {
		case ast.LiteralInt:
			n, err := strconv.ParseInt(lit.Value, 10, 64)
			if err != nil {
				return IntentValue{}, fmt.Errorf("invalid integer literal %q: %w", lit.Value, err)
			}
			ints = append(ints, n)
		case ast.LiteralString:
			isText = true
			texts = append(texts, lit.Value)
		default:
			return IntentValue{}, fmt.Errorf("unsupported IN literal type %v", lit.Type)
		}
	}
	if isText {
		return IntentValue{Kind: ValueTextSet, TextSet: texts}, nil
	}
	return IntentValue{Kind: ValueSigned64Set, Signed64Set: ints}, nil
}
