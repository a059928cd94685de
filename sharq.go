// Package sharq provides an embeddable, read-optimized database engine
// that is binary-compatible with the SQLite on-disk format, plus a
// secondary query front-end (Sharq) with graph-traversal operators, a
// T-SQL-to-Sharq translator, and a tag/scope-aware in-process cache.
//
// Parsing and rewriting:
//
//	stmt, err := sharq.Parse("SELECT * FROM users WHERE id = 1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(sharq.String(stmt))
//
// Walking the AST:
//
//	sharq.Walk(stmt, func(node ast.Node) bool {
//	    if col, ok := node.(*ast.ColName); ok {
//	        fmt.Printf("Found column: %s\n", col.Name())
//	    }
//	    return true
//	})
//
// Rewriting nodes:
//
//	rewritten := sharq.Rewrite(stmt, func(n ast.Node) ast.Node {
//	    // Transform nodes as needed
//	    return n
//	})
//
// Lowering a parsed statement to an executor-facing intent, and
// translating a T-SQL query into Sharq before parsing it:
//
//	sql := sharq.TranslateTSQL("SELECT TOP 5 name FROM users WHERE id = @uid")
//	stmt, err := sharq.Parse(sql)
//	plan, err := sharq.CompilePlan(stmt)
//
// Opening a tag/scope-aware cache:
//
//	c := sharq.NewCache(sharq.CacheOptions{MaxEntries: 10000})
//	defer c.Close()
package sharq

import (
	"github.com/sharqdb/sharq/ast"
	"github.com/sharqdb/sharq/cache"
	"github.com/sharqdb/sharq/format"
	"github.com/sharqdb/sharq/intent"
	"github.com/sharqdb/sharq/parser"
	"github.com/sharqdb/sharq/tsql"
	"github.com/sharqdb/sharq/visitor"
)

// Parse parses a single SQL statement.
// The parser uses internal pooling for efficiency.
// For maximum performance when parsing many queries, call Repool(stmt)
// when done with the statement (optional, see Repool).
func Parse(sql string) (ast.Statement, error) {
	p := parser.Get(sql)
	stmt, err := p.Parse()
	parser.Put(p)
	return stmt, err
}

// ParseAll parses all statements in the input.
// For maximum performance, call Repool on each statement when done (optional).
func ParseAll(sql string) ([]ast.Statement, error) {
	p := parser.Get(sql)
	stmts, err := p.ParseAll()
	parser.Put(p)
	return stmts, err
}

// Repool returns AST nodes to internal pools for reuse.
// This is optional - if not called, nodes are garbage collected normally.
// Calling Repool after you're done with a statement improves performance
// when parsing many queries by reducing allocations.
//
// Example:
//
//	stmt, err := sharq.Parse(sql)
//	if err != nil {
//	    return err
//	}
//	defer sharq.Repool(stmt)
//	// ... use stmt ...
func Repool(stmt Statement) {
	ast.ReleaseAST(stmt)
}

// String formats an AST node back to SQL.
func String(node ast.Node) string {
	return format.String(node)
}

// Walk traverses the AST calling the function for each node.
// If the function returns false, children are not visited.
func Walk(node ast.Node, fn func(ast.Node) bool) {
	visitor.WalkFunc(node, fn)
}

// Rewrite traverses the AST allowing node replacement.
// The function is called in post-order (children first, then parent).
// Return the replacement node or the original to keep it.
func Rewrite(node ast.Node, fn func(ast.Node) ast.Node) ast.Node {
	return visitor.Rewrite(node, fn)
}

// TranslateTSQL rewrites a T-SQL query into its Sharq equivalent —
// @param to $param, TOP/OFFSET-FETCH to LIMIT/OFFSET, table hints
// stripped — leaving everything it doesn't recognize untouched. The
// result is not necessarily valid Sharq; pass it through Parse to find
// out.
func TranslateTSQL(sql string) string {
	return tsql.Translate(sql)
}

// Compile lowers a single, non-compound parsed SELECT into a
// QueryIntent.
func Compile(stmt ast.Statement) (*QueryIntent, error) {
	return intent.Compile(stmt)
}

// CompilePlan lowers a parsed statement — a simple SELECT, a compound
// chain of UNION/INTERSECT/EXCEPT/pipe-exists arms, or a WITH clause
// over either — into a QueryPlan.
func CompilePlan(stmt ast.Statement) (*QueryPlan, error) {
	return intent.CompilePlan(stmt)
}

// NewCache constructs a tag/scope-aware in-process cache. Callers that
// never start a background sweeper (opts.SweepInterval == 0) may skip
// Close; otherwise Close must be called to stop the sweeper goroutine.
func NewCache(opts CacheOptions) *Cache {
	return cache.New(opts)
}

// Statement is the interface for all SQL statements.
type Statement = ast.Statement

// Expr is the interface for all expressions.
type Expr = ast.Expr

// Node is the base interface for all AST nodes.
type Node = ast.Node

// Common type aliases for convenience.
type (
	SelectStmt       = ast.SelectStmt
	CompoundSelect   = ast.CompoundSelect
	CompoundArm      = ast.CompoundArm
	ColName          = ast.ColName
	TableName        = ast.TableName
	Literal          = ast.Literal
	Param            = ast.Param
	RecordIDLit      = ast.RecordIDLit
	ArrowExpr        = ast.ArrowExpr
	ArrowStep        = ast.ArrowStep
	BinaryExpr       = ast.BinaryExpr
	UnaryExpr        = ast.UnaryExpr
	FuncExpr         = ast.FuncExpr
	CaseExpr         = ast.CaseExpr
	CastExpr         = ast.CastExpr
	Subquery         = ast.Subquery
	JoinExpr         = ast.JoinExpr
	AliasedExpr      = ast.AliasedExpr
	AliasedTableExpr = ast.AliasedTableExpr
	StarExpr         = ast.StarExpr
	ParenExpr        = ast.ParenExpr
	InExpr           = ast.InExpr
	BetweenExpr      = ast.BetweenExpr
	LikeExpr         = ast.LikeExpr
	IsExpr           = ast.IsExpr
	ExistsExpr       = ast.ExistsExpr
	OrderByExpr      = ast.OrderByExpr
	Limit            = ast.Limit
	WithClause       = ast.WithClause
	CTE              = ast.CTE
)

// Query front-end lowering types.
type (
	QueryIntent = intent.QueryIntent
	QueryPlan   = intent.QueryPlan
)

// Cache types.
type (
	Cache        = cache.Cache
	CacheOptions = cache.Options
	EntryOptions = cache.EntryOptions
)

// Join types
const (
	JoinInner = ast.JoinInner
	JoinLeft  = ast.JoinLeft
	JoinRight = ast.JoinRight
	JoinFull  = ast.JoinFull
	JoinCross = ast.JoinCross
)

// Literal types
const (
	LiteralNull   = ast.LiteralNull
	LiteralInt    = ast.LiteralInt
	LiteralFloat  = ast.LiteralFloat
	LiteralString = ast.LiteralString
	LiteralBool   = ast.LiteralBool
)
