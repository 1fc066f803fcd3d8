package main

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// contextless maps database/sql methods to the variant that takes a context.
var contextless = map[string]string{
	"Exec":     "ExecContext",
	"Query":    "QueryContext",
	"QueryRow": "QueryRowContext",
	"Prepare":  "PrepareContext",
	"Ping":     "PingContext",
	"Begin":    "BeginTx",
}

var sqlReceivers = map[string]bool{
	"DB":   true,
	"Tx":   true,
	"Conn": true,
	"Stmt": true,
}

// CtxSQLAnalyzer reports database/sql calls that cannot be cancelled.
var CtxSQLAnalyzer = &analysis.Analyzer{
	Name:     "ctxsql",
	Doc:      "reports database/sql calls without a context",
	Run:      runCtxSQL,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
}

func runCtxSQL(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	insp.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)

		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return
		}
		want, ok := contextless[sel.Sel.Name]
		if !ok {
			return
		}

		fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
		if !ok || fn.Pkg() == nil || fn.Pkg().Path() != "database/sql" {
			return
		}

		recv := fn.Type().(*types.Signature).Recv()
		if recv == nil {
			return
		}

		t := recv.Type()
		if p, ok := t.(*types.Pointer); ok {
			t = p.Elem()
		}
		named, ok := t.(*types.Named)
		if !ok || !sqlReceivers[named.Obj().Name()] {
			return
		}

		pass.Reportf(call.Pos(), "use %s.%s instead of %s", named.Obj().Name(), want, sel.Sel.Name)
	})

	return nil, nil
}
