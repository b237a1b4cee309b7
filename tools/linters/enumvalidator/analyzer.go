// Package enumvalidator reports string literals assigned to enum-typed struct
// fields. An enum type is a named string type whose package declares at least
// one constant of that type.
package enumvalidator

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

var Analyzer = &analysis.Analyzer{
	Name:     "enumvalidator",
	Doc:      "reports string literals assigned to enum-typed fields; use the declared constants",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	enums := map[*types.Named]bool{}

	nodeFilter := []ast.Node{
		(*ast.AssignStmt)(nil),
		(*ast.CompositeLit)(nil),
	}

	insp.Preorder(nodeFilter, func(n ast.Node) {
		switch n := n.(type) {
		case *ast.AssignStmt:
			if len(n.Lhs) != len(n.Rhs) {
				return
			}
			for i, lhs := range n.Lhs {
				sel, ok := lhs.(*ast.SelectorExpr)
				if !ok {
					continue
				}
				check(pass, enums, sel.Sel.Name, n.Rhs[i])
			}

		case *ast.CompositeLit:
			if _, ok := pass.TypesInfo.TypeOf(n).Underlying().(*types.Struct); !ok {
				return
			}
			for _, elt := range n.Elts {
				kv, ok := elt.(*ast.KeyValueExpr)
				if !ok {
					continue
				}
				key, ok := kv.Key.(*ast.Ident)
				if !ok {
					continue
				}
				check(pass, enums, key.Name, kv.Value)
			}
		}
	})

	return nil, nil
}

func check(pass *analysis.Pass, enums map[*types.Named]bool, field string, value ast.Expr) {
	lit, ok := ast.Unparen(value).(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return
	}
	named, ok := pass.TypesInfo.TypeOf(lit).(*types.Named)
	if !ok || !isEnum(enums, named) {
		return
	}
	pass.Reportf(lit.Pos(), "enum field %s assigned string literal %s; use a %s constant",
		field, lit.Value, named.Obj().Name())
}

func isEnum(cache map[*types.Named]bool, named *types.Named) bool {
	if v, ok := cache[named]; ok {
		return v
	}

	result := false
	obj := named.Obj()
	if basic, ok := named.Underlying().(*types.Basic); ok && basic.Kind() == types.String && obj.Pkg() != nil {
		scope := obj.Pkg().Scope()
		for _, name := range scope.Names() {
			c, ok := scope.Lookup(name).(*types.Const)
			if ok && types.Identical(c.Type(), named) {
				result = true
				break
			}
		}
	}

	cache[named] = result
	return result
}
