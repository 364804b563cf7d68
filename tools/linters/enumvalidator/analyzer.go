// Package enumvalidator flags string literals assigned to struct fields
// whose type is a string enum, forcing callers through the declared
// constants.
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
	Doc:      "reports string literals assigned to enum-typed struct fields",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspected := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{(*ast.AssignStmt)(nil)}
	inspected.Preorder(nodeFilter, func(n ast.Node) {
		assign := n.(*ast.AssignStmt)
		if len(assign.Lhs) != len(assign.Rhs) {
			return
		}
		for i, lhs := range assign.Lhs {
			selector, ok := lhs.(*ast.SelectorExpr)
			if !ok {
				continue
			}
			literal, ok := assign.Rhs[i].(*ast.BasicLit)
			if !ok || literal.Kind != token.STRING {
				continue
			}
			fieldType := pass.TypesInfo.TypeOf(selector)
			if fieldType == nil {
				continue
			}
			named, ok := types.Unalias(fieldType).(*types.Named)
			if !ok {
				continue
			}
			basic, ok := named.Underlying().(*types.Basic)
			if !ok || basic.Kind() != types.String {
				continue
			}
			if !hasConstants(named) {
				continue
			}
			pass.Reportf(literal.Pos(), "enum field %s assigned string literal", selector.Sel.Name)
		}
	})

	return nil, nil
}

// hasConstants reports whether any package-level constant of the named type
// exists. A named string type without constants is not treated as an enum.
func hasConstants(named *types.Named) bool {
	pkg := named.Obj().Pkg()
	if pkg == nil {
		return false
	}
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		constant, ok := scope.Lookup(name).(*types.Const)
		if !ok {
			continue
		}
		if types.Identical(constant.Type(), named) {
			return true
		}
	}
	return false
}
