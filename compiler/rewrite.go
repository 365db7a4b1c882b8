package compiler

import (
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"path"
	"strings"

	"github.com/caffeineduck/gopad/result"
)

// Identifiers injected into every compiled snippet. The bootstrap unit
// defines the dump function; the user unit defines the entry point.
const (
	entryFunc = "__gopad_main"
	dumpFunc  = "__gopad_dump"
)

// prelude0 wraps the snippet for the initial parse, before the import
// block is known. Exactly 3 lines precede the user's first line.
const prelude0 = "package main\n\nfunc " + entryFunc + "() {\n"

const prelude0Lines = 3

// unit is a snippet prepared for compilation.
type unit struct {
	Source     string // generated main.go content
	LineOffset int    // file lines preceding the user's first line
}

// prepare wraps the snippet into a main package, applies the
// trailing-expression rewrite, and prunes the configured import list down
// to packages the snippet actually references. Syntax errors abort with
// diagnostics mapped to 0-based snippet coordinates.
func prepare(src string, imports []string, allowUnsafe bool) (unit, []result.CompileError) {
	if !strings.HasSuffix(src, "\n") {
		src += "\n"
	}
	wrapped := prelude0 + src + "}\n"

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "main.go", wrapped, 0)
	if err != nil {
		return unit{}, syntaxErrors(err)
	}

	src = rewriteTrailingExpr(fset, file, src)

	used := selectorRoots(file)
	var kept []string
	for _, imp := range imports {
		if _, ok := used[path.Base(imp)]; ok {
			kept = append(kept, imp)
		}
	}

	var diags []result.CompileError
	if !allowUnsafe {
		for _, imp := range kept {
			if imp == "unsafe" {
				diags = append(diags, result.CompileError{
					Severity: result.SeverityError,
					ID:       "unsafe",
					Message:  "unsafe code is not allowed",
				})
			}
		}
	}

	var b strings.Builder
	b.WriteString("package main\n\n")
	if len(kept) > 0 {
		b.WriteString("import (\n")
		for _, imp := range kept {
			b.WriteString("\t\"" + imp + "\"\n")
		}
		b.WriteString(")\n\n")
	}
	b.WriteString("func " + entryFunc + "() {\n")
	offset := strings.Count(b.String(), "\n")
	b.WriteString(src)
	b.WriteString("}\n")

	return unit{Source: b.String(), LineOffset: offset}, diags
}

// rewriteTrailingExpr gives trailing bare expressions REPL-like
// auto-display semantics: if the snippet's last statement is an expression
// statement that is not already a call, it is wrapped in a dump call. Call
// statements are complete statements on their own and are left unchanged,
// as is anything not in last position.
func rewriteTrailingExpr(fset *token.FileSet, file *ast.File, src string) string {
	body := entryBody(file)
	if body == nil || len(body.List) == 0 {
		return src
	}
	es, ok := body.List[len(body.List)-1].(*ast.ExprStmt)
	if !ok {
		return src
	}
	if _, isCall := es.X.(*ast.CallExpr); isCall {
		return src
	}

	start := fset.Position(es.X.Pos()).Offset - len(prelude0)
	end := fset.Position(es.X.End()).Offset - len(prelude0)
	if start < 0 || end > len(src) || start >= end {
		return src
	}
	return src[:start] + dumpFunc + "(" + src[start:end] + ")" + src[end:]
}

func entryBody(file *ast.File) *ast.BlockStmt {
	for _, decl := range file.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Name.Name == entryFunc {
			return fd.Body
		}
	}
	return nil
}

// selectorRoots collects identifiers used as the base of a selector
// expression; configured imports whose base name never appears are pruned
// so the generated file has no unused imports.
func selectorRoots(file *ast.File) map[string]struct{} {
	roots := make(map[string]struct{})
	ast.Inspect(file, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				roots[id.Name] = struct{}{}
			}
		}
		return true
	})
	return roots
}

func syntaxErrors(err error) []result.CompileError {
	list, ok := err.(scanner.ErrorList)
	if !ok {
		return []result.CompileError{{
			Severity: result.SeverityError,
			ID:       "syntax",
			Message:  err.Error(),
		}}
	}
	diags := make([]result.CompileError, 0, len(list))
	for _, e := range list {
		diags = append(diags, result.CompileError{
			Severity: result.SeverityError,
			ID:       "syntax",
			Message:  e.Msg,
			Line:     clamp(e.Pos.Line - prelude0Lines - 1),
			Column:   clamp(e.Pos.Column - 1),
		})
	}
	return diags
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
