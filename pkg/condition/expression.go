package condition

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/apimimic/mimicd/pkg/request"
)

// Expression is a compiled free-form boolean expression. It complements the
// fixed comparison grammar for cases a single comparison cannot express,
// e.g. `len(query.tags) > 0 && body.total >= 100`. Compilation happens at
// configuration load; compile errors are fatal there.
type Expression struct {
	src  string
	prog *vm.Program
}

// CompileExpression compiles an expr source string to a boolean program.
func CompileExpression(src string) (*Expression, error) {
	prog, err := expr.Compile(src, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", src, err)
	}
	return &Expression{src: src, prog: prog}, nil
}

// Eval runs the expression against the request. Runtime errors (type
// mismatches on live data) evaluate false rather than failing the request.
func (e *Expression) Eval(ctx *request.Context) bool {
	out, err := expr.Run(e.prog, exprEnv(ctx))
	if err != nil {
		return false
	}
	result, ok := out.(bool)
	return ok && result
}

// String returns the expression source.
func (e *Expression) String() string {
	return e.src
}

func exprEnv(ctx *request.Context) map[string]any {
	return map[string]any{
		"method":  ctx.Method,
		"path":    ctx.PathParams,
		"rawPath": ctx.Path,
		"query":   ctx.Query,
		"headers": ctx.Headers,
		"body":    ctx.Body,
		"auth":    ctx.Auth,
	}
}
