package interp

import (
	"testing"

	"github.com/philtomson/hotwright/internal/ast"
	"github.com/philtomson/hotwright/internal/diag"
	"github.com/philtomson/hotwright/internal/engine"
	"github.com/philtomson/hotwright/internal/hwctx"
	"github.com/stretchr/testify/require"
)

func buildHW(t *testing.T, decls []*ast.VarDecl) *hwctx.Context {
	t.Helper()
	items := make([]ast.Decl, len(decls))
	for i, d := range decls {
		items[i] = d
	}
	hw, err := hwctx.Analyze(&ast.Program{Items: items})
	require.NoError(t, err)
	return hw
}

func boolLit(v bool) ast.Expr { return &ast.BoolLiteral{Value: v} }

// Scenario A: an if committing a State from an Input, matching the same
// source TestLowerIfAssignsState exercises through the compiled pipeline.
func TestRunIfAssignsState(t *testing.T) {
	hw := buildHW(t, []*ast.VarDecl{
		{Type: ast.TypeBool, Name: "LED1", Initializer: boolLit(false)},
		{Type: ast.TypeBool, Name: "BUTTON"},
	})

	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.If{
			Cond: &ast.Identifier{Name: "BUTTON"},
			Then: &ast.Block{Stmts: []ast.Stmt{
				&ast.Assignment{LHS: &ast.Identifier{Name: "LED1"}, RHS: boolLit(true)},
			}},
		},
	}}

	// LED1's suffix gives it state number 1.
	st, err := Run(hw, body, engine.Vector{true})
	require.NoError(t, err)
	require.True(t, bool(st[1]))

	st, err = Run(hw, body, engine.Vector{false})
	require.NoError(t, err)
	require.False(t, bool(st[1]))
}

// A suffix-derived state number ("LED2") that does not match declaration
// order must still land in the right slot, and the state vector must be
// sized to hold it rather than the count of declared states.
func TestRunIndexesStateBySuffixNumberNotDeclarationOrder(t *testing.T) {
	hw := buildHW(t, []*ast.VarDecl{
		{Type: ast.TypeBool, Name: "LED2", Initializer: boolLit(false)},
	})

	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.Assignment{LHS: &ast.Identifier{Name: "LED2"}, RHS: boolLit(true)},
	}}

	st, err := Run(hw, body, engine.Vector{})
	require.NoError(t, err)
	require.Len(t, st, 3)
	require.True(t, bool(st[2]))
}

// OQ2: a switch without a break after a matched case falls through into the
// next case, C-style, via the sticky matched flag.
func TestRunSwitchFallsThrough(t *testing.T) {
	hw := buildHW(t, []*ast.VarDecl{
		{Type: ast.TypeBool, Name: "LED1", Initializer: boolLit(false)},
		{Type: ast.TypeBool, Name: "LED2", Initializer: boolLit(false)},
		{Type: ast.TypeInt, Name: "SEL"},
	})

	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.Switch{
			Scrutinee: &ast.Identifier{Name: "SEL"},
			Cases: []*ast.Case{
				{Value: &ast.NumberLiteral{Value: 0}, Body: []ast.Stmt{
					&ast.Assignment{LHS: &ast.Identifier{Name: "LED1"}, RHS: boolLit(true)},
					// no break: falls through into the next case
				}},
				{Value: &ast.NumberLiteral{Value: 1}, Body: []ast.Stmt{
					&ast.Assignment{LHS: &ast.Identifier{Name: "LED2"}, RHS: boolLit(true)},
					&ast.Break{},
				}},
			},
		},
	}}

	// LED1 and LED2 sit at state numbers 1 and 2 (their name suffixes).
	st, err := Run(hw, body, engine.Vector{})
	require.NoError(t, err)
	require.True(t, bool(st[1]))
	require.True(t, bool(st[2]), "case 0 should fall through and also run case 1's body")
}

// OQ3: continue inside a for-loop jumps to the update clause, not back to
// the condition directly, so the update still runs before re-checking Cond.
func TestRunForLoopContinueRunsUpdate(t *testing.T) {
	hw := buildHW(t, []*ast.VarDecl{
		{Type: ast.TypeBool, Name: "COUNTER", Initializer: boolLit(false)},
		{Type: ast.TypeBool, Name: "GATE"},
	})

	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.For{
			Init:   &ast.Assignment{LHS: &ast.Identifier{Name: "COUNTER"}, RHS: boolLit(false)},
			Cond:   &ast.Identifier{Name: "GATE"},
			Update: &ast.Assignment{LHS: &ast.Identifier{Name: "COUNTER"}, RHS: boolLit(true)},
			Body: &ast.Block{Stmts: []ast.Stmt{
				&ast.Continue{},
			}},
		},
	}}

	// GATE stays true, so the body runs until maxIterations; every pass hits
	// Continue, and COUNTER only becomes true if Update still runs after it.
	st, err := Run(hw, body, engine.Vector{true})
	require.NoError(t, err)
	require.True(t, bool(st[0]))
}

// OQ1: assignment to a State must have a constant right-hand side; anything
// else (here, an identifier reference) is rejected rather than silently
// evaluated against the current state.
func TestRunRejectsNonConstantAssignment(t *testing.T) {
	hw := buildHW(t, []*ast.VarDecl{
		{Type: ast.TypeBool, Name: "LED1", Initializer: boolLit(false)},
		{Type: ast.TypeBool, Name: "BUTTON"},
	})

	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.Assignment{LHS: &ast.Identifier{Name: "LED1"}, RHS: &ast.Identifier{Name: "BUTTON"}},
	}}

	_, err := Run(hw, body, engine.Vector{true})
	require.Error(t, err)
	var de *diag.Error
	require.ErrorAs(t, err, &de)
	require.Equal(t, diag.UnsupportedConstruct, de.Kind)
}

func TestRunRejectsAssignmentToUndeclaredTarget(t *testing.T) {
	hw := buildHW(t, nil)
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.Assignment{LHS: &ast.Identifier{Name: "GHOST"}, RHS: boolLit(true)},
	}}

	_, err := Run(hw, body, engine.Vector{})
	require.Error(t, err)
	var de *diag.Error
	require.ErrorAs(t, err, &de)
	require.Equal(t, diag.UnsupportedConstruct, de.Kind)
}
