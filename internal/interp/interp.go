// Package interp is a reference tree-walking interpreter for main's body,
// executed directly against the AST rather than compiled microcode. It
// exists so the pipeline can differentially check a compiled program
// against the source it was compiled from (the engine has no
// optimization passes to trust blindly).
//
// The top-level `while (1) { ... }` idiom models the hardware's
// free-running clock: the interpreter treats it as "settle the body once
// against the current input vector," matching one cycle of the compiled
// engine rather than spinning forever. Bounded while/for loops execute for
// real, since their exit condition can only be read from inputs that do not
// change mid-run.
package interp

import (
	"github.com/philtomson/hotwright/internal/ast"
	"github.com/philtomson/hotwright/internal/diag"
	"github.com/philtomson/hotwright/internal/engine"
	"github.com/philtomson/hotwright/internal/hwctx"
)

type signal int

const (
	sigNone signal = iota
	sigBreak
	sigContinue
	sigReturn
)

// Interp holds the mutable state of one run.
type Interp struct {
	hw    *hwctx.Context
	state engine.State
	in    engine.Vector

	maxIterations int
}

// New creates an Interp seeded with hw's initial state values.
func New(hw *hwctx.Context, in engine.Vector) *Interp {
	st := make(engine.State, hw.NumStateSlots())
	for _, s := range hw.States {
		st[s.StateNumber] = s.InitialValue
	}
	return &Interp{hw: hw, state: st, in: in, maxIterations: 10000}
}

// Run interprets body once (per the package doc's free-running convention)
// and returns the resulting state.
func Run(hw *hwctx.Context, body *ast.Block, in engine.Vector) (engine.State, error) {
	it := New(hw, in)
	if _, err := it.execBlock(body); err != nil {
		return nil, err
	}
	return it.state, nil
}

func (it *Interp) execBlock(b *ast.Block) (signal, error) {
	if b == nil {
		return sigNone, nil
	}
	return it.execStmts(b.Stmts)
}

func (it *Interp) execStmts(stmts []ast.Stmt) (signal, error) {
	for _, s := range stmts {
		sig, err := it.execStmt(s)
		if err != nil {
			return sigNone, err
		}
		if sig != sigNone {
			return sig, nil
		}
	}
	return sigNone, nil
}

func (it *Interp) execStmt(s ast.Stmt) (signal, error) {
	switch n := s.(type) {
	case *ast.VarDecl:
		return sigNone, it.execVarDeclInit(n)
	case *ast.Block:
		return it.execBlock(n)
	case *ast.Assignment:
		return sigNone, it.execAssignment(n)
	case *ast.ExprStmt:
		return sigNone, nil
	case *ast.If:
		return it.execIf(n)
	case *ast.While:
		return it.execWhile(n)
	case *ast.For:
		return it.execFor(n)
	case *ast.Switch:
		return it.execSwitch(n)
	case *ast.Break:
		return sigBreak, nil
	case *ast.Continue:
		return sigContinue, nil
	case *ast.Return:
		return sigReturn, nil
	default:
		return sigNone, diag.New(diag.UnsupportedConstruct, "interp: unsupported statement %T", s)
	}
}

func (it *Interp) execAssignment(a *ast.Assignment) error {
	name, pos, err := lvalueName(a.LHS)
	if err != nil {
		return err
	}
	st, ok := it.hw.LookupState(name)
	if !ok {
		return diag.At(diag.UnsupportedConstruct, pos, "assignment target %q is not a declared state", name)
	}
	val, ok := it.evalBool(a.RHS)
	if !ok {
		return diag.At(diag.UnsupportedConstruct, a.Pos, "assignment to state %q must be constant", name)
	}
	it.state[st.StateNumber] = val
	return nil
}

// execVarDeclInit handles a VarDecl appearing as a for-loop's init clause:
// if it declares a state with a constant initializer, that initializer is
// applied the same way a plain assignment would be.
func (it *Interp) execVarDeclInit(n *ast.VarDecl) error {
	if n.Initializer == nil {
		return nil
	}
	st, ok := it.hw.LookupState(n.Name)
	if !ok {
		return nil
	}
	val, ok := it.evalBool(n.Initializer)
	if !ok {
		return diag.At(diag.UnsupportedConstruct, n.Pos, "initializer for state %q must be constant", n.Name)
	}
	it.state[st.StateNumber] = val
	return nil
}

func lvalueName(e ast.Expr) (string, ast.Pos, error) {
	switch v := e.(type) {
	case *ast.Identifier:
		return v.Name, v.Pos, nil
	case *ast.ArrayAccess:
		idx, ok := v.Index.(*ast.NumberLiteral)
		if !ok {
			return "", v.Pos, diag.At(diag.UnsupportedConstruct, v.Pos, "array index must be constant")
		}
		return arrayElementName(v.Name, int(idx.Value)), v.Pos, nil
	default:
		return "", ast.Pos{}, diag.New(diag.UnsupportedConstruct, "interp: unsupported assignment target %T", e)
	}
}

func arrayElementName(base string, i int) string {
	digits := []byte{}
	if i == 0 {
		digits = []byte{'0'}
	}
	n := i
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return base + "[" + string(digits) + "]"
}

// evalBool evaluates a constant-foldable expression; ok is false when e is
// not a literal (used only for state-assignment right-hand sides, which
// must be constant in this engine's data model).
func (it *Interp) evalBool(e ast.Expr) (val bool, ok bool) {
	switch v := e.(type) {
	case *ast.BoolLiteral:
		return v.Value, true
	case *ast.NumberLiteral:
		return v.Value != 0, true
	default:
		return false, false
	}
}

func (it *Interp) execIf(n *ast.If) (signal, error) {
	cond, err := it.evalCond(n.Cond)
	if err != nil {
		return sigNone, err
	}
	if cond {
		return it.execBlock(n.Then)
	}
	return it.execBlock(n.Else)
}

// execWhile treats a literal `while (1)` / `while (true)` as the
// free-running top-level loop: run the body exactly once. Any other
// condition is evaluated for real and may loop, bounded by maxIterations.
func (it *Interp) execWhile(n *ast.While) (signal, error) {
	if isAlwaysTrueLiteral(n.Cond) {
		_, err := it.execBlock(n.Body)
		return sigNone, err
	}
	for i := 0; i < it.maxIterations; i++ {
		cond, err := it.evalCond(n.Cond)
		if err != nil {
			return sigNone, err
		}
		if !cond {
			break
		}
		sig, err := it.execBlock(n.Body)
		if err != nil {
			return sigNone, err
		}
		if sig == sigBreak {
			break
		}
		if sig == sigReturn {
			return sigReturn, nil
		}
	}
	return sigNone, nil
}

func isAlwaysTrueLiteral(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.NumberLiteral:
		return v.Value != 0
	case *ast.BoolLiteral:
		return v.Value
	default:
		return false
	}
}

func (it *Interp) execFor(n *ast.For) (signal, error) {
	if n.Init != nil {
		if _, err := it.execStmt(n.Init); err != nil {
			return sigNone, err
		}
	}
	for i := 0; i < it.maxIterations; i++ {
		if n.Cond != nil {
			cond, err := it.evalCond(n.Cond)
			if err != nil {
				return sigNone, err
			}
			if !cond {
				break
			}
		}
		sig, err := it.execBlock(n.Body)
		if err != nil {
			return sigNone, err
		}
		if sig == sigBreak {
			break
		}
		if sig == sigReturn {
			return sigReturn, nil
		}
		if n.Update != nil {
			if _, err := it.execStmt(n.Update); err != nil {
				return sigNone, err
			}
		}
	}
	return sigNone, nil
}

func (it *Interp) execSwitch(n *ast.Switch) (signal, error) {
	id, ok := n.Scrutinee.(*ast.Identifier)
	if !ok {
		return sigNone, diag.At(diag.UnsupportedConstruct, exprPos(n.Scrutinee), "switch scrutinee must be an input identifier")
	}
	input, ok := it.hw.LookupInput(id.Name)
	if !ok {
		return sigNone, diag.At(diag.UnsupportedConstruct, id.Pos, "switch scrutinee %q is not a declared input", id.Name)
	}
	v := 0
	if input.InputNumber < len(it.in) && it.in[input.InputNumber] {
		v = 1
	}

	matched := false
	for _, cs := range n.Cases {
		if !matched {
			if cs.Value == nil {
				matched = true
			} else if int(cs.Value.Value) == v {
				matched = true
			}
		}
		if !matched {
			continue
		}
		sig, err := it.execStmts(cs.Body)
		if err != nil {
			return sigNone, err
		}
		if sig == sigBreak {
			return sigNone, nil
		}
		if sig == sigReturn {
			return sigReturn, nil
		}
	}
	return sigNone, nil
}

// evalCond mirrors the lowerer's reduction of a condition to a Boolean:
// identifiers and comparisons resolve against the sampled input vector.
func (it *Interp) evalCond(e ast.Expr) (bool, error) {
	switch v := e.(type) {
	case *ast.Identifier:
		return it.inputBit(v.Name, v.Pos)
	case *ast.UnaryOp:
		if v.Op != "!" {
			return false, diag.At(diag.UnsupportedCondition, v.Pos, "unsupported unary operator %q", v.Op)
		}
		b, err := it.evalCond(v.X)
		return !b, err
	case *ast.BinaryOp:
		switch v.Op {
		case "&&":
			l, err := it.evalCond(v.Left)
			if err != nil {
				return false, err
			}
			if !l {
				return false, nil
			}
			return it.evalCond(v.Right)
		case "||":
			l, err := it.evalCond(v.Left)
			if err != nil {
				return false, err
			}
			if l {
				return true, nil
			}
			return it.evalCond(v.Right)
		case "==", "!=", "<", "<=", ">", ">=":
			return it.evalComparison(v)
		default:
			return false, diag.At(diag.UnsupportedCondition, v.Pos, "unsupported operator %q", v.Op)
		}
	default:
		return false, diag.At(diag.UnsupportedCondition, exprPos(e), "unsupported condition shape")
	}
}

func (it *Interp) inputBit(name string, pos ast.Pos) (bool, error) {
	in, ok := it.hw.LookupInput(name)
	if !ok {
		return false, diag.At(diag.UnsupportedCondition, pos, "condition identifier %q is not a declared input", name)
	}
	if in.InputNumber >= len(it.in) {
		return false, nil
	}
	return it.in[in.InputNumber], nil
}

func (it *Interp) evalComparison(e *ast.BinaryOp) (bool, error) {
	var name string
	var pos ast.Pos
	var n int64
	var swapped bool
	switch {
	case isIdent(e.Left) && isNumber(e.Right):
		name, pos = e.Left.(*ast.Identifier).Name, e.Left.(*ast.Identifier).Pos
		n = e.Right.(*ast.NumberLiteral).Value
	case isIdent(e.Right) && isNumber(e.Left):
		name, pos = e.Right.(*ast.Identifier).Name, e.Right.(*ast.Identifier).Pos
		n = e.Left.(*ast.NumberLiteral).Value
		swapped = true
	default:
		return false, diag.At(diag.UnsupportedCondition, e.Pos, "comparison must be between an input identifier and a constant")
	}
	bit, err := it.inputBit(name, pos)
	if err != nil {
		return false, err
	}
	v := int64(0)
	if bit {
		v = 1
	}
	op := e.Op
	if swapped {
		op = swapRelOp(op)
	}
	switch op {
	case "==":
		return v == n, nil
	case "!=":
		return v != n, nil
	case "<":
		return v < n, nil
	case "<=":
		return v <= n, nil
	case ">":
		return v > n, nil
	case ">=":
		return v >= n, nil
	}
	return false, nil
}

func swapRelOp(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	}
	return op
}

func isIdent(e ast.Expr) bool  { _, ok := e.(*ast.Identifier); return ok }
func isNumber(e ast.Expr) bool { _, ok := e.(*ast.NumberLiteral); return ok }

func exprPos(e ast.Expr) ast.Pos {
	switch v := e.(type) {
	case *ast.Identifier:
		return v.Pos
	case *ast.BinaryOp:
		return v.Pos
	case *ast.UnaryOp:
		return v.Pos
	case *ast.NumberLiteral:
		return v.Pos
	case *ast.BoolLiteral:
		return v.Pos
	case *ast.ArrayAccess:
		return v.Pos
	}
	return ast.Pos{}
}
