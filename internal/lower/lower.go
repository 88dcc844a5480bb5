// Package lower implements the Microcode Lowerer: it walks the body of
// main() and emits one Instruction per structured construct into a flat,
// addressable array, using a classic backpatch (true-list/false-list)
// scheme for conditions and a frame stack for break/continue targets.
package lower

import (
	"github.com/philtomson/hotwright/internal/ast"
	"github.com/philtomson/hotwright/internal/diag"
	"github.com/philtomson/hotwright/internal/hwctx"
)

// unresolved marks a Jadr that a later patch step must fill in before the
// instruction is emitted to file.
const unresolved = -1

// Instruction is the lowerer's unpacked working form of one microcode word.
type Instruction struct {
	StateSet     int
	StateMask    int
	Jadr         int
	VarSel       int
	TimerSel     int
	TimerLd      int
	SwitchSel    int
	SwitchAdr    int
	StateCapture int
	VarOrTimer   int
	Branch       int
	ForcedJmp    int
	Sub          int
	Rtn          int
	Label        string
}

// JumpKind classifies a PendingJump per spec.
type JumpKind int

const (
	JumpDirect JumpKind = iota
	JumpBreak
	JumpContinue
	JumpExit
)

// PendingJump records an instruction whose Jadr needs a final address. For
// Direct and Exit jumps the Target is filled in here by the Lowerer (Exit is
// left at 0 and computed by the Resolver from the final instruction count).
// For Break and Continue, Target is filled in by popFrame once the
// enclosing frame's addresses are known.
type PendingJump struct {
	InstrIndex int
	Kind       JumpKind
	Target     int
}

type frameKind int

const (
	frameWhile frameKind = iota
	frameFor
	frameSwitch
)

// loopSwitchFrame is pushed for every while/for/switch under lowering so
// break and continue can find their targets without threading them through
// every recursive call.
type loopSwitchFrame struct {
	kind            frameKind
	continueTarget  int
	pendingBreaks   []*PendingJump
	pendingContinue []*PendingJump
}

// jumpList is a set of branch/jump instruction indices whose Jadr all need
// to be patched to the same address once it becomes known — the classic
// true-list/false-list backpatch technique for short-circuit conditions.
type jumpList []int

// Result is everything the Resolver and Emitter need.
type Result struct {
	Instructions []Instruction
	Pending      []*PendingJump
	SwitchTable  []int // flat, BankSize entries per bank
	BankSize     int
	Maxima       Maxima
}

// Maxima holds the largest value observed for each packed field, consumed
// by the Emitter's overflow check.
type Maxima struct {
	State, Mask, Jadr, VarSel                      int
	SwitchSel, SwitchAdr                            int
	StateCapture, VarOrTimer, Branch, ForcedJmp     int
	Sub, Rtn                                        int
}

// Lowerer owns the in-progress instruction array and all lowering-time
// bookkeeping for a single compilation.
type Lowerer struct {
	hw               *hwctx.Context
	switchOffsetBits int
	bankSize         int

	instructions []Instruction
	pending      []*PendingJump
	frames       []*loopSwitchFrame
	switchTable  []int
	maxima       Maxima
}

// New creates a Lowerer. switchOffsetBits controls the size of every switch
// bank (2^switchOffsetBits entries); the hardware's default is 8.
func New(hw *hwctx.Context, switchOffsetBits int) *Lowerer {
	if switchOffsetBits <= 0 {
		switchOffsetBits = 8
	}
	return &Lowerer{
		hw:               hw,
		switchOffsetBits: switchOffsetBits,
		bankSize:         1 << switchOffsetBits,
	}
}

// Lower lowers main's body and returns the working pipeline state.
func (lw *Lowerer) Lower(body *ast.Block) (*Result, error) {
	if err := lw.lowerStmtList(body.Stmts); err != nil {
		return nil, err
	}
	// Backpatched and pending jump targets are only final now, so fold them
	// into the JADR maximum that the emit-time updates could not see.
	for _, instr := range lw.instructions {
		lw.maxima.Jadr = max(lw.maxima.Jadr, instr.Jadr)
	}
	for _, pj := range lw.pending {
		target := pj.Target
		if pj.Kind == JumpExit {
			target = len(lw.instructions)
		}
		lw.maxima.Jadr = max(lw.maxima.Jadr, target)
	}
	return &Result{
		Instructions: lw.instructions,
		Pending:      lw.pending,
		SwitchTable:  lw.switchTable,
		BankSize:     lw.bankSize,
		Maxima:       lw.maxima,
	}, nil
}

func (lw *Lowerer) emit(instr Instruction) int {
	idx := len(lw.instructions)
	lw.instructions = append(lw.instructions, instr)
	lw.updateMaxima(instr)
	return idx
}

func (lw *Lowerer) updateMaxima(i Instruction) {
	m := &lw.maxima
	m.State = max(m.State, i.StateSet)
	m.Mask = max(m.Mask, i.StateMask)
	m.Jadr = max(m.Jadr, i.Jadr)
	m.VarSel = max(m.VarSel, i.VarSel)
	m.SwitchSel = max(m.SwitchSel, i.SwitchSel)
	m.SwitchAdr = max(m.SwitchAdr, i.SwitchAdr)
	m.StateCapture = max(m.StateCapture, i.StateCapture)
	m.VarOrTimer = max(m.VarOrTimer, i.VarOrTimer)
	m.Branch = max(m.Branch, i.Branch)
	m.ForcedJmp = max(m.ForcedJmp, i.ForcedJmp)
	m.Sub = max(m.Sub, i.Sub)
	m.Rtn = max(m.Rtn, i.Rtn)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (lw *Lowerer) addPending(instrIdx int, kind JumpKind, target int) *PendingJump {
	pj := &PendingJump{InstrIndex: instrIdx, Kind: kind, Target: target}
	lw.pending = append(lw.pending, pj)
	return pj
}

func (lw *Lowerer) patch(list jumpList, addr int) {
	for _, idx := range list {
		lw.instructions[idx].Jadr = addr
	}
}

func (lw *Lowerer) pushFrame(f *loopSwitchFrame) { lw.frames = append(lw.frames, f) }

func (lw *Lowerer) topFrame() *loopSwitchFrame {
	if len(lw.frames) == 0 {
		return nil
	}
	return lw.frames[len(lw.frames)-1]
}

func (lw *Lowerer) popFrame(breakTarget int) {
	f := lw.frames[len(lw.frames)-1]
	lw.frames = lw.frames[:len(lw.frames)-1]
	for _, pj := range f.pendingBreaks {
		pj.Target = breakTarget
	}
	for _, pj := range f.pendingContinue {
		pj.Target = f.continueTarget
	}
}

// lowerStmtList lowers a statement sequence, merging consecutive state
// assignments into a single instruction: consecutive assignments within a
// block commit together on the same cycle.
func (lw *Lowerer) lowerStmtList(stmts []ast.Stmt) error {
	i := 0
	for i < len(stmts) {
		if _, ok := stmts[i].(*ast.Assignment); ok {
			setBits, maskBits := 0, 0
			j := i
			for j < len(stmts) {
				a, ok := stmts[j].(*ast.Assignment)
				if !ok {
					break
				}
				bit, val, err := lw.assignmentBit(a)
				if err != nil {
					return err
				}
				maskBits |= 1 << uint(bit)
				if val {
					setBits |= 1 << uint(bit)
				}
				j++
			}
			lw.emit(Instruction{StateSet: setBits, StateMask: maskBits, StateCapture: 1, VarOrTimer: 1})
			i = j
			continue
		}
		if err := lw.lowerStmt(stmts[i]); err != nil {
			return err
		}
		i++
	}
	return nil
}

func (lw *Lowerer) lowerStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.VarDecl:
		return nil // globals are handled by the Hardware Analyzer, not lowered
	case *ast.Block:
		return lw.lowerStmtList(n.Stmts)
	case *ast.If:
		return lw.lowerIf(n)
	case *ast.While:
		return lw.lowerWhile(n)
	case *ast.For:
		return lw.lowerFor(n)
	case *ast.Switch:
		return lw.lowerSwitch(n)
	case *ast.Break:
		return lw.lowerBreak(n)
	case *ast.Continue:
		return lw.lowerContinue(n)
	case *ast.Return:
		return lw.lowerReturn(n)
	case *ast.ExprStmt:
		if call, ok := n.X.(*ast.CallExpr); ok && call.Name != "main" {
			return diag.At(diag.UnsupportedConstruct, call.Pos, "call to %q has no runtime semantics in this engine", call.Name)
		}
		return nil // no observable effect on state; elided
	case *ast.Assignment:
		bit, val, err := lw.assignmentBit(n)
		if err != nil {
			return err
		}
		setBits := 0
		if val {
			setBits = 1 << uint(bit)
		}
		lw.emit(Instruction{StateSet: setBits, StateMask: 1 << uint(bit), StateCapture: 1, VarOrTimer: 1})
		return nil
	default:
		return diag.At(diag.UnsupportedConstruct, exprPosOfStmt(s), "unsupported statement")
	}
}

// assignmentBit resolves a state assignment's LHS to its state_number and
// evaluates a constant-truthy RHS. Non-constant RHS (e.g. `x = x + 1`) is
// rejected per the Open-Question decision that the lowerer must not
// silently drop arithmetic it cannot represent in the engine's Boolean
// state model.
func (lw *Lowerer) assignmentBit(a *ast.Assignment) (bit int, val bool, err error) {
	name, pos, err := lhsStateName(a.LHS)
	if err != nil {
		return 0, false, err
	}
	st, ok := lw.hw.LookupState(name)
	if !ok {
		return 0, false, diag.At(diag.UnsupportedConstruct, pos, "assignment target %q does not resolve to a declared state", name)
	}
	switch rhs := a.RHS.(type) {
	case *ast.BoolLiteral:
		return st.StateNumber, rhs.Value, nil
	case *ast.NumberLiteral:
		return st.StateNumber, rhs.Value != 0, nil
	default:
		return 0, false, diag.At(diag.UnsupportedConstruct, a.Pos, "assignment to state %q must have a constant right-hand side; arithmetic is not lowered", name)
	}
}

func lhsStateName(e ast.Expr) (string, ast.Pos, error) {
	switch v := e.(type) {
	case *ast.Identifier:
		return v.Name, v.Pos, nil
	case *ast.ArrayAccess:
		idx, ok := v.Index.(*ast.NumberLiteral)
		if !ok {
			return "", v.Pos, diag.At(diag.UnsupportedConstruct, v.Pos, "array index on assignment target %q must be a constant", v.Name)
		}
		return arrayElementName(v.Name, int(idx.Value)), v.Pos, nil
	default:
		return "", exprPos(e), diag.At(diag.UnsupportedConstruct, exprPos(e), "unsupported assignment target")
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

func (lw *Lowerer) lowerIf(n *ast.If) error {
	trueList, falseList, err := lw.lowerCondition(n.Cond)
	if err != nil {
		return err
	}
	thenStart := len(lw.instructions)
	lw.patch(trueList, thenStart)
	if err := lw.lowerStmtList(n.Then.Stmts); err != nil {
		return err
	}
	if n.Else != nil {
		skipIdx := lw.emit(Instruction{ForcedJmp: 1, Jadr: unresolved})
		pj := lw.addPending(skipIdx, JumpDirect, 0)
		elseStart := len(lw.instructions)
		lw.patch(falseList, elseStart)
		if err := lw.lowerStmtList(n.Else.Stmts); err != nil {
			return err
		}
		pj.Target = len(lw.instructions)
		return nil
	}
	postIf := len(lw.instructions)
	lw.patch(falseList, postIf)
	return nil
}

func (lw *Lowerer) lowerWhile(n *ast.While) error {
	loopTop := len(lw.instructions)
	frame := &loopSwitchFrame{kind: frameWhile, continueTarget: loopTop}
	lw.pushFrame(frame)

	trueList, falseList, err := lw.lowerCondition(n.Cond)
	if err != nil {
		return err
	}
	bodyStart := len(lw.instructions)
	lw.patch(trueList, bodyStart)
	if err := lw.lowerStmtList(n.Body.Stmts); err != nil {
		return err
	}
	lw.emit(Instruction{ForcedJmp: 1, Jadr: loopTop})
	postLoop := len(lw.instructions)
	lw.patch(falseList, postLoop)
	lw.popFrame(postLoop)
	return nil
}

func (lw *Lowerer) lowerFor(n *ast.For) error {
	if n.Init != nil {
		if err := lw.lowerForClause(n.Init); err != nil {
			return err
		}
	}
	loopTop := len(lw.instructions)
	frame := &loopSwitchFrame{kind: frameFor, continueTarget: loopTop}
	lw.pushFrame(frame)

	var trueList, falseList jumpList
	if n.Cond != nil {
		var err error
		trueList, falseList, err = lw.lowerCondition(n.Cond)
		if err != nil {
			return err
		}
	}
	bodyStart := len(lw.instructions)
	lw.patch(trueList, bodyStart)
	if err := lw.lowerStmtList(n.Body.Stmts); err != nil {
		return err
	}

	// continue targets the update, not the loop top, per the Open-Question
	// decision — the frame's pending continues are only resolved at pop
	// time, so overwriting continueTarget here is safe even though some
	// continues in Body were lowered before this line ran.
	frame.continueTarget = len(lw.instructions)
	if n.Update != nil {
		if err := lw.lowerForClause(n.Update); err != nil {
			return err
		}
	}
	lw.emit(Instruction{ForcedJmp: 1, Jadr: loopTop})
	postLoop := len(lw.instructions)
	lw.patch(falseList, postLoop)
	lw.popFrame(postLoop)
	return nil
}

// lowerForClause lowers a for-loop's init or update clause, which must be a
// single constant state assignment for the same reason general assignments
// are restricted (see assignmentBit).
func (lw *Lowerer) lowerForClause(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.VarDecl:
		if n.Initializer == nil {
			return nil
		}
		st, ok := lw.hw.LookupState(n.Name)
		if !ok {
			return nil // declared as an Input; nothing to emit
		}
		val, err := constBoolValue(n.Initializer, n.Pos, n.Name)
		if err != nil {
			return err
		}
		lw.emit(Instruction{StateSet: boolBit(val, st.StateNumber), StateMask: 1 << uint(st.StateNumber), StateCapture: 1, VarOrTimer: 1})
		return nil
	case *ast.Assignment:
		bit, val, err := lw.assignmentBit(n)
		if err != nil {
			return err
		}
		lw.emit(Instruction{StateSet: boolBit(val, bit), StateMask: 1 << uint(bit), StateCapture: 1, VarOrTimer: 1})
		return nil
	default:
		return diag.At(diag.UnsupportedConstruct, exprPosOfStmt(s), "unsupported for-loop clause")
	}
}

func boolBit(v bool, bit int) int {
	if v {
		return 1 << uint(bit)
	}
	return 0
}

func constBoolValue(e ast.Expr, pos ast.Pos, name string) (bool, error) {
	switch v := e.(type) {
	case *ast.BoolLiteral:
		return v.Value, nil
	case *ast.NumberLiteral:
		return v.Value != 0, nil
	default:
		return false, diag.At(diag.UnsupportedConstruct, pos, "initializer for state %q must be constant", name)
	}
}

func (lw *Lowerer) lowerBreak(n *ast.Break) error {
	f := lw.topFrame()
	if f == nil {
		return diag.At(diag.UnsupportedConstruct, n.Pos, "break outside of a loop or switch")
	}
	idx := lw.emit(Instruction{ForcedJmp: 1, Jadr: unresolved})
	pj := lw.addPending(idx, JumpBreak, 0)
	f.pendingBreaks = append(f.pendingBreaks, pj)
	return nil
}

func (lw *Lowerer) lowerContinue(n *ast.Continue) error {
	f := lw.topFrame()
	if f == nil {
		return diag.At(diag.UnsupportedConstruct, n.Pos, "continue outside of a loop")
	}
	if f.kind == frameSwitch {
		return diag.At(diag.UnsupportedConstruct, n.Pos, "continue is not supported inside a switch frame")
	}
	idx := lw.emit(Instruction{ForcedJmp: 1, Jadr: unresolved})
	pj := lw.addPending(idx, JumpContinue, 0)
	f.pendingContinue = append(f.pendingContinue, pj)
	return nil
}

func (lw *Lowerer) lowerReturn(n *ast.Return) error {
	idx := lw.emit(Instruction{ForcedJmp: 1, Jadr: unresolved})
	lw.addPending(idx, JumpExit, 0)
	return nil
}

func (lw *Lowerer) lowerSwitch(n *ast.Switch) error {
	varsel, err := lw.resolveSwitchScrutinee(n.Scrutinee)
	if err != nil {
		return err
	}
	// Bank indices are 1-based: switch_sel == 0 on a forced_jmp instruction
	// unambiguously means "plain jump", since the packed word has no
	// separate is-a-switch bit.
	bankIndex := len(lw.switchTable)/lw.bankSize + 1
	bankStart := (bankIndex - 1) * lw.bankSize
	lw.switchTable = append(lw.switchTable, make([]int, lw.bankSize)...)
	for i := bankStart; i < bankStart+lw.bankSize; i++ {
		lw.switchTable[i] = unresolved
	}

	frame := &loopSwitchFrame{kind: frameSwitch}
	lw.pushFrame(frame)

	dispatchIdx := lw.emit(Instruction{ForcedJmp: 1, SwitchSel: bankIndex, SwitchAdr: varsel, VarOrTimer: 1, Jadr: unresolved})

	type literalEntry struct {
		value, addr int
	}
	var literals []literalEntry
	defaultAddr := -1

	for _, cs := range n.Cases {
		caseAddr := len(lw.instructions)
		if cs.Value == nil {
			defaultAddr = caseAddr
		} else {
			v := int(cs.Value.Value)
			if v < 0 || v >= lw.bankSize {
				return diag.At(diag.UnsupportedConstruct, cs.Pos, "case value %d exceeds switch bank capacity %d", v, lw.bankSize)
			}
			literals = append(literals, literalEntry{v, caseAddr})
		}
		if err := lw.lowerStmtList(cs.Body); err != nil {
			return err
		}
	}

	postSwitch := len(lw.instructions)
	lw.instructions[dispatchIdx].Jadr = postSwitch
	if defaultAddr == -1 {
		defaultAddr = postSwitch
	}
	for i := bankStart; i < bankStart+lw.bankSize; i++ {
		lw.switchTable[i] = defaultAddr
	}
	for _, le := range literals {
		lw.switchTable[bankStart+le.value] = le.addr
	}

	lw.popFrame(postSwitch)
	return nil
}

func (lw *Lowerer) resolveSwitchScrutinee(e ast.Expr) (int, error) {
	id, ok := e.(*ast.Identifier)
	if !ok {
		return 0, diag.At(diag.UnsupportedConstruct, exprPos(e), "switch scrutinee must be a bare input identifier")
	}
	in, ok := lw.hw.LookupInput(id.Name)
	if !ok {
		return 0, diag.At(diag.UnsupportedConstruct, id.Pos, "switch scrutinee %q does not resolve to a declared input", id.Name)
	}
	return in.InputNumber, nil
}

// lowerCondition lowers cond into zero or more branch/jump instructions and
// returns (trueList, falseList): instruction indices whose Jadr must be
// patched to the address reached when the condition is true, respectively
// false. Every leaf test emits an explicit jump for both outcomes so that
// && / || / ! compose by simple backpatching, since the underlying hardware
// branch only tests "bit set" and has no other polarity.
func (lw *Lowerer) lowerCondition(cond ast.Expr) (trueList, falseList jumpList, err error) {
	switch e := cond.(type) {
	case *ast.Identifier:
		return lw.lowerIdentityTest(e.Name, true, e.Pos)
	case *ast.NumberLiteral, *ast.BoolLiteral:
		// A constant condition such as the free-running `while (1)`: true
		// falls straight through into the true path, false jumps away.
		if n, ok := e.(*ast.NumberLiteral); (ok && n.Value != 0) || (!ok && e.(*ast.BoolLiteral).Value) {
			return nil, nil, nil
		}
		idx := lw.emit(Instruction{ForcedJmp: 1, Jadr: unresolved})
		return nil, jumpList{idx}, nil
	case *ast.UnaryOp:
		if e.Op != "!" {
			return nil, nil, diag.At(diag.UnsupportedCondition, e.Pos, "unsupported unary operator %q in condition", e.Op)
		}
		return lw.lowerNegatedCondition(e.X)
	case *ast.BinaryOp:
		switch e.Op {
		case "&&":
			return lw.lowerAnd(e.Left, e.Right)
		case "||":
			return lw.lowerOr(e.Left, e.Right)
		case "==", "!=", "<", "<=", ">", ">=":
			return lw.lowerComparison(e)
		default:
			return nil, nil, diag.At(diag.UnsupportedCondition, e.Pos, "unsupported operator %q in condition", e.Op)
		}
	default:
		return nil, nil, diag.At(diag.UnsupportedCondition, exprPos(cond), "unsupported condition shape")
	}
}

func (lw *Lowerer) lowerAnd(left, right ast.Expr) (jumpList, jumpList, error) {
	trueA, falseA, err := lw.lowerCondition(left)
	if err != nil {
		return nil, nil, err
	}
	bStart := len(lw.instructions)
	lw.patch(trueA, bStart)
	trueB, falseB, err := lw.lowerCondition(right)
	if err != nil {
		return nil, nil, err
	}
	return trueB, append(falseA, falseB...), nil
}

func (lw *Lowerer) lowerOr(left, right ast.Expr) (jumpList, jumpList, error) {
	trueA, falseA, err := lw.lowerCondition(left)
	if err != nil {
		return nil, nil, err
	}
	bStart := len(lw.instructions)
	lw.patch(falseA, bStart)
	trueB, falseB, err := lw.lowerCondition(right)
	if err != nil {
		return nil, nil, err
	}
	return append(trueA, trueB...), falseB, nil
}

func (lw *Lowerer) lowerNegatedCondition(x ast.Expr) (jumpList, jumpList, error) {
	switch e := x.(type) {
	case *ast.Identifier:
		return lw.lowerIdentityTest(e.Name, false, e.Pos)
	case *ast.UnaryOp:
		if e.Op != "!" {
			return nil, nil, diag.At(diag.UnsupportedCondition, e.Pos, "unsupported unary operator %q in condition", e.Op)
		}
		return lw.lowerCondition(e.X) // !!A == A
	case *ast.BinaryOp:
		switch e.Op {
		case "&&": // De Morgan: !(A && B) == !A || !B
			return lw.lowerOr(&ast.UnaryOp{Pos: e.Pos, Op: "!", X: e.Left}, &ast.UnaryOp{Pos: e.Pos, Op: "!", X: e.Right})
		case "||": // !(A || B) == !A && !B
			return lw.lowerAnd(&ast.UnaryOp{Pos: e.Pos, Op: "!", X: e.Left}, &ast.UnaryOp{Pos: e.Pos, Op: "!", X: e.Right})
		case "==", "!=", "<", "<=", ">", ">=":
			return lw.lowerComparison(&ast.BinaryOp{Pos: e.Pos, Op: negateRelOp(e.Op), Left: e.Left, Right: e.Right})
		default:
			return nil, nil, diag.At(diag.UnsupportedCondition, e.Pos, "unsupported operator %q in condition", e.Op)
		}
	default:
		return nil, nil, diag.At(diag.UnsupportedCondition, exprPos(x), "unsupported condition shape")
	}
}

func negateRelOp(op string) string {
	switch op {
	case "==":
		return "!="
	case "!=":
		return "=="
	case "<":
		return ">="
	case "<=":
		return ">"
	case ">":
		return "<="
	case ">=":
		return "<"
	}
	return op
}

// lowerIdentityTest emits the two-instruction leaf test for a bare input
// identifier: a branch taken when the bit is set, followed by an
// unconditional jump taken only when it is not. wantTrue==false swaps the
// resulting lists, giving a negated test without a third instruction.
// The branch instruction leaves VarOrTimer/TimerSel/TimerLd at zero; these
// three fields are vestigial under internal/engine.Run, which never reads
// them.
func (lw *Lowerer) lowerIdentityTest(name string, wantTrue bool, pos ast.Pos) (jumpList, jumpList, error) {
	in, ok := lw.hw.LookupInput(name)
	if !ok {
		return nil, nil, diag.At(diag.UnsupportedCondition, pos, "condition identifier %q does not resolve to a declared input", name)
	}
	idxBranch := lw.emit(Instruction{Branch: 1, VarSel: in.InputNumber, Jadr: unresolved})
	idxJump := lw.emit(Instruction{ForcedJmp: 1, Jadr: unresolved})
	if wantTrue {
		return jumpList{idxBranch}, jumpList{idxJump}, nil
	}
	return jumpList{idxJump}, jumpList{idxBranch}, nil
}

// lowerComparison reduces a relational/equality condition against a single
// Boolean-sampled input to one of {always-true, always-false, identity,
// negated-identity}. The engine's data model has no runtime integer
// arithmetic, so an "integer" input still only ever
// carries one sampled bit; a relation against any constant is therefore
// statically decidable once the bit's two possible values are evaluated.
// There is accordingly no switch-dispatch fallback case here; see DESIGN.md
// OQ4.
func (lw *Lowerer) lowerComparison(e *ast.BinaryOp) (jumpList, jumpList, error) {
	name, pos, n, swapped, err := splitComparison(e)
	if err != nil {
		return nil, nil, err
	}
	op := e.Op
	if swapped {
		op = swapRelOp(op)
	}
	whenZero := evalRel(op, 0, n)
	whenOne := evalRel(op, 1, n)

	switch {
	case whenZero && whenOne:
		idx := lw.emit(Instruction{ForcedJmp: 1, Jadr: unresolved})
		return jumpList{idx}, nil, nil
	case !whenZero && !whenOne:
		idx := lw.emit(Instruction{ForcedJmp: 1, Jadr: unresolved})
		return nil, jumpList{idx}, nil
	case !whenZero && whenOne:
		return lw.lowerIdentityTest(name, true, pos)
	default: // whenZero && !whenOne
		return lw.lowerIdentityTest(name, false, pos)
	}
}

// splitComparison pulls the identifier name and integer constant out of a
// comparison in either operand order.
func splitComparison(e *ast.BinaryOp) (name string, pos ast.Pos, n int64, swapped bool, err error) {
	if id, ok := e.Left.(*ast.Identifier); ok {
		if lit, ok := e.Right.(*ast.NumberLiteral); ok {
			return id.Name, id.Pos, lit.Value, false, nil
		}
	}
	if id, ok := e.Right.(*ast.Identifier); ok {
		if lit, ok := e.Left.(*ast.NumberLiteral); ok {
			return id.Name, id.Pos, lit.Value, true, nil
		}
	}
	return "", exprPos(e), 0, false, diag.At(diag.UnsupportedCondition, e.Pos, "comparison must be between an input identifier and a constant")
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

func evalRel(op string, lhs, rhs int64) bool {
	switch op {
	case "==":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	case "<":
		return lhs < rhs
	case "<=":
		return lhs <= rhs
	case ">":
		return lhs > rhs
	case ">=":
		return lhs >= rhs
	}
	return false
}

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
	case *ast.CallExpr:
		return v.Pos
	case *ast.Assignment:
		return v.Pos
	}
	return ast.Pos{}
}

func exprPosOfStmt(s ast.Stmt) ast.Pos {
	switch v := s.(type) {
	case *ast.Block:
		return v.Pos
	case *ast.If:
		return v.Pos
	case *ast.While:
		return v.Pos
	case *ast.For:
		return v.Pos
	case *ast.Switch:
		return v.Pos
	case *ast.Break:
		return v.Pos
	case *ast.Continue:
		return v.Pos
	case *ast.Return:
		return v.Pos
	case *ast.ExprStmt:
		return v.Pos
	case *ast.Assignment:
		return v.Pos
	case *ast.VarDecl:
		return v.Pos
	}
	return ast.Pos{}
}
