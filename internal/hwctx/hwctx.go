// Package hwctx implements the Hardware Analyzer: it walks
// the AST collecting global declarations, classifies each as a State
// (hardware output, has an initializer) or an Input (sampled from outside,
// no initializer), and assigns the dense integer ids the Lowerer needs to
// translate identifiers into state_number/input_number fields.
package hwctx

import (
	"strconv"

	"github.com/philtomson/hotwright/internal/ast"
	"github.com/philtomson/hotwright/internal/diag"
)

// State is one hardware output bit.
type State struct {
	Name         string
	StateNumber  int
	InitialValue bool
	Decl         *ast.VarDecl
}

// Input is one externally-sampled bit.
type Input struct {
	Name        string
	InputNumber int
	Decl        *ast.VarDecl
}

// Context is the Hardware Analyzer's output: the State and Input sequences,
// plus lookup indices by name. It outlives the whole compilation pipeline —
// the Lowerer, Resolver, and Emitter all read from it without mutating it.
type Context struct {
	States []State
	Inputs []Input

	stateByName map[string]int // name -> index into States
	inputByName map[string]int // name -> index into Inputs
}

// LookupState returns the State for name, if any.
func (c *Context) LookupState(name string) (*State, bool) {
	i, ok := c.stateByName[name]
	if !ok {
		return nil, false
	}
	return &c.States[i], true
}

// LookupInput returns the Input for name, if any.
func (c *Context) LookupInput(name string) (*Input, bool) {
	i, ok := c.inputByName[name]
	if !ok {
		return nil, false
	}
	return &c.Inputs[i], true
}

// NumStateSlots returns the size a state vector needs to hold every declared
// State by StateNumber. Suffix-derived numbers (e.g. "LED2" -> 2) need not be
// dense or match declaration order, so this is max(StateNumber)+1 rather than
// len(States).
func (c *Context) NumStateSlots() int {
	n := 0
	for _, s := range c.States {
		if s.StateNumber+1 > n {
			n = s.StateNumber + 1
		}
	}
	return n
}

// Analyze walks prog and builds a Context. It returns a *diag.Error of kind
// DuplicateStateNumber or NameCollision when the declaration invariants
// are violated.
func Analyze(prog *ast.Program) (*Context, error) {
	c := &Context{
		stateByName: map[string]int{},
		inputByName: map[string]int{},
	}

	nextInput := 0
	for _, item := range prog.Items {
		switch d := item.(type) {
		case *ast.VarDecl:
			if err := c.collectVarDecl(d, &nextInput); err != nil {
				return nil, err
			}
		case *ast.FunctionDef:
			if err := c.walkBlock(d.Body, &nextInput); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// walkBlock recurses only into nodes that can hold declarations, per
// Block, If branches, loop bodies, switch case bodies — anywhere a VarDecl
// can legally appear.
// Expression subtrees are never descended into.
func (c *Context) walkBlock(b *ast.Block, nextInput *int) error {
	if b == nil {
		return nil
	}
	for _, s := range b.Stmts {
		if err := c.walkStmt(s, nextInput); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) walkStmt(s ast.Stmt, nextInput *int) error {
	switch n := s.(type) {
	case *ast.VarDecl:
		return c.collectVarDecl(n, nextInput)
	case *ast.Block:
		return c.walkBlock(n, nextInput)
	case *ast.If:
		if err := c.walkBlock(n.Then, nextInput); err != nil {
			return err
		}
		return c.walkBlock(n.Else, nextInput)
	case *ast.While:
		return c.walkBlock(n.Body, nextInput)
	case *ast.For:
		if vd, ok := n.Init.(*ast.VarDecl); ok {
			if err := c.collectVarDecl(vd, nextInput); err != nil {
				return err
			}
		}
		return c.walkBlock(n.Body, nextInput)
	case *ast.Switch:
		for _, cs := range n.Cases {
			for _, stmt := range cs.Body {
				if err := c.walkStmt(stmt, nextInput); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// collectVarDecl classifies one declaration,
// expanding arrays into indexed scalars.
func (c *Context) collectVarDecl(d *ast.VarDecl, nextInput *int) error {
	if d.Type != ast.TypeInt && d.Type != ast.TypeBool && d.Type != ast.TypeChar {
		return nil // _BitInt and friends are out of scope for the engine
	}

	if d.ArraySize > 0 {
		for i := 0; i < d.ArraySize; i++ {
			name := arrayElementName(d.Name, i)
			if err := c.addOne(d, name, i, nextInput); err != nil {
				return err
			}
		}
		return nil
	}
	return c.addOne(d, d.Name, -1, nextInput)
}

func (c *Context) addOne(d *ast.VarDecl, name string, arrayIndex int, nextInput *int) error {
	if _, exists := c.stateByName[name]; exists {
		return diag.At(diag.NameCollision, d.Pos, "name %q declared more than once", name)
	}
	if _, exists := c.inputByName[name]; exists {
		return diag.At(diag.NameCollision, d.Pos, "name %q declared more than once", name)
	}

	if d.Initializer != nil {
		num := arrayIndex
		if num < 0 {
			num = stateNumberFromSuffix(name, len(c.States))
		}
		for _, s := range c.States {
			if s.StateNumber == num {
				return diag.At(diag.DuplicateStateNumber, d.Pos, "state number %d reused by %q and %q", num, s.Name, name)
			}
		}
		st := State{Name: name, StateNumber: num, InitialValue: boolValueOf(d.Initializer), Decl: d}
		c.States = append(c.States, st)
		c.stateByName[name] = len(c.States) - 1
		return nil
	}

	in := Input{Name: name, InputNumber: *nextInput, Decl: d}
	*nextInput++
	c.Inputs = append(c.Inputs, in)
	c.inputByName[name] = len(c.Inputs) - 1
	return nil
}

func arrayElementName(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}

// stateNumberFromSuffix extracts a trailing numeric suffix from name (e.g.
// "LED2" -> 2) to use as the state number, falling back to declaration order
// when the name has none.
func stateNumberFromSuffix(name string, fallback int) int {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return fallback
	}
	n := 0
	for _, c := range name[i:] {
		n = n*10 + int(c-'0')
	}
	return n
}

// boolValueOf computes the Boolean view of a State's initializer.
func boolValueOf(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.BoolLiteral:
		return v.Value
	case *ast.NumberLiteral:
		return v.Value != 0
	default:
		return false
	}
}
