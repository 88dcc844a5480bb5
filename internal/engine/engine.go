// Package engine is a software simulator of the hotstate hardware: given a
// resolved instruction program and an input vector, it steps the same
// fetch/decode/execute cycle the FPGA microcode sequencer performs, so the
// compiler can be checked against a reference interpretation without
// needing real hardware. The dispatch loop mirrors a classic instruction-exec
// switch, generalized from per-opcode register mutation to per-field
// state-bit capture and branch/jump address selection.
package engine

import (
	"fmt"

	"github.com/philtomson/hotwright/internal/lower"
)

// FromLowered converts the Lowerer's resolved working form into the
// engine's execution view.
func FromLowered(instrs []lower.Instruction, switchTable []int, bankSize int) *Program {
	words := make([]Word, len(instrs))
	for i, ins := range instrs {
		words[i] = Word{
			StateSet:     ins.StateSet,
			StateMask:    ins.StateMask,
			Jadr:         ins.Jadr,
			VarSel:       ins.VarSel,
			SwitchSel:    ins.SwitchSel,
			SwitchAdr:    ins.SwitchAdr,
			StateCapture: ins.StateCapture != 0,
			Branch:       ins.Branch != 0,
			ForcedJmp:    ins.ForcedJmp != 0,
		}
	}
	return &Program{Words: words, SwitchTable: switchTable, BankSize: bankSize}
}

// Vector is one sample of every declared input, indexed by input_number.
type Vector []bool

// State is the engine's register file: one bit per declared state output,
// indexed by state_number. It is a small value type, cheap to copy and
// compare, the same way a CPU register file would be modeled.
type State []bool

// Equal reports whether two states hold the same bits.
func (s State) Equal(o State) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

func (s State) String() string {
	out := make([]byte, len(s))
	for i, b := range s {
		if b {
			out[i] = '1'
		} else {
			out[i] = '0'
		}
	}
	return string(out)
}

// Word is the engine's view of one microcode instruction — the fields it
// needs to step, independent of how they were packed on disk.
type Word struct {
	StateSet     int
	StateMask    int
	Jadr         int
	VarSel       int
	SwitchSel    int
	SwitchAdr    int
	StateCapture bool
	Branch       bool
	ForcedJmp    bool
}

// Program is everything the engine needs to execute: the instruction
// stream, the flat switch table, and its per-bank size.
type Program struct {
	Words       []Word
	SwitchTable []int
	BankSize    int
}

// ErrRuntimeFault is returned when the simulated program addresses outside
// its own instruction stream and past its post-program exit address — a
// defect in the Lowerer/Resolver, never a condition a well-formed program
// should hit.
type ErrRuntimeFault struct {
	PC  int
	Len int
}

func (e *ErrRuntimeFault) Error() string {
	return fmt.Sprintf("engine: program counter %d out of range [0,%d)", e.PC, e.Len)
}

// Run executes prog against in starting from the given initial state (all
// states start at their HardwareContext initial_value) for up to maxCycles
// fetch/decode/execute steps, sampling the same input vector every cycle
// (the engine has no notion of time-varying inputs within one run — callers
// step multiple Runs for that). Reaching the post-program exit address
// (len(prog.Words), the target of a resolved Exit jump) halts the run. It
// returns the state after the final cycle.
func Run(prog *Program, initial State, in Vector, maxCycles int) (State, error) {
	st := make(State, len(initial))
	copy(st, initial)

	pc := 0
	for cycle := 0; cycle < maxCycles; cycle++ {
		if pc == len(prog.Words) {
			break
		}
		if pc < 0 || pc > len(prog.Words) {
			return nil, &ErrRuntimeFault{PC: pc, Len: len(prog.Words)}
		}
		w := prog.Words[pc]
		next := pc + 1

		if w.StateCapture {
			applyCapture(st, w.StateSet, w.StateMask)
		}

		switch {
		case w.Branch:
			if sampleBit(in, w.VarSel) {
				next = w.Jadr
			}
		case w.ForcedJmp && w.SwitchSel > 0:
			// switch_sel is 1-based precisely so it can double as the
			// "this forced_jmp is a dispatch" flag.
			target, err := dispatch(prog, w, in)
			if err != nil {
				return nil, err
			}
			next = target
		case w.ForcedJmp:
			next = w.Jadr
		}
		pc = next
	}
	return st, nil
}

func dispatch(prog *Program, w Word, in Vector) (int, error) {
	offset := inputValue(in, w.SwitchAdr, prog.BankSize)
	idx := (w.SwitchSel-1)*prog.BankSize + offset
	if idx < 0 || idx >= len(prog.SwitchTable) {
		return 0, fmt.Errorf("engine: switch index %d out of range", idx)
	}
	return prog.SwitchTable[idx], nil
}

func applyCapture(st State, set, mask int) {
	for bit := 0; bit < len(st); bit++ {
		if mask&(1<<uint(bit)) == 0 {
			continue
		}
		st[bit] = set&(1<<uint(bit)) != 0
	}
}

func sampleBit(in Vector, sel int) bool {
	if sel < 0 || sel >= len(in) {
		return false
	}
	return in[sel]
}

// inputValue reads the single input bit at sel as the switch offset: 1 when
// the bit is set and the bank has room for offset 1, otherwise 0. Multi-bit
// scrutinees are not read; in this compiler a scrutinee is always a single
// declared Input.
func inputValue(in Vector, sel, bankSize int) int {
	if sampleBit(in, sel) {
		if bankSize > 1 {
			return 1
		}
		return 0
	}
	return 0
}
