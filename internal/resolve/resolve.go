// Package resolve implements the Jump Resolver: the second pass that
// patches every PendingJump's recorded target into its instruction's jadr
// field, after the full body has been lowered and all targets are known.
package resolve

import (
	"github.com/philtomson/hotwright/internal/diag"
	"github.com/philtomson/hotwright/internal/lower"
)

// Resolve patches every pending jump into instrs in place; the pending list
// itself is left unchanged. It returns a fatal UnresolvedJump error if any
// jump still lacks a concrete target or names an out-of-range instruction.
func Resolve(instrs []lower.Instruction, pending []*lower.PendingJump) error {
	exitAddr := len(instrs)
	for _, pj := range pending {
		target := pj.Target
		if pj.Kind == lower.JumpExit {
			target = exitAddr
		}
		if target < 0 {
			return diag.New(diag.UnresolvedJump, "instruction %d has an unresolved %s jump", pj.InstrIndex, jumpKindName(pj.Kind))
		}
		if pj.InstrIndex < 0 || pj.InstrIndex >= len(instrs) {
			return diag.New(diag.UnresolvedJump, "pending jump references out-of-range instruction %d", pj.InstrIndex)
		}
		instrs[pj.InstrIndex].Jadr = target
	}
	return nil
}

func jumpKindName(k lower.JumpKind) string {
	switch k {
	case lower.JumpDirect:
		return "direct"
	case lower.JumpBreak:
		return "break"
	case lower.JumpContinue:
		return "continue"
	case lower.JumpExit:
		return "exit"
	default:
		return "unknown"
	}
}
