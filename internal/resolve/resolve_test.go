package resolve

import (
	"testing"

	"github.com/philtomson/hotwright/internal/diag"
	"github.com/philtomson/hotwright/internal/lower"
)

func TestResolveDirectAndExitJumps(t *testing.T) {
	instrs := []lower.Instruction{
		{ForcedJmp: 1, Jadr: -1},
		{StateCapture: 1},
		{ForcedJmp: 1, Jadr: -1},
	}
	pending := []*lower.PendingJump{
		{InstrIndex: 0, Kind: lower.JumpDirect, Target: 1},
		{InstrIndex: 2, Kind: lower.JumpExit, Target: 0},
	}

	if err := Resolve(instrs, pending); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if instrs[0].Jadr != 1 {
		t.Errorf("direct jump: got Jadr %d, want 1", instrs[0].Jadr)
	}
	if instrs[2].Jadr != len(instrs) {
		t.Errorf("exit jump: got Jadr %d, want %d", instrs[2].Jadr, len(instrs))
	}
}

func TestResolveRejectsUnsetTarget(t *testing.T) {
	instrs := []lower.Instruction{{ForcedJmp: 1, Jadr: -1}}
	pending := []*lower.PendingJump{{InstrIndex: 0, Kind: lower.JumpBreak, Target: -1}}

	err := Resolve(instrs, pending)
	if err == nil {
		t.Fatal("expected an error for a break jump whose target was never patched")
	}
	de, ok := err.(*diag.Error)
	if !ok {
		t.Fatalf("expected *diag.Error, got %T", err)
	}
	if de.Kind != diag.UnresolvedJump {
		t.Errorf("got kind %v, want %v", de.Kind, diag.UnresolvedJump)
	}
}

func TestResolveRejectsOutOfRangeInstrIndex(t *testing.T) {
	instrs := []lower.Instruction{{ForcedJmp: 1, Jadr: -1}}
	pending := []*lower.PendingJump{{InstrIndex: 5, Kind: lower.JumpDirect, Target: 0}}

	err := Resolve(instrs, pending)
	if err == nil {
		t.Fatal("expected an error for a pending jump referencing an out-of-range instruction")
	}
	de, ok := err.(*diag.Error)
	if !ok {
		t.Fatalf("expected *diag.Error, got %T", err)
	}
	if de.Kind != diag.UnresolvedJump {
		t.Errorf("got kind %v, want %v", de.Kind, diag.UnresolvedJump)
	}
}

func TestResolveBreakAndContinueTargetsAlreadySet(t *testing.T) {
	// Break/Continue targets are filled in by the Lowerer's popFrame before
	// Resolve ever sees them; Resolve just copies Target into Jadr.
	instrs := []lower.Instruction{{ForcedJmp: 1, Jadr: -1}}
	pending := []*lower.PendingJump{{InstrIndex: 0, Kind: lower.JumpBreak, Target: 0}}

	if err := Resolve(instrs, pending); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if instrs[0].Jadr != 0 {
		t.Errorf("got Jadr %d, want 0", instrs[0].Jadr)
	}
}
