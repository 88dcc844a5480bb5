// Package emit implements the Packer/Emitter: it packs resolved
// instructions into fixed-width words per the configured bit layout,
// validates that no field overflows its declared width, and writes the
// microcode, variable-data, and switch-memory images.
package emit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/philtomson/hotwright/internal/diag"
	"github.com/philtomson/hotwright/internal/hwctx"
	"github.com/philtomson/hotwright/internal/layout"
	"github.com/philtomson/hotwright/internal/lower"
)

// Images holds the packed output before it is written to disk, so callers
// (the CLI, tests, the simulator) can inspect it without round-tripping
// through the filesystem.
type Images struct {
	Words       []uint64 // one packed word per instruction
	VarData     []byte   // one byte per declared input
	SwitchTable []int    // unpacked switch-bank addresses, as built by the lowerer
	WordWidth   int

	// StateNames and InputNames, in declaration order, give the Verilog
	// wrapper its port list. Neither affects the packed .mem contents.
	StateNames []string
	InputNames []string
}

// Pack validates field maxima against the layout and packs every
// instruction into a single word, MSB to LSB in layout.Order.
func Pack(instrs []lower.Instruction, maxima lower.Maxima, hw *hwctx.Context, l *layout.Layout) (*Images, error) {
	if err := checkOverflow(l, maxima); err != nil {
		return nil, err
	}

	words := make([]uint64, len(instrs))
	for i, instr := range instrs {
		w, err := packOne(l, instr)
		if err != nil {
			return nil, err
		}
		words[i] = w
	}

	varData := make([]byte, len(hw.Inputs))
	for i := range hw.Inputs {
		varData[i] = byte(i) // identity mapping: input i lives at vardata offset i
	}

	stateNames := make([]string, len(hw.States))
	for i, s := range hw.States {
		stateNames[i] = s.Name
	}
	inputNames := make([]string, len(hw.Inputs))
	for i, in := range hw.Inputs {
		inputNames[i] = in.Name
	}

	return &Images{
		Words:       words,
		VarData:     varData,
		SwitchTable: nil,
		WordWidth:   l.TotalWidth(),
		StateNames:  stateNames,
		InputNames:  inputNames,
	}, nil
}

func checkOverflow(l *layout.Layout, m lower.Maxima) error {
	checks := []struct {
		field string
		value int
	}{
		{layout.State, m.State}, {layout.Mask, m.Mask}, {layout.Jadr, m.Jadr},
		{layout.VarSel, m.VarSel}, {layout.SwitchSel, m.SwitchSel}, {layout.SwitchAdr, m.SwitchAdr},
		{layout.StateCapture, m.StateCapture}, {layout.VarOrTimer, m.VarOrTimer},
		{layout.Branch, m.Branch}, {layout.ForcedJmp, m.ForcedJmp},
		{layout.Sub, m.Sub}, {layout.Rtn, m.Rtn},
	}
	for _, c := range checks {
		limit := l.Limit(c.field)
		if c.value > limit {
			return diag.Overflow(c.field, c.value, limit)
		}
	}
	return nil
}

func packOne(l *layout.Layout, instr lower.Instruction) (uint64, error) {
	values := map[string]int{
		layout.State: instr.StateSet, layout.Mask: instr.StateMask, layout.Jadr: instr.Jadr,
		layout.VarSel: instr.VarSel, layout.TimerSel: instr.TimerSel, layout.TimerLd: instr.TimerLd,
		layout.SwitchSel: instr.SwitchSel, layout.SwitchAdr: instr.SwitchAdr,
		layout.StateCapture: instr.StateCapture, layout.VarOrTimer: instr.VarOrTimer,
		layout.Branch: instr.Branch, layout.ForcedJmp: instr.ForcedJmp,
		layout.Sub: instr.Sub, layout.Rtn: instr.Rtn,
	}
	var word uint64
	for _, field := range layout.Order {
		width := l.Width(field)
		v := values[field]
		if v < 0 || v > l.Limit(field) {
			return 0, diag.Overflow(field, v, l.Limit(field))
		}
		word = (word << uint(width)) | uint64(v)
	}
	return word, nil
}

// Unpack reverses Pack for a single word, for round-trip testing: packing
// and unpacking a word must be inverse operations.
func Unpack(l *layout.Layout, word uint64) lower.Instruction {
	fields := map[string]int{}
	for i := len(layout.Order) - 1; i >= 0; i-- {
		field := layout.Order[i]
		width := uint(l.Width(field))
		mask := uint64((1 << width) - 1)
		fields[field] = int(word & mask)
		word >>= width
	}
	return lower.Instruction{
		StateSet: fields[layout.State], StateMask: fields[layout.Mask], Jadr: fields[layout.Jadr],
		VarSel: fields[layout.VarSel], TimerSel: fields[layout.TimerSel], TimerLd: fields[layout.TimerLd],
		SwitchSel: fields[layout.SwitchSel], SwitchAdr: fields[layout.SwitchAdr],
		StateCapture: fields[layout.StateCapture], VarOrTimer: fields[layout.VarOrTimer],
		Branch: fields[layout.Branch], ForcedJmp: fields[layout.ForcedJmp],
		Sub: fields[layout.Sub], Rtn: fields[layout.Rtn],
	}
}

// WriteFiles writes the microcode, variable-data, and (if non-empty)
// switch-memory images for outBase, plus a Verilog wrapper that preloads
// them, in the exact textual formats the hardware toolchain expects. Each
// file is opened, fully written, and closed in turn, so a failure partway
// through never corrupts a previously written artifact.
func WriteFiles(outBase string, img *Images) error {
	smWidth := (img.WordWidth + 3) / 4 // hex digits; a 24-bit word is 6 digits

	var sm strings.Builder
	for _, w := range img.Words {
		fmt.Fprintf(&sm, "%0*x\n", smWidth, w)
	}
	if err := writeFile(outBase+"_smdata.mem", sm.String()); err != nil {
		return err
	}

	var vd strings.Builder
	for _, b := range img.VarData {
		fmt.Fprintf(&vd, "%02x\n", b)
	}
	if err := writeFile(outBase+"_vardata.mem", vd.String()); err != nil {
		return err
	}

	if len(img.SwitchTable) > 0 {
		var sw strings.Builder
		for _, addr := range img.SwitchTable {
			fmt.Fprintf(&sw, "%06x\n", addr)
		}
		if err := writeFile(outBase+"_swdata.mem", sw.String()); err != nil {
			return err
		}
	}

	if err := writeFile(outBase+".v", GenerateVerilog(outBase, img)); err != nil {
		return err
	}
	return nil
}

// GenerateVerilog renders a synthesizable wrapper module around the
// microcode and variable-data ROMs WriteFiles writes alongside it: one
// output per declared State, one input per declared Input, and $readmemh
// preloads sized from the packed image. The sequencing, state-capture, and
// switch-dispatch logic that actually walks the ROM belongs to the
// hotstate core this wrapper instantiates around, not to generated output.
func GenerateVerilog(outBase string, img *Images) string {
	name := verilogModuleName(outBase)
	memBase := filepath.Base(outBase)

	var b strings.Builder
	fmt.Fprintf(&b, "module %s (\n", name)
	fmt.Fprintln(&b, "    input wire clk,")
	fmt.Fprintln(&b, "    input wire reset,")
	for _, in := range img.InputNames {
		fmt.Fprintf(&b, "    input wire %s,\n", in)
	}
	for i, st := range img.StateNames {
		sep := ","
		if i == len(img.StateNames)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    output reg %s%s\n", st, sep)
	}
	fmt.Fprintln(&b, ");")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "    localparam PROG_WORDS = %d;\n", len(img.Words))
	fmt.Fprintf(&b, "    localparam WORD_WIDTH = %d;\n", img.WordWidth)
	fmt.Fprintf(&b, "    localparam VAR_WORDS  = %d;\n", len(img.VarData))
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "    reg [WORD_WIDTH-1:0] smdata [0:PROG_WORDS-1];\n")
	fmt.Fprintf(&b, "    reg [7:0] vardata [0:VAR_WORDS-1];\n")
	if len(img.SwitchTable) > 0 {
		fmt.Fprintf(&b, "    reg [23:0] swdata [0:%d-1];\n", len(img.SwitchTable))
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "    initial begin")
	fmt.Fprintf(&b, "        $readmemh(\"%s_smdata.mem\", smdata);\n", memBase)
	fmt.Fprintf(&b, "        $readmemh(\"%s_vardata.mem\", vardata);\n", memBase)
	if len(img.SwitchTable) > 0 {
		fmt.Fprintf(&b, "        $readmemh(\"%s_swdata.mem\", swdata);\n", memBase)
	}
	fmt.Fprintln(&b, "    end")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "endmodule")
	return b.String()
}

// verilogModuleName derives a legal Verilog identifier from outBase's file
// name, replacing anything that isn't a letter, digit, or underscore and
// guarding against a leading digit.
func verilogModuleName(outBase string) string {
	base := filepath.Base(outBase)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "m_" + name
	}
	return name
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return diag.New(diag.IOError, "writing %s: %v", path, err)
	}
	return nil
}
