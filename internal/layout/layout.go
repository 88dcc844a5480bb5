// Package layout describes the packed microcode word's field widths and
// parses them from a YAML header file. Field order is
// fixed MSB to LSB; only widths are configurable.
package layout

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/philtomson/hotwright/internal/diag"
)

// Field names in MSB-to-LSB packing order.
const (
	State        = "STATE"
	Mask         = "MASK"
	Jadr         = "JADR"
	VarSel       = "VARSEL"
	TimerSel     = "TIMERSEL"
	TimerLd      = "TIMERLD"
	SwitchSel    = "SWITCH_SEL"
	SwitchAdr    = "SWITCH_ADR"
	StateCapture = "STATE_CAPTURE"
	VarOrTimer   = "VAR_OR_TIMER"
	Branch       = "BRANCH"
	ForcedJmp    = "FORCED_JMP"
	Sub          = "SUB"
	Rtn          = "RTN"
)

// Order is the fixed MSB-to-LSB concatenation order of every field.
var Order = []string{
	State, Mask, Jadr, VarSel, TimerSel, TimerLd,
	SwitchSel, SwitchAdr, StateCapture, VarOrTimer,
	Branch, ForcedJmp, Sub, Rtn,
}

// Layout is the widths (in bits) of every packed field.
type Layout struct {
	Widths map[string]int `yaml:",inline"`

	// SwitchOffsetBits is not a packed field; it sizes the Lowerer's switch
	// banks (default 8 bits, giving 256 words per switch bank).
	SwitchOffsetBits int `yaml:"switch_offset_bits"`
}

// Default returns the hardware's default bit layout.
func Default() *Layout {
	return &Layout{
		Widths: map[string]int{
			State: 3, Mask: 3, Jadr: 1, VarSel: 2, TimerSel: 1, TimerLd: 1,
			SwitchSel: 2, SwitchAdr: 1, StateCapture: 1, VarOrTimer: 1,
			Branch: 1, ForcedJmp: 1, Sub: 1, Rtn: 1,
		},
		SwitchOffsetBits: 8,
	}
}

// Load reads a YAML bit-layout header from path, filling in spec defaults
// for any field the file omits.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.New(diag.IOError, "reading layout file %s: %v", path, err)
	}
	var overlay struct {
		Widths           map[string]int `yaml:",inline"`
		SwitchOffsetBits int            `yaml:"switch_offset_bits"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, diag.New(diag.IOError, "parsing layout file %s: %v", path, err)
	}
	l := Default()
	for field, width := range overlay.Widths {
		l.Widths[field] = width
	}
	if overlay.SwitchOffsetBits > 0 {
		l.SwitchOffsetBits = overlay.SwitchOffsetBits
	}
	return l, nil
}

// Width returns the configured width of field, defaulting to 0 if unknown.
func (l *Layout) Width(field string) int {
	return l.Widths[field]
}

// TotalWidth returns the instruction word width in bits: the sum of every
// field's width.
func (l *Layout) TotalWidth() int {
	total := 0
	for _, f := range Order {
		total += l.Widths[f]
	}
	return total
}

// Limit returns the maximum representable unsigned value of field (2^width - 1).
func (l *Layout) Limit(field string) int {
	w := l.Widths[field]
	if w <= 0 {
		return 0
	}
	return (1 << uint(w)) - 1
}
