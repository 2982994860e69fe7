package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-gurdy/theme"
)

// Keybox renders the chromatic key-box as two staggered rows, the way the
// keys sit on the instrument: accidentals above, naturals below. The key
// currently stopping the string is highlighted.
type Keybox struct {
	theme   *theme.Theme
	numKeys int
}

func NewKeybox(th *theme.Theme, numKeys int) *Keybox {
	return &Keybox{theme: th, numKeys: numKeys}
}

// upperRow reports whether key idx sits on the upper (accidental) row.
// Index 0 is the X key, then the rows alternate with the chromatic scale:
// semitones 1,3 on the upper row within each octave pattern.
func upperRow(idx int) bool {
	switch (idx - 1) % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

// View renders the key-box. held reports key state, stopped is the index
// of the winning key (0 = open string).
func (k *Keybox) View(held func(idx int) bool, stopped int) string {
	up := lipgloss.NewStyle().Foreground(k.theme.Muted())
	down := lipgloss.NewStyle().Foreground(k.theme.FG())
	stop := lipgloss.NewStyle().Foreground(k.theme.Bright())

	var upper, lower strings.Builder
	for i := 1; i < k.numKeys; i++ {
		var cell string
		switch {
		case i == stopped && stopped > 0:
			cell = stop.Render(string(k.theme.Symbols.KeyStopped))
		case held(i):
			cell = down.Render(string(k.theme.Symbols.KeyDown))
		default:
			cell = up.Render(string(k.theme.Symbols.KeyUp))
		}
		if upperRow(i) {
			upper.WriteString(cell)
			lower.WriteString(" ")
		} else {
			upper.WriteString(" ")
			lower.WriteString(cell)
		}
	}
	return upper.String() + "\n" + lower.String()
}

// Meter renders a horizontal level bar, value in [0, 1].
func Meter(th *theme.Theme, label string, value float64, width int) string {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	filled := int(value * float64(width))

	on := lipgloss.NewStyle().Foreground(th.Active())
	off := lipgloss.NewStyle().Foreground(th.Muted())

	var bar strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			bar.WriteString(on.Render("█"))
		} else {
			bar.WriteString(off.Render("░"))
		}
	}
	return fmt.Sprintf("%s %s", label, bar.String())
}
