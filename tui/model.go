package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-gurdy/engine"
	"go-gurdy/theme"
	"go-gurdy/widgets"
)

// StateMsg carries an engine snapshot to the display. Playing selects
// which of the two screens renders it.
type StateMsg struct {
	Snap    engine.Snapshot
	Playing bool
}

type Model struct {
	eng    *engine.Engine
	th     *theme.Theme
	keybox *widgets.Keybox

	states <-chan StateMsg

	snap     engine.Snapshot
	playing  bool
	quitting bool
}

func NewModel(eng *engine.Engine, th *theme.Theme, numKeys int, states <-chan StateMsg) Model {
	return Model{
		eng:    eng,
		th:     th,
		keybox: widgets.NewKeybox(th, numKeys),
		states: states,
		snap:   eng.Snapshot(),
	}
}

// ListenForState waits for the next snapshot from the engine.
func ListenForState(states <-chan StateMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-states
		if !ok {
			return tea.Quit()
		}
		return msg
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForState(m.states)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "m":
			m.eng.Do(engine.CmdCycleMelodyMute)
		case "d":
			m.eng.Do(engine.CmdCycleDroneTrompMute)
		case "D":
			m.eng.Do(engine.CmdCycleDroneMute)
		case "t":
			m.eng.Do(engine.CmdCycleTrompMute)
		case "+", "=":
			m.eng.Do(engine.CmdTransposeUp)
		case "-", "_":
			m.eng.Do(engine.CmdTransposeDown)
		case "c":
			m.eng.Do(engine.CmdCycleCapo)
		}

	case StateMsg:
		m.snap = msg.Snap
		m.playing = msg.Playing
		return m, ListenForState(m.states)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.th.Muted())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render("go-gurdy"))
	out.WriteString("\n\n")

	if m.playing {
		out.WriteString(m.playScreen())
	} else {
		out.WriteString(m.idleScreen())
	}

	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render("m:melody mute  d:drone/tromp  D:drone  t:tromp  +/-:transpose  c:capo  q:quit"))
	return out.String()
}

// playScreen is the "actively playing" display: the sounding note, the
// crank meters and the key-box.
func (m Model) playScreen() string {
	s := m.snap

	noteStyle := lipgloss.NewStyle().Foreground(m.th.Bright()).Bold(true)
	buzzStyle := lipgloss.NewStyle().Foreground(m.th.Active()).Bold(true)

	var out strings.Builder
	out.WriteString(noteStyle.Render(fmt.Sprintf("  %-4s", engine.NoteName(int(s.MelodyNote)))))
	if s.Buzzing {
		out.WriteString(buzzStyle.Render("  BUZZ"))
	}
	out.WriteString("\n\n")

	out.WriteString(m.keybox.View(func(i int) bool { return s.KeyMask&(1<<uint(i)) != 0 }, s.KeyOffset))
	out.WriteString("\n\n")

	expr := float64(s.Expression) / 127.0
	out.WriteString(widgets.Meter(m.th, "expr ", expr, 24))
	out.WriteString("\n")
	out.WriteString(m.voicesLine())
	return out.String()
}

// idleScreen is the between-phrases display: tuning, offsets and mutes.
func (m Model) idleScreen() string {
	s := m.snap

	labelStyle := lipgloss.NewStyle().Foreground(m.th.Muted())
	valStyle := lipgloss.NewStyle().Foreground(m.th.FG())

	var out strings.Builder
	for _, v := range s.Voices {
		mark := string(m.th.Symbols.VoiceIdle)
		if v.Muted {
			mark = string(m.th.Symbols.VoiceMuted)
		}
		out.WriteString(fmt.Sprintf("  %s %s %s\n",
			mark,
			labelStyle.Render(fmt.Sprintf("%-10s", v.Name)),
			valStyle.Render(engine.NoteName(int(v.OpenNote)))))
	}
	out.WriteString("\n")
	out.WriteString(labelStyle.Render(fmt.Sprintf("  tpose %+d  capo %+d  melody:%s  drone:%s",
		s.Transpose, s.Capo, s.MelodyMode, s.DroneMode)))
	return out.String()
}

// voicesLine is the compact per-voice status row on the play screen.
func (m Model) voicesLine() string {
	onStyle := lipgloss.NewStyle().Foreground(m.th.Active())
	mutedStyle := lipgloss.NewStyle().Foreground(m.th.Muted())

	parts := make([]string, 0, len(m.snap.Voices))
	for _, v := range m.snap.Voices {
		switch {
		case v.Playing:
			parts = append(parts, onStyle.Render(string(m.th.Symbols.VoiceOn)+" "+v.Name))
		case v.Muted:
			parts = append(parts, mutedStyle.Render(string(m.th.Symbols.VoiceMuted)+" "+v.Name))
		default:
			parts = append(parts, mutedStyle.Render(string(m.th.Symbols.VoiceIdle)+" "+v.Name))
		}
	}
	return strings.Join(parts, "  ")
}
