// Package tui renders the companion in the terminal with bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ashureev/clawdachi/internal/animation"
	"github.com/ashureev/clawdachi/internal/domain"
	"github.com/ashureev/clawdachi/internal/effects"
)

const (
	refreshInterval = 33 * time.Millisecond

	stageWidth  = 40
	stageHeight = 12
	// Particle coordinates are actor pixels; one cell is this many pixels.
	cellWidth  = 4.0
	cellHeight = 8.0
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	faceStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff9f7f"))
	captionStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	stageStyle   = lipgloss.NewStyle().Width(stageWidth).Height(stageHeight)
)

var faces = map[domain.Expression]string{
	domain.ExprNeutral:  "(◕‿◕)",
	domain.ExprHappy:    "(≧◡≦)",
	domain.ExprFocused:  "(•̀ᴗ•́)",
	domain.ExprConfused: "(・_・?)",
	domain.ExprExcited:  "(★ω★)",
	domain.ExprSleepy:   "(－_－)",
	domain.ExprNervous:  "(°△°;)",
}

const blinkFace = "(-‿-)"

type tickMsg time.Time

type model struct {
	actor *Actor
	poke  func()
	title string

	snap     snapshot
	width    int
	height   int
	keys     keyMap
	help     help.Model
	showHelp bool
}

func newModel(actor *Actor, poke func(), title string) model {
	return model{
		actor: actor,
		poke:  poke,
		title: title,
		keys:  defaultKeyMap,
		help:  help.New(),
	}
}

// Run shows the companion until the user quits or ctx is done. poke is
// called for every poke key press.
func Run(ctx context.Context, actor *Actor, poke func(), title string) error {
	p := tea.NewProgram(newModel(actor, poke, title), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.snap = m.actor.snapshot()
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Poke):
			if m.poke != nil {
				m.poke()
			}
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
		}
	}
	return m, nil
}

func (m model) View() string {
	f := m.snap.frame

	var b strings.Builder
	b.WriteString(headerStyle.Render(m.title))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s · %s", f.State, expressionOf(f))))
	b.WriteString("\n\n")

	if f.Caption != "" {
		b.WriteString(captionStyle.Render(f.Caption))
		b.WriteString("\n")
	}
	b.WriteString(stageStyle.Render(renderStage(f)))
	b.WriteString("\n")

	if len(m.snap.events) > 0 {
		b.WriteString(dimStyle.Render(strings.Join(m.snap.events, " → ")))
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func expressionOf(f animation.Frame) domain.Expression {
	if f.Expression == "" {
		return domain.ExprNeutral
	}
	return f.Expression
}

// face returns the body line for a frame.
func face(f animation.Frame) string {
	if f.Blinking {
		return blinkFace
	}
	if s, ok := faces[expressionOf(f)]; ok {
		return s
	}
	return faces[domain.ExprNeutral]
}

// renderStage draws the particles around the face on a fixed grid. The face
// sits on the bottom third of the stage; particles spawn at its top.
func renderStage(f animation.Frame) string {
	grid := make([][]string, stageHeight)
	for y := range grid {
		grid[y] = make([]string, stageWidth)
		for x := range grid[y] {
			grid[y][x] = " "
		}
	}

	originX, originY := stageWidth/2, stageHeight*2/3
	for _, p := range f.Particles {
		x, y, ok := cellFor(p, originX, originY)
		if !ok {
			continue
		}
		grid[y][x] = particleGlyph(p)
	}

	// Taller breath lifts the face one row.
	faceRow := originY
	if f.BreathScale > 1.01 {
		faceRow--
	}
	body := faceStyle.Render(face(f))
	bodyWidth := lipgloss.Width(body)
	start := max(0, originX-bodyWidth/2)
	if start < stageWidth {
		grid[faceRow][start] = body
		for i := 1; i < bodyWidth && start+i < stageWidth; i++ {
			grid[faceRow][start+i] = ""
		}
	}

	lines := make([]string, stageHeight)
	for y, row := range grid {
		lines[y] = strings.Join(row, "")
	}
	return strings.Join(lines, "\n")
}

func cellFor(p effects.Particle, originX, originY int) (int, int, bool) {
	x := originX + int(p.Pos.X/cellWidth)
	y := originY - 1 + int(p.Pos.Y/cellHeight)
	if x < 0 || x >= stageWidth || y < 0 || y >= stageHeight {
		return 0, 0, false
	}
	return x, y, true
}

func particleGlyph(p effects.Particle) string {
	symbol := p.Symbol
	if symbol == "" {
		symbol = "•"
	}
	if p.Opacity() < 0.3 {
		return dimStyle.Render("·")
	}
	// Wide glyphs (emoji) would shift the row; draw them as a colored dot.
	if lipgloss.Width(symbol) > 1 {
		symbol = "*"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%06x", uint32(p.Color)))).Render(symbol)
}
