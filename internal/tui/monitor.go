// Package tui is a live text monitor for a running scenario. It shows body
// state and solver health; it does not draw the scene.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"go.uber.org/zap"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/rigid"
)

const historyCapacity = 240

var (
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444466")).Padding(1, 2)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688")).Italic(true)
)

type TickMsg time.Time

// Model steps one scenario per tick. Space sets the kick body's angular
// velocity, p pauses, r rebuilds the scenario from its config.
type Model struct {
	cfg     *config.Config
	logger  *zap.Logger
	sys     *rigid.System
	scene   *config.Scene
	gravity mgl64.Vec2

	kickBody  rigid.BodyID
	KickOmega float64

	running bool
	energy  []float64
	err     error
}

func NewModel(cfg *config.Config, gravity mgl64.Vec2, logger *zap.Logger) (Model, error) {
	m := Model{cfg: cfg, logger: logger, gravity: gravity, KickOmega: 1, running: true}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) reset() error {
	sys, scene, err := config.Build(m.cfg, m.logger)
	if err != nil {
		return err
	}
	if err := sys.Initialize(); err != nil {
		return err
	}
	m.sys, m.scene = sys, scene
	m.kickBody = rigid.BodyID(len(scene.BodyNames) - 1)
	m.energy = m.energy[:0]
	m.err = nil
	return nil
}

func (m Model) System() *rigid.System { return m.sys }

func (m Model) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.kickBody >= 0 {
				m.sys.Body(m.kickBody).AngularVelocity = m.KickOmega
			}
		case "p":
			m.running = !m.running
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	if err := m.sys.Process(m.cfg.Dt); err != nil {
		m.err = err
		return
	}
	m.energy = append(m.energy, metrics.TotalEnergy(m.sys, m.gravity))
	if len(m.energy) > historyCapacity {
		m.energy = m.energy[len(m.energy)-historyCapacity:]
	}
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.cfg.Name)) + "\n")

	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	s.WriteString(fmt.Sprintf("%s  t=%.2fs  step %d\n\n", status, m.sys.Time(), m.sys.Steps()))

	s.WriteString(labelStyle.Render("body") + fmt.Sprintf("%9s %9s %9s %9s\n", "x", "y", "theta", "omega"))
	for i, name := range m.scene.BodyNames {
		b := m.sys.Body(rigid.BodyID(i))
		s.WriteString(labelStyle.Render(name) + valueStyle.Render(fmt.Sprintf("%9.3f %9.3f %9.3f %9.3f",
			b.Position[0], b.Position[1], b.Orientation, b.AngularVelocity)) + "\n")
	}
	s.WriteString("\n")

	if len(m.energy) > 1 {
		s.WriteString(asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(40), asciigraph.Caption("energy")) + "\n\n")
	}

	d := m.sys.Diagnostics()
	s.WriteString(labelStyle.Render("violation") + valueStyle.Render(fmt.Sprintf("%.3g (max %.3g)", d.LastViolation, d.MaxViolation)) + "\n")
	if d.DivergentSteps > 0 {
		s.WriteString(warnStyle.Render(fmt.Sprintf("%d divergent steps", d.DivergentSteps)) + "\n")
	}
	if m.err != nil {
		s.WriteString(warnStyle.Render("error: "+m.err.Error()) + "\n")
	}

	kick := "none"
	if m.kickBody >= 0 {
		kick = m.scene.BodyNames[m.kickBody]
	}
	s.WriteString(helpStyle.Render(fmt.Sprintf("\nSPACE:kick %s  P:pause  R:reset  Q:quit", kick)))
	return panelStyle.Render(s.String())
}

func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
