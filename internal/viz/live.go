package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/physics"
)

const (
	historyCapacity = 600
	barWidth        = 40
	frameRate       = 30
)

type TickMsg time.Time

// Options tune a live view. Zero values select defaults.
type Options struct {
	Name            string
	StepsPerFrame   int
	DivergenceLimit float64
	Duration        float64
	Theme           string
}

// Model steps a system in real time and renders its DOFs.
type Model struct {
	sys        dynamo.System
	integrator dynamo.Integrator
	opts       Options

	state, initial dynamo.State
	t, dt          float64
	running        bool
	done           bool
	instability    *dynamo.Instability

	labels   []string
	history  [][]float64
	energy   []float64
	peak     []float64
	selected int
	theme    int
	showHelp bool
}

func NewModel(sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, dt float64, opts Options) Model {
	if opts.StepsPerFrame <= 0 {
		opts.StepsPerFrame = max(1, int(math.Round(1/(frameRate*dt))))
	}
	if opts.DivergenceLimit <= 0 {
		opts.DivergenceLimit = dynamo.DefaultDivergenceLimit
	}
	n := x0.DOF()
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("x%d", i)
		if n == physics.Corners {
			labels[i] = physics.CornerName(i)
		}
	}
	return Model{
		sys:        sys,
		integrator: integ,
		opts:       opts,
		state:      x0.Clone(),
		initial:    x0.Clone(),
		dt:         dt,
		running:    true,
		labels:     labels,
		history:    make([][]float64, n),
		peak:       make([]float64, n),
		theme:      ThemeIndex(opts.Theme),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			m.selected = (m.selected + 1) % len(m.labels)
		case "+", "=":
			m.opts.StepsPerFrame *= 2
		case "-", "_":
			m.opts.StepsPerFrame = max(1, m.opts.StepsPerFrame/2)
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && !m.done {
			for i := 0; i < m.opts.StepsPerFrame && !m.done; i++ {
				m.step()
			}
		}
		return m, tick()
	}
	return m, nil
}

// step advances one integrator step and records it.
func (m *Model) step() {
	next := m.integrator.Step(m.sys, m.state, m.t, m.dt)
	tn := m.t + m.dt
	if !next.IsValid() || next.MaxAbs() > m.opts.DivergenceLimit {
		m.instability = &dynamo.Instability{
			Time:   tn,
			Step:   int(math.Round(tn / m.dt)),
			Reason: fmt.Sprintf("|state| exceeds bound %.3g", m.opts.DivergenceLimit),
		}
		m.done = true
		return
	}
	m.state, m.t = next, tn

	for i := range m.history {
		x := m.state.Position(i)
		m.history[i] = appendRing(m.history[i], x)
		m.peak[i] = math.Max(m.peak[i], math.Abs(x))
	}
	if h, ok := m.sys.(dynamo.Hamiltonian); ok {
		m.energy = appendRing(m.energy, h.Energy(m.state))
	}
	if m.opts.Duration > 0 && m.t >= m.opts.Duration-1e-9*m.dt {
		m.done = true
	}
}

func appendRing(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

func (m *Model) reset() {
	m.state = m.initial.Clone()
	m.t = 0
	m.done = false
	m.instability = nil
	for i := range m.history {
		m.history[i] = m.history[i][:0]
		m.peak[i] = 0
	}
	m.energy = m.energy[:0]
}

// scale is the bar full-scale: the largest peak seen, at least 1 mm.
func (m Model) scale() float64 {
	s := 1e-3
	for _, p := range m.peak {
		s = math.Max(s, p)
	}
	return s
}

func (m Model) View() string {
	st := newStyles(Themes[m.theme])

	var left strings.Builder
	name := m.opts.Name
	if name == "" {
		name = "simulation"
	}
	left.WriteString(st.title.Render(strings.ToUpper(name)) + "\n")

	scale := m.scale()
	for i, label := range m.labels {
		x := m.state.Position(i)
		l, r := DeflectionBar(x, scale, barWidth)
		marker := "  "
		if i == m.selected {
			marker = "> "
		}
		fmt.Fprintf(&left, "%s%-12s %s│%s %+.5f m\n", marker, label,
			st.negative.Render(l), st.positive.Render(r), x)
	}

	if hist := m.history[m.selected]; len(hist) > 1 {
		chart := asciigraph.Plot(hist,
			asciigraph.Height(8),
			asciigraph.Width(barWidth+12),
			asciigraph.Caption(m.labels[m.selected]+" displacement (m)"))
		left.WriteString("\n" + chart + "\n")
	}

	var right strings.Builder
	status := "RUNNING"
	switch {
	case m.instability != nil:
		status = st.warning.Render("DIVERGED")
	case m.done:
		status = "FINISHED"
	case !m.running:
		status = "PAUSED"
	}
	right.WriteString(st.title.Render(status) + "\n")
	row := func(k, v string) {
		right.WriteString(st.label.Render(k) + st.value.Render(v) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.t))
	row("Step", fmt.Sprintf("%g s", m.dt))
	row("Steps/frame", fmt.Sprint(m.opts.StepsPerFrame))
	row("Full scale", fmt.Sprintf("%.4g m", scale))
	if len(m.energy) > 0 {
		row("Energy", fmt.Sprintf("%.4g J", m.energy[len(m.energy)-1]))
		right.WriteString(st.muted.Render(Sparkline(m.energy, 24)) + "\n")
	}
	right.WriteString("\nPEAKS\n")
	for i, label := range m.labels {
		row(label, fmt.Sprintf("%.5f m", m.peak[i]))
	}
	if m.instability != nil {
		right.WriteString("\n" + st.warning.Render(m.instability.String()) + "\n")
	}
	right.WriteString(st.muted.Render("\nSP:Pause R:Reset Q:Quit\nTab:DOF +/-:Speed T:Theme ?:Help"))

	view := lipgloss.JoinHorizontal(lipgloss.Top, left.String(), "  ", st.panel.Render(right.String()))
	if m.showHelp {
		return st.panel.Render(helpText) + "\n" + view
	}
	return view
}

const helpText = `Space  pause or resume
R      reset to the initial state
Tab    chart the next DOF
+ / -  double or halve steps per frame
T      cycle colour themes
Q      quit`

// Time returns the simulated time.
func (m Model) Time() float64 { return m.t }

func (m Model) State() dynamo.State { return m.state }

// Peaks returns the largest |x| seen per DOF since the last reset.
func (m Model) Peaks() []float64 { return m.peak }

func (m Model) Instability() *dynamo.Instability { return m.instability }

// Run starts the view on the terminal and blocks until it quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
