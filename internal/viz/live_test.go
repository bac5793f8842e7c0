package viz

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/integrators"
	"github.com/san-kum/bridgesim/internal/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeckModel(t *testing.T, dt float64, opts Options) Model {
	t.Helper()
	deck, err := physics.NewDeckMode(physics.DefaultDeckParams(), physics.ForcingLeftColumn)
	require.NoError(t, err)
	return NewModel(deck, integrators.NewRK4(), make(dynamo.State, 8), dt, opts)
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTickAdvances(t *testing.T) {
	m := newDeckModel(t, 0.01, Options{Name: "deck", StepsPerFrame: 10})
	for i := 0; i < 5; i++ {
		m = update(m, TickMsg(time.Now()))
	}
	assert.InDelta(t, 0.5, m.Time(), 1e-9)
	assert.Greater(t, m.Peaks()[physics.FrontLeft], 0.0)
	assert.Equal(t, m.Peaks()[physics.FrontLeft], m.Peaks()[physics.BackLeft])

	view := m.View()
	assert.Contains(t, view, "DECK")
	assert.Contains(t, view, "front-left")
	assert.Contains(t, view, "RUNNING")
}

func TestKeys(t *testing.T) {
	m := newDeckModel(t, 0.01, Options{StepsPerFrame: 1})

	m = update(m, key(" "))
	m = update(m, TickMsg(time.Now()))
	assert.Zero(t, m.Time())
	assert.Contains(t, m.View(), "PAUSED")

	m = update(m, key(" "))
	m = update(m, TickMsg(time.Now()))
	assert.InDelta(t, 0.01, m.Time(), 1e-12)

	m = update(m, key("+"))
	m = update(m, TickMsg(time.Now()))
	assert.InDelta(t, 0.03, m.Time(), 1e-12)

	m = update(m, key("tab"))
	assert.Equal(t, 1, m.selected)

	m = update(m, key("t"))
	assert.Equal(t, 1, m.theme)

	m = update(m, key("r"))
	assert.Zero(t, m.Time())
	assert.Zero(t, m.Peaks()[0])

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestDivergenceStops(t *testing.T) {
	m := newDeckModel(t, 1.0, Options{StepsPerFrame: 50})
	m = update(m, TickMsg(time.Now()))
	require.NotNil(t, m.Instability())
	assert.Contains(t, m.View(), "DIVERGED")

	before := m.Time()
	m = update(m, TickMsg(time.Now()))
	assert.Equal(t, before, m.Time())
}

func TestDurationStops(t *testing.T) {
	sdof, err := physics.NewSDOF(physics.DefaultParams())
	require.NoError(t, err)
	m := NewModel(sdof, integrators.NewRK4(), dynamo.State{0, 0}, 0.01, Options{StepsPerFrame: 100, Duration: 0.5})
	m = update(m, TickMsg(time.Now()))
	assert.InDelta(t, 0.5, m.Time(), 1e-9)
	assert.Contains(t, m.View(), "FINISHED")
	assert.Contains(t, m.View(), "Energy")
}

func TestDeflectionBar(t *testing.T) {
	l, r := DeflectionBar(0.5, 1, 8)
	assert.Equal(t, "····", l)
	assert.Equal(t, "██··", r)

	l, r = DeflectionBar(-2, 1, 8)
	assert.Equal(t, "████", l)
	assert.Equal(t, "····", r)

	l, r = DeflectionBar(0.3, 0, 4)
	assert.Equal(t, "··", l)
	assert.Equal(t, "··", r)
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "▁▄█", Sparkline([]float64{0, 0.5, 1}, 10))
	assert.Equal(t, "▁█", Sparkline([]float64{5, 0, 1}, 2))
	assert.Equal(t, "───", Sparkline(nil, 3))
	assert.Equal(t, 3, len([]rune(strings.TrimSpace(Sparkline([]float64{1, 1, 1}, 3)))))
}

func TestThemes(t *testing.T) {
	assert.Equal(t, []string{"steel", "retro", "minimal"}, ThemeNames())
	assert.Equal(t, 2, ThemeIndex("minimal"))
	assert.Equal(t, 0, ThemeIndex("nope"))
}
