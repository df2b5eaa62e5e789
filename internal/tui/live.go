package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/spinlab/internal/api"
	"github.com/san-kum/spinlab/internal/engine"
	"github.com/san-kum/spinlab/internal/metrics"
	"github.com/san-kum/spinlab/internal/spin"
	"github.com/san-kum/spinlab/internal/state"
)

const (
	historyLen = 60
	mapWidth   = 40
	mapHeight  = 16
)

type stepMsg engine.Step

type doneMsg struct {
	result *engine.Result
	err    error
}

// stepObserver forwards steps to the UI without ever blocking the relaxer.
type stepObserver struct {
	ch chan<- engine.Step
}

func (o stepObserver) OnStep(s engine.Step) {
	select {
	case o.ch <- s:
	default:
	}
}

type LiveOptions struct {
	State     *state.State
	IdxImage  int
	IdxChain  int
	Relax     engine.Config
	FieldStep float64
	AnisoStep float64
}

// Live relaxes one image in the background and lets the user change the
// external field and anisotropy while it runs.
type Live struct {
	st       *state.State
	img      *state.Image
	idxImage int
	idxChain int
	cfg      engine.Config

	steps  chan engine.Step
	done   chan doneMsg
	cancel context.CancelFunc

	name      string
	history   []float64
	last      engine.Step
	result    *engine.Result
	err       error
	field     float64
	fieldDir  spin.Vector3
	aniso     float64
	anisoDir  spin.Vector3
	fieldStep float64
	anisoStep float64
	status    string

	width  int
	height int
}

func NewLive(opts LiveOptions) (*Live, error) {
	img, _, err := opts.State.FromIndices(opts.IdxImage, opts.IdxChain)
	if err != nil {
		return nil, err
	}
	if opts.FieldStep <= 0 {
		opts.FieldStep = 0.5
	}
	if opts.AnisoStep <= 0 {
		opts.AnisoStep = 0.05
	}

	m := &Live{
		st:        opts.State,
		img:       img,
		idxImage:  opts.IdxImage,
		idxChain:  opts.IdxChain,
		cfg:       opts.Relax,
		steps:     make(chan engine.Step, 64),
		done:      make(chan doneMsg, 1),
		name:      img.Params.Name(),
		history:   make([]float64, 0, historyLen),
		fieldStep: opts.FieldStep,
		anisoStep: opts.AnisoStep,
		width:     80,
		height:    24,
	}
	m.field, m.fieldDir = img.Params.ExternalField()
	m.aniso, m.anisoDir = img.Params.Anisotropy()
	return m, nil
}

func (m *Live) Init() tea.Cmd {
	m.start()
	return m.wait()
}

func (m *Live) start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	r := engine.New()
	r.AddObserver(stepObserver{ch: m.steps})
	for _, metric := range metrics.Default() {
		r.AddMetric(metric)
	}
	go func() {
		res, err := r.Run(ctx, m.img, m.cfg)
		m.done <- doneMsg{result: res, err: err}
	}()
}

func (m *Live) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-m.steps:
			return stepMsg(s)
		case d := <-m.done:
			return d
		}
	}
}

func (m *Live) stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case stepMsg:
		m.last = engine.Step(msg)
		m.history = append(m.history, m.last.Energy.Total())
		if len(m.history) > historyLen {
			m.history = m.history[1:]
		}
		return m, m.wait()
	case doneMsg:
		m.result, m.err = msg.result, msg.err
		return m, nil
	}
	return m, nil
}

func (m *Live) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.stop()
		return m, tea.Quit
	case "+", "=":
		m.setField(m.field + m.fieldStep)
	case "-", "_":
		m.setField(m.field - m.fieldStep)
	case "]":
		m.setAnisotropy(m.aniso + m.anisoStep)
	case "[":
		m.setAnisotropy(m.aniso - m.anisoStep)
	}
	return m, nil
}

func (m *Live) setField(v float64) {
	if err := api.SetField(m.st, v, m.fieldDir, m.idxImage, m.idxChain); err != nil {
		m.status = err.Error()
		return
	}
	m.field = v
	m.status = fmt.Sprintf("field set to %.2f T", v)
}

func (m *Live) setAnisotropy(v float64) {
	if err := api.SetAnisotropy(m.st, v, m.anisoDir, m.idxImage, m.idxChain); err != nil {
		m.status = err.Error()
		return
	}
	m.aniso = v
	m.status = fmt.Sprintf("anisotropy set to %.3f", v)
}

func (m *Live) View() string {
	var b strings.Builder

	statusIcon, statusText := green.Render("●"), green.Render("relaxing")
	switch {
	case errors.Is(m.err, context.Canceled):
		statusIcon, statusText = yellow.Render("○"), yellow.Render("stopped")
	case m.err != nil:
		statusIcon, statusText = red.Render("✗"), red.Render(m.err.Error())
	case m.result != nil && m.result.Converged:
		statusIcon, statusText = cyan.Render("◆"), cyan.Render("converged")
	case m.result != nil:
		statusIcon, statusText = yellow.Render("○"), yellow.Render("step budget reached")
	}

	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n", statusIcon, headerStyle.Render(m.name), statusText))
	b.WriteString(dimmer.Render("   "+strings.Repeat("─", 40)) + "\n\n")

	if len(m.history) > 1 {
		chart := PlotEnergies(m.history, clamp(m.width-12, 20, 60), 6, "energy")
		b.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	b.WriteString(Row("step", fmt.Sprintf("%d", m.last.Index)) + "\n")
	b.WriteString(Row("energy", fmt.Sprintf("%.6f", m.last.Energy.Total())) + "\n")
	b.WriteString(Row("max torque", fmt.Sprintf("%.3e", m.last.MaxTorque)) + "\n")
	b.WriteString(Row("field", magenta.Render(fmt.Sprintf("%.2f T", m.field))) + "\n")
	b.WriteString(Row("anisotropy", magenta.Render(fmt.Sprintf("%.3f", m.aniso))) + "\n\n")

	b.WriteString(frameStyle.Render(m.spinMap()) + "\n")

	if m.status != "" {
		b.WriteString("   " + white.Render(m.status) + "\n")
	}
	b.WriteString("\n" + dim.Render("   ± field  [ ] anisotropy  q quit") + "\n")
	return b.String()
}

// spinMap draws the first layer of the first basis atom, one glyph per cell,
// by the z component of the spin.
func (m *Live) spinMap() string {
	g := m.img.Geometry()
	spins := m.img.Spins()

	nx := min(g.NCells[0], mapWidth, clamp(m.width-8, 4, mapWidth))
	ny := min(g.NCells[1], mapHeight, clamp(m.height-18, 4, mapHeight))
	var b strings.Builder
	for y := ny - 1; y >= 0; y-- {
		for x := 0; x < nx; x++ {
			sz := spins[g.Site(0, [3]int{x, y, 0})][2]
			switch {
			case sz > 0.5:
				b.WriteString(cyan.Render("●"))
			case sz < -0.5:
				b.WriteString(magenta.Render("○"))
			default:
				b.WriteString(dim.Render("·"))
			}
		}
		if y > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// RunLive runs the live view until the user quits.
func RunLive(opts LiveOptions) (*engine.Result, error) {
	m, err := NewLive(opts)
	if err != nil {
		return nil, err
	}
	defer m.stop()

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return nil, err
	}
	return m.result, nil
}
