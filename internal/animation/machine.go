// Package animation drives the companion's expression state machine. It maps
// activity updates onto animation states, runs enter/update/exit handlers,
// expires timed states and schedules the bursts that go with them.
package animation

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ashureev/clawdachi/internal/domain"
	"github.com/ashureev/clawdachi/internal/effects"
	"github.com/ashureev/clawdachi/internal/session"
)

// Actor is the visual collaborator the machine commands. Implementations
// decide how states and bursts are rendered.
type Actor interface {
	ApplyState(state domain.AnimationState, expression domain.Expression)
	ApplyBurst(preset string, count int)
	ShowCaption(text string)
	HideCaption()
}

// Config holds the machine's timing constants.
type Config struct {
	CelebrationDuration time.Duration
	WaveDuration        time.Duration
	CaptionDuration     time.Duration

	// CelebrationBursts secondary bursts are spaced CelebrationBurstSpacing
	// apart after entering celebrating.
	CelebrationBursts       int
	CelebrationBurstSpacing time.Duration

	ThoughtIntervalMin time.Duration
	ThoughtIntervalMax time.Duration
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		CelebrationDuration:     2 * time.Second,
		WaveDuration:            800 * time.Millisecond,
		CaptionDuration:         3 * time.Second,
		CelebrationBursts:       10,
		CelebrationBurstSpacing: 50 * time.Millisecond,
		ThoughtIntervalMin:      2 * time.Second,
		ThoughtIntervalMax:      3 * time.Second,
	}
}

// Scheduler keys. Each names one logical timed operation.
const (
	keyCaption        = "caption"
	keyThought        = "thought"
	keyCelebratePrefx = "celebrate/"
)

// stateDef is the handler set for one animation state.
type stateDef struct {
	duration time.Duration
	enter    func()
	update   func(dt time.Duration)
	exit     func()
}

// Machine is the expression state machine. It is owned by the frame loop
// and is not safe for concurrent use.
type Machine struct {
	cfg    Config
	actor  Actor
	fx     *effects.Engine
	sched  *Scheduler
	rng    *rand.Rand
	logger *slog.Logger

	states  [domain.AnimationStateCount]stateDef
	current domain.AnimationState
	elapsed time.Duration
	running bool
	caption string
	vitals  *Vitals
	thought int
}

// NewMachine wires a machine to its actor and effect engine.
func NewMachine(cfg Config, actor Actor, fx *effects.Engine, rng *rand.Rand, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	m := &Machine{
		cfg:     cfg,
		actor:   actor,
		fx:      fx,
		sched:   NewScheduler(),
		rng:     rng,
		logger:  logger,
		current: domain.AnimIdle,
	}
	m.vitals = NewVitals(m.sched, rng)
	m.states = m.defineStates()
	return m
}

func (m *Machine) defineStates() [domain.AnimationStateCount]stateDef {
	return [domain.AnimationStateCount]stateDef{
		domain.AnimIdle:      {},
		domain.AnimBreathing: {},
		domain.AnimBlinking:  {},
		domain.AnimThinking: {
			enter: m.enterThinking,
			exit:  func() { m.sched.CancelPrefix(keyThought) },
		},
		domain.AnimPlanning: {},
		domain.AnimWaiting: {
			enter: func() { m.burst(effects.Question) },
		},
		domain.AnimCelebrating: {
			duration: m.cfg.CelebrationDuration,
			enter:    m.enterCelebrating,
			exit:     func() { m.sched.CancelPrefix(keyCelebratePrefx) },
		},
		domain.AnimWaving: {
			duration: m.cfg.WaveDuration,
		},
		domain.AnimNervous: {},
		domain.AnimDancing: {},
	}
}

// Start enters idle and begins the idle vitals.
func (m *Machine) Start() {
	m.running = true
	m.enter(domain.AnimIdle)
	m.vitals.Start()
}

// Stop cancels every scheduled task, clears the effect engine and hides any
// caption.
func (m *Machine) Stop() {
	m.running = false
	m.sched.CancelAll()
	m.vitals.Reset()
	if m.fx != nil {
		m.fx.Clear()
	}
	if m.caption != "" {
		m.caption = ""
		m.actor.HideCaption()
	}
}

// Running reports whether Start has been called without a matching Stop.
func (m *Machine) Running() bool { return m.running }

// State returns the active animation state.
func (m *Machine) State() domain.AnimationState { return m.current }

// Expression returns the expression of the active state.
func (m *Machine) Expression() domain.Expression { return ExpressionFor(m.current) }

// Elapsed returns how long the active state has been running.
func (m *Machine) Elapsed() time.Duration { return m.elapsed }

// Caption returns the caption currently shown, if any.
func (m *Machine) Caption() string { return m.caption }

// Scheduler exposes the frame-clock scheduler.
func (m *Machine) Scheduler() *Scheduler { return m.sched }

// Transition moves to next. Requesting the current state is a no-op and
// reports false.
func (m *Machine) Transition(next domain.AnimationState) bool {
	if next < 0 || next >= domain.AnimationStateCount {
		m.logger.Warn("[ANIMATION] Unknown state requested", "state", int(next))
		return false
	}
	if next == m.current {
		return false
	}

	if exit := m.states[m.current].exit; exit != nil {
		exit()
	}
	m.enter(next)
	return true
}

func (m *Machine) enter(next domain.AnimationState) {
	m.current = next
	m.elapsed = 0
	m.actor.ApplyState(next, ExpressionFor(next))
	if enter := m.states[next].enter; enter != nil {
		enter()
	}
	m.logger.Debug("[ANIMATION] State entered", "state", next.String())
}

// Update advances the machine by one frame.
func (m *Machine) Update(dt time.Duration) {
	if !m.running || dt < 0 {
		return
	}

	m.elapsed += dt
	m.vitals.Update(dt)
	m.sched.Advance(dt)

	def := m.states[m.current]
	if def.update != nil {
		def.update(dt)
	}
	if def.duration > 0 && m.elapsed >= def.duration {
		m.Transition(domain.AnimIdle)
	}
}

// ApplySession maps an emitted session onto the machine.
func (m *Machine) ApplySession(s domain.Session) bool {
	changed := m.Transition(StatusToAnimation(s.Status))
	if s.Status == domain.StatusUsingTool && s.ToolName != "" {
		m.ShowCaption(session.FormatToolName(s.ToolName))
	}
	return changed
}

// ShowCaption shows text and hides it after the caption duration. Showing a
// new caption replaces the pending hide.
func (m *Machine) ShowCaption(text string) {
	m.caption = text
	m.actor.ShowCaption(text)
	m.sched.Schedule(keyCaption, m.cfg.CaptionDuration, func() {
		m.caption = ""
		m.actor.HideCaption()
	})
}

// Poke reacts to the user touching the companion: a wave and some hearts.
func (m *Machine) Poke() {
	m.Transition(domain.AnimWaving)
	m.burst(effects.Hearts)
}

// Vitals returns the idle breathing and blinking state.
func (m *Machine) Vitals() *Vitals { return m.vitals }

func (m *Machine) burst(p effects.Preset) {
	if m.fx != nil {
		m.fx.EmitPreset(p)
	}
	m.actor.ApplyBurst(p.Name, p.Count)
}

func (m *Machine) enterCelebrating() {
	m.burst(effects.Confetti)
	for i := 0; i < m.cfg.CelebrationBursts; i++ {
		key := fmt.Sprintf("%s%d", keyCelebratePrefx, i)
		m.sched.Schedule(key, time.Duration(i)*m.cfg.CelebrationBurstSpacing, func() {
			m.burst(effects.Hearts)
		})
	}
}

func (m *Machine) enterThinking() {
	m.showThought()
}

func (m *Machine) showThought() {
	m.thought = (m.thought + 1) % len(effects.ThoughtSymbols)
	p := effects.Thought
	p.Kind.Symbol = effects.ThoughtSymbols[m.thought]
	m.burst(p)

	if m.rng.Float64() > 0.7 {
		m.burst(effects.Sparkles)
	}

	m.sched.Schedule(keyThought, m.thoughtInterval(), m.showThought)
}

func (m *Machine) thoughtInterval() time.Duration {
	spread := m.cfg.ThoughtIntervalMax - m.cfg.ThoughtIntervalMin
	if spread <= 0 {
		return m.cfg.ThoughtIntervalMin
	}
	return m.cfg.ThoughtIntervalMin + time.Duration(m.rng.Int64N(int64(spread)))
}

// Frame is a render snapshot of the machine and its particles.
type Frame struct {
	State       domain.AnimationState
	Expression  domain.Expression
	Caption     string
	Blinking    bool
	BreathScale float64
	Particles   []effects.Particle
}

// Frame captures the current render state.
func (m *Machine) Frame() Frame {
	f := Frame{
		State:       m.current,
		Expression:  m.Expression(),
		Caption:     m.caption,
		Blinking:    m.vitals.Blinking(),
		BreathScale: m.vitals.BreathScale(),
	}
	if m.fx != nil {
		f.Particles = m.fx.Snapshot()
	}
	return f
}
