package animation

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/ashureev/clawdachi/internal/domain"
	"github.com/ashureev/clawdachi/internal/effects"
)

type recordingActor struct {
	states   []domain.AnimationState
	exprs    []domain.Expression
	bursts   map[string]int
	captions []string
	hides    int
}

func newRecordingActor() *recordingActor {
	return &recordingActor{bursts: make(map[string]int)}
}

func (a *recordingActor) ApplyState(s domain.AnimationState, e domain.Expression) {
	a.states = append(a.states, s)
	a.exprs = append(a.exprs, e)
}

func (a *recordingActor) ApplyBurst(preset string, _ int) { a.bursts[preset]++ }
func (a *recordingActor) ShowCaption(text string)         { a.captions = append(a.captions, text) }
func (a *recordingActor) HideCaption()                    { a.hides++ }

func newTestMachine(t *testing.T) (*Machine, *recordingActor, *effects.Engine) {
	t.Helper()
	actor := newRecordingActor()
	rng := rand.New(rand.NewPCG(7, 11))
	fx := effects.NewEngine(rng, nil)
	m := NewMachine(DefaultConfig(), actor, fx, rng, nil)
	m.Start()
	return m, actor, fx
}

func step(m *Machine, total time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += effects.ReferenceFrame {
		m.Update(effects.ReferenceFrame)
	}
}

func TestStateTableIsExhaustive(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMachine(t)
	for s := domain.AnimationState(0); s < domain.AnimationStateCount; s++ {
		if s.String() == "" || s.String() == "unknown" {
			t.Errorf("State %d has no name", int(s))
		}
		if got, ok := domain.ParseAnimationState(s.String()); !ok || got != s {
			t.Errorf("State %s does not round-trip through its name", s)
		}
		// Every state must enter and leave without panicking.
		m.Transition(s)
		m.Update(effects.ReferenceFrame)
		m.Transition(domain.AnimIdle)
	}

	timed := map[domain.AnimationState]time.Duration{
		domain.AnimCelebrating: 2 * time.Second,
		domain.AnimWaving:      800 * time.Millisecond,
	}
	for s, want := range timed {
		if got := m.states[s].duration; got != want {
			t.Errorf("State %s: expected duration %v, got %v", s, want, got)
		}
	}
}

func TestStartEntersIdle(t *testing.T) {
	t.Parallel()

	_, actor, _ := newTestMachine(t)
	if len(actor.states) != 1 || actor.states[0] != domain.AnimIdle {
		t.Fatalf("Expected Start to apply idle, got %v", actor.states)
	}
	if actor.exprs[0] != domain.ExprNeutral {
		t.Errorf("Expected neutral expression, got %s", actor.exprs[0])
	}
}

func TestTransitionToCurrentStateIsNoop(t *testing.T) {
	t.Parallel()

	m, actor, _ := newTestMachine(t)
	m.Transition(domain.AnimThinking)
	step(m, 100*time.Millisecond)
	elapsed := m.Elapsed()

	if m.Transition(domain.AnimThinking) {
		t.Error("Expected repeated transition to report false")
	}
	if m.Elapsed() != elapsed {
		t.Errorf("Expected elapsed unchanged, got %v want %v", m.Elapsed(), elapsed)
	}
	if len(actor.states) != 2 {
		t.Errorf("Expected 2 applied states, got %d", len(actor.states))
	}
}

func TestCompletedCelebratesThenReturnsToIdle(t *testing.T) {
	t.Parallel()

	m, actor, _ := newTestMachine(t)
	m.ApplySession(domain.Session{Status: domain.StatusCompleted, SessionID: "s1"})

	if m.State() != domain.AnimCelebrating {
		t.Fatalf("Expected celebrating, got %s", m.State())
	}
	if m.Expression() != domain.ExprExcited {
		t.Errorf("Expected excited, got %s", m.Expression())
	}
	if actor.bursts["confetti"] != 1 {
		t.Errorf("Expected one confetti burst on enter, got %d", actor.bursts["confetti"])
	}

	step(m, 500*time.Millisecond)
	if actor.bursts["hearts"] != 10 {
		t.Errorf("Expected 10 staggered heart bursts, got %d", actor.bursts["hearts"])
	}

	step(m, 1600*time.Millisecond)
	if m.State() != domain.AnimIdle {
		t.Errorf("Expected auto-return to idle after 2s, got %s", m.State())
	}
}

func TestLeavingCelebratingCancelsPendingBursts(t *testing.T) {
	t.Parallel()

	m, actor, _ := newTestMachine(t)
	m.Transition(domain.AnimCelebrating)
	m.Update(100 * time.Millisecond)
	fired := actor.bursts["hearts"]

	m.Transition(domain.AnimNervous)
	step(m, time.Second)

	if actor.bursts["hearts"] != fired {
		t.Errorf("Expected no heart bursts after leaving, fired %d then %d", fired, actor.bursts["hearts"])
	}
	if fired >= 10 {
		t.Errorf("Expected some bursts still pending at 100ms, got %d fired", fired)
	}
}

func TestWavingExpires(t *testing.T) {
	t.Parallel()

	m, actor, _ := newTestMachine(t)
	m.Poke()
	if m.State() != domain.AnimWaving {
		t.Fatalf("Expected waving after poke, got %s", m.State())
	}
	if actor.bursts["hearts"] != 1 {
		t.Errorf("Expected hearts on poke, got %d", actor.bursts["hearts"])
	}

	step(m, 780*time.Millisecond)
	if m.State() != domain.AnimWaving {
		t.Fatalf("Expected still waving before 800ms, got %s", m.State())
	}
	step(m, 20*time.Millisecond)
	if m.State() != domain.AnimIdle {
		t.Errorf("Expected idle after 800ms, got %s", m.State())
	}
}

func TestToolCaptionAutoHides(t *testing.T) {
	t.Parallel()

	m, actor, _ := newTestMachine(t)
	m.ApplySession(domain.Session{Status: domain.StatusUsingTool, ToolName: "Bash"})

	if m.State() != domain.AnimThinking {
		t.Fatalf("Expected thinking for tool use, got %s", m.State())
	}
	if m.Caption() != "Running command" {
		t.Fatalf("Expected friendly caption, got %q", m.Caption())
	}

	step(m, 2*time.Second)
	m.ApplySession(domain.Session{Status: domain.StatusUsingTool, ToolName: "Read"})
	step(m, 2*time.Second)
	if actor.hides != 0 {
		t.Fatalf("Expected replacement caption to postpone the hide, got %d hides", actor.hides)
	}
	if m.Caption() != "Reading file" {
		t.Errorf("Expected second caption shown, got %q", m.Caption())
	}

	step(m, 1100*time.Millisecond)
	if actor.hides != 1 || m.Caption() != "" {
		t.Errorf("Expected caption hidden 3s after last show, hides=%d caption=%q", actor.hides, m.Caption())
	}
}

func TestThinkingEmitsThoughtsPeriodically(t *testing.T) {
	t.Parallel()

	m, actor, _ := newTestMachine(t)
	m.Transition(domain.AnimThinking)
	if actor.bursts["thought"] != 1 {
		t.Fatalf("Expected a thought on enter, got %d", actor.bursts["thought"])
	}

	step(m, 6100*time.Millisecond)
	if n := actor.bursts["thought"]; n < 3 || n > 4 {
		t.Errorf("Expected 3-4 thoughts after ~6s, got %d", n)
	}

	m.Transition(domain.AnimIdle)
	before := actor.bursts["thought"]
	step(m, 5*time.Second)
	if actor.bursts["thought"] != before {
		t.Error("Expected thoughts to stop after leaving thinking")
	}
}

func TestWaitingShowsQuestion(t *testing.T) {
	t.Parallel()

	m, actor, _ := newTestMachine(t)
	m.ApplySession(domain.Session{Status: domain.StatusWaiting})
	if m.Expression() != domain.ExprConfused {
		t.Errorf("Expected confused, got %s", m.Expression())
	}
	if actor.bursts["question"] != 1 {
		t.Errorf("Expected question burst, got %d", actor.bursts["question"])
	}
}

func TestStopClearsEverything(t *testing.T) {
	t.Parallel()

	m, actor, fx := newTestMachine(t)
	m.ApplySession(domain.Session{Status: domain.StatusUsingTool, ToolName: "Edit"})
	m.Transition(domain.AnimCelebrating)

	m.Stop()
	if m.Scheduler().Len() != 0 {
		t.Errorf("Expected no scheduled tasks after Stop, got %d", m.Scheduler().Len())
	}
	if fx.Len() != 0 || fx.Active() {
		t.Errorf("Expected effect engine cleared, len=%d", fx.Len())
	}
	if actor.hides != 1 {
		t.Errorf("Expected caption hidden on stop, got %d hides", actor.hides)
	}

	hearts := actor.bursts["hearts"]
	m.Update(time.Second)
	if actor.bursts["hearts"] != hearts {
		t.Error("Expected no bursts after Stop")
	}
}

func TestVitalsBlinkAndBreathe(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMachine(t)
	sawBlink := false
	minScale, maxScale := 2.0, 0.0
	for elapsed := time.Duration(0); elapsed < 7*time.Second; elapsed += effects.ReferenceFrame {
		m.Update(effects.ReferenceFrame)
		f := m.Frame()
		if f.Blinking {
			sawBlink = true
		}
		minScale = min(minScale, f.BreathScale)
		maxScale = max(maxScale, f.BreathScale)
	}

	if !sawBlink || m.Vitals().Blinks() == 0 {
		t.Error("Expected at least one blink within 7s")
	}
	if minScale < 0.98-1e-9 || maxScale > 1.02+1e-9 {
		t.Errorf("Expected breath scale within 2%%, got [%f, %f]", minScale, maxScale)
	}
	if maxScale-minScale < 0.03 {
		t.Errorf("Expected breath scale to oscillate, got [%f, %f]", minScale, maxScale)
	}
}

func TestStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status domain.Status
		state  domain.AnimationState
		expr   domain.Expression
	}{
		{domain.StatusIdle, domain.AnimIdle, domain.ExprNeutral},
		{domain.StatusThinking, domain.AnimThinking, domain.ExprFocused},
		{domain.StatusUsingTool, domain.AnimThinking, domain.ExprFocused},
		{domain.StatusWaiting, domain.AnimWaiting, domain.ExprConfused},
		{domain.StatusCompleted, domain.AnimCelebrating, domain.ExprExcited},
		{domain.StatusError, domain.AnimNervous, domain.ExprNervous},
		{domain.Status("bogus"), domain.AnimIdle, domain.ExprNeutral},
	}

	for _, tt := range tests {
		if got := StatusToAnimation(tt.status); got != tt.state {
			t.Errorf("%s: expected state %s, got %s", tt.status, tt.state, got)
		}
		if got := StatusToExpression(tt.status); got != tt.expr {
			t.Errorf("%s: expected expression %s, got %s", tt.status, tt.expr, got)
		}
	}
}
