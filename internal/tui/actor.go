package tui

import (
	"sync"

	"github.com/ashureev/clawdachi/internal/animation"
	"github.com/ashureev/clawdachi/internal/domain"
)

const maxEvents = 6

// Actor is the terminal renderer's side of the frame loop. The loop writes
// the latest frame and events into it; the bubbletea model polls it on its
// own tick, so the frame loop never waits on the terminal.
type Actor struct {
	mu     sync.Mutex
	frame  animation.Frame
	events []string
}

// NewActor creates an empty terminal actor.
func NewActor() *Actor {
	return &Actor{}
}

func (a *Actor) ApplyState(state domain.AnimationState, expression domain.Expression) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frame.State = state
	a.frame.Expression = expression
	a.pushEvent(state.String())
}

func (a *Actor) ApplyBurst(_ string, _ int) {}

func (a *Actor) ShowCaption(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frame.Caption = text
}

func (a *Actor) HideCaption() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frame.Caption = ""
}

// RenderFrame stores f as the latest frame.
func (a *Actor) RenderFrame(f animation.Frame) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frame = f
}

func (a *Actor) pushEvent(e string) {
	a.events = append(a.events, e)
	if len(a.events) > maxEvents {
		a.events = a.events[len(a.events)-maxEvents:]
	}
}

type snapshot struct {
	frame  animation.Frame
	events []string
}

func (a *Actor) snapshot() snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return snapshot{
		frame:  a.frame,
		events: append([]string(nil), a.events...),
	}
}
