// Package actor holds the renderer-side implementations of animation.Actor
// that do not need a terminal: a structured log actor, a fan-out, and a
// WebSocket feed for external renderers.
package actor

import (
	"log/slog"

	"github.com/ashureev/clawdachi/internal/animation"
	"github.com/ashureev/clawdachi/internal/domain"
	"github.com/ashureev/clawdachi/internal/effects"
)

// Log writes every command to a logger. It is the headless renderer.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log actor.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) ApplyState(state domain.AnimationState, expression domain.Expression) {
	l.logger.Info("[ACTOR] State", "state", state.String(), "expression", expression)
}

func (l *Log) ApplyBurst(preset string, count int) {
	l.logger.Debug("[ACTOR] Burst", "preset", preset, "count", count)
}

func (l *Log) ShowCaption(text string) {
	l.logger.Info("[ACTOR] Caption", "text", text)
}

func (l *Log) HideCaption() {
	l.logger.Debug("[ACTOR] Caption hidden")
}

// Multi forwards every command to each actor in order. Frames and particle
// notifications reach the members that implement them.
type Multi []animation.Actor

func (m Multi) ApplyState(state domain.AnimationState, expression domain.Expression) {
	for _, a := range m {
		a.ApplyState(state, expression)
	}
}

func (m Multi) ApplyBurst(preset string, count int) {
	for _, a := range m {
		a.ApplyBurst(preset, count)
	}
}

func (m Multi) ShowCaption(text string) {
	for _, a := range m {
		a.ShowCaption(text)
	}
}

func (m Multi) HideCaption() {
	for _, a := range m {
		a.HideCaption()
	}
}

func (m Multi) RenderFrame(f animation.Frame) {
	for _, a := range m {
		if r, ok := a.(interface{ RenderFrame(animation.Frame) }); ok {
			r.RenderFrame(f)
		}
	}
}

func (m Multi) Attach(p effects.Particle) {
	for _, a := range m {
		if s, ok := a.(effects.Surface); ok {
			s.Attach(p)
		}
	}
}

func (m Multi) Detach(id uint64) {
	for _, a := range m {
		if s, ok := a.(effects.Surface); ok {
			s.Detach(id)
		}
	}
}
