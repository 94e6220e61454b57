// Package pet runs the companion's frame loop: it applies emitted sessions
// to the animation machine, advances the machine and the particle engine on
// a fixed tick and hands each frame to the renderer.
package pet

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ashureev/clawdachi/internal/animation"
	"github.com/ashureev/clawdachi/internal/clock"
	"github.com/ashureev/clawdachi/internal/domain"
	"github.com/ashureev/clawdachi/internal/effects"
	"github.com/ashureev/clawdachi/internal/session"
	"github.com/ashureev/clawdachi/internal/store"
)

// DefaultFrameInterval is the frame tick, about 60fps.
const DefaultFrameInterval = effects.ReferenceFrame

// Actor receives state, burst and caption commands.
type Actor = animation.Actor

// FrameRenderer is implemented by actors that draw whole frames.
type FrameRenderer interface {
	RenderFrame(f animation.Frame)
}

// HistoryRecorder stores applied changes.
type HistoryRecorder interface {
	Record(c store.Change) bool
}

// Config configures a Pet.
type Config struct {
	FrameInterval time.Duration
	StaleAfter    time.Duration
	RunID         string
	Animation     animation.Config

	Clock   clock.Clock
	Rand    *rand.Rand
	History HistoryRecorder
	Logger  *slog.Logger
}

// Pet owns the animation machine and the effect engine. Run is their only
// caller, so neither needs locking.
type Pet struct {
	cfg       Config
	machine   *animation.Machine
	fx        *effects.Engine
	actor     Actor
	renderer  FrameRenderer
	emissions <-chan domain.Session
	pokes     chan struct{}
	logger    *slog.Logger
}

// New creates a pet that applies sessions read from emissions to actor. If
// actor also implements effects.Surface it is told about every particle.
func New(cfg Config, actor Actor, emissions <-chan domain.Session) *Pet {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = session.DefaultStaleAfter
	}
	if cfg.Animation == (animation.Config{}) {
		cfg.Animation = animation.DefaultConfig()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	surface, _ := actor.(effects.Surface)
	fx := effects.NewEngine(cfg.Rand, surface)
	renderer, _ := actor.(FrameRenderer)

	return &Pet{
		cfg:       cfg,
		machine:   animation.NewMachine(cfg.Animation, actor, fx, cfg.Rand, cfg.Logger),
		fx:        fx,
		actor:     actor,
		renderer:  renderer,
		emissions: emissions,
		pokes:     make(chan struct{}, 8),
		logger:    cfg.Logger,
	}
}

// Poke asks the loop to react to a user touch. It never blocks.
func (p *Pet) Poke() {
	select {
	case p.pokes <- struct{}{}:
	default:
		p.logger.Debug("[PET] Poke queue full, dropped")
	}
}

// Run drives the loop until ctx is done.
func (p *Pet) Run(ctx context.Context) error {
	p.machine.Start()
	defer p.machine.Stop()

	ticker := p.cfg.Clock.NewTicker(p.cfg.FrameInterval)
	defer ticker.Stop()

	p.logger.Info("[PET] Frame loop started", "frame_interval", p.cfg.FrameInterval, "run_id", p.cfg.RunID)

	last := p.cfg.Clock.Now()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("[PET] Frame loop stopped", "state", p.machine.State().String())
			return nil

		case s := <-p.emissions:
			p.apply(s)

		case <-p.pokes:
			p.machine.Poke()

		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if dt <= 0 {
				continue
			}
			p.machine.Update(dt)
			p.fx.Update(dt)
			if p.renderer != nil {
				p.renderer.RenderFrame(p.machine.Frame())
			}
		}
	}
}

func (p *Pet) apply(s domain.Session) {
	now := p.cfg.Clock.Now()
	stale := session.IsStale(s, now, p.cfg.StaleAfter)
	if stale {
		p.logger.Warn("[PET] Applying stale session",
			"session_id", s.SessionID,
			"status", s.Status,
			"age", now.Sub(s.Time()).Round(time.Second))
	}

	changed := p.machine.ApplySession(s)
	p.logger.Info("[PET] Session applied",
		"session_id", s.SessionID,
		"status", s.Status,
		"tool", s.ToolName,
		"source", s.Source,
		"animation", p.machine.State().String(),
		"transitioned", changed)

	if p.cfg.History != nil {
		p.cfg.History.Record(store.Change{
			RunID:      p.cfg.RunID,
			SessionID:  s.SessionID,
			Status:     s.Status,
			ToolName:   s.ToolName,
			Message:    s.Message,
			Source:     s.Source,
			Animation:  p.machine.State(),
			Expression: p.machine.Expression(),
			ProducedAt: s.Time(),
			AppliedAt:  now,
			Stale:      stale,
		})
	}
}
