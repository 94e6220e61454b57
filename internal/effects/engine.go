// Package effects implements the time-stepped particle simulation behind the
// companion's bursts (hearts, sparkles, confetti and floating symbols).
package effects

import (
	"math"
	"math/rand/v2"
	"time"
)

// ReferenceFrame is the frame duration the physics constants are tuned for.
// Integration is scaled by elapsed/ReferenceFrame.
const ReferenceFrame = 16 * time.Millisecond

// Color is a packed 0xRRGGBB value.
type Color uint32

// Vec is a 2D vector in actor-local pixels, +y pointing down.
type Vec struct {
	X, Y float64
}

// Kind is what a particle looks like.
type Kind struct {
	// Symbol is drawn as text; empty means a plain dot.
	Symbol string
	// Palette is sampled per particle. Empty falls back to DefaultColor.
	Palette []Color
}

// Physics holds the motion parameters shared by one emission.
type Physics struct {
	Gravity float64
	// Spread is the full cone angle in degrees around Velocity.
	Spread   float64
	Velocity Vec
	// Jitter is the full per-particle range added to Velocity, centred on
	// zero for each axis.
	Jitter Vec
}

// DefaultColor is used when a Kind has no palette.
const DefaultColor Color = 0xff6b6b

// Particle is a live simulated entity. It is owned by the Engine; callers
// only ever see copies through Snapshot.
type Particle struct {
	ID            uint64
	Pos           Vec
	Vel           Vec
	Rotation      float64
	RotationSpeed float64
	Life          time.Duration
	MaxLife       time.Duration
	Gravity       float64
	Symbol        string
	Color         Color
}

// Opacity is proportional to the remaining lifetime and reaches zero at
// expiry.
func (p Particle) Opacity() float64 {
	if p.MaxLife <= 0 {
		return 0
	}
	return math.Max(0, float64(p.Life)/float64(p.MaxLife))
}

// Surface is the visual tree particles are attached to. Detach is called
// exactly once for every attached particle, when it expires or is cleared.
type Surface interface {
	Attach(p Particle)
	Detach(id uint64)
}

// Engine owns the active particle set. It is not safe for concurrent use;
// the frame loop is its only caller.
type Engine struct {
	rng       *rand.Rand
	surface   Surface
	particles []*Particle
	pending   []pendingSpawn
	nextID    uint64
	active    bool
}

// pendingSpawn is a staggered preset particle waiting for its frame.
type pendingSpawn struct {
	in     time.Duration
	preset Preset
}

// NewEngine creates an engine. A nil rng gets a randomly seeded source; a
// nil surface discards attach/detach notifications.
func NewEngine(rng *rand.Rand, surface Surface) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{rng: rng, surface: surface}
}

// Emit spawns count particles sharing lifetime, kind and physics. Each gets
// a random angle inside the spread cone, a random speed and spin.
func (e *Engine) Emit(count int, lifetime time.Duration, kind Kind, phys Physics) {
	if count <= 0 || lifetime <= 0 {
		return
	}

	spread := phys.Spread * math.Pi / 180
	for i := 0; i < count; i++ {
		angle := (e.rng.Float64() - 0.5) * spread
		speed := 1 + e.rng.Float64()*2

		e.nextID++
		p := &Particle{
			ID:  e.nextID,
			Pos: Vec{X: (e.rng.Float64() - 0.5) * 40},
			Vel: Vec{
				X: phys.Velocity.X + (e.rng.Float64()-0.5)*phys.Jitter.X + math.Sin(angle)*speed,
				Y: phys.Velocity.Y + (e.rng.Float64()-0.5)*phys.Jitter.Y + math.Cos(angle)*speed,
			},
			Rotation:      e.rng.Float64() * 2 * math.Pi,
			RotationSpeed: (e.rng.Float64() - 0.5) * 0.2,
			Life:          lifetime,
			MaxLife:       lifetime,
			Gravity:       phys.Gravity,
			Symbol:        kind.Symbol,
			Color:         e.pickColor(kind.Palette),
		}
		e.particles = append(e.particles, p)
		if e.surface != nil {
			e.surface.Attach(*p)
		}
	}
	e.active = true
}

// EmitPreset emits a named preset. A preset with an Interval releases one
// particle now and the rest one per Interval as Update advances.
func (e *Engine) EmitPreset(p Preset) {
	if p.Interval <= 0 || p.Count <= 1 {
		e.Emit(p.Count, p.Lifetime, p.Kind, p.Physics)
		return
	}
	e.Emit(1, p.Lifetime, p.Kind, p.Physics)
	for i := 1; i < p.Count; i++ {
		e.pending = append(e.pending, pendingSpawn{in: time.Duration(i) * p.Interval, preset: p})
	}
	e.active = true
}

func (e *Engine) pickColor(palette []Color) Color {
	if len(palette) == 0 {
		return DefaultColor
	}
	return palette[e.rng.IntN(len(palette))]
}

// Update advances the simulation by dt and removes every particle whose
// lifetime ran out.
func (e *Engine) Update(dt time.Duration) {
	if !e.active || dt <= 0 {
		return
	}

	step := float64(dt) / float64(ReferenceFrame)
	live := e.particles[:0]
	for _, p := range e.particles {
		p.Pos.X += p.Vel.X * step
		p.Pos.Y += p.Vel.Y * step
		p.Vel.Y += p.Gravity * step
		p.Rotation += p.RotationSpeed * step
		p.Life -= dt

		if p.Life <= 0 {
			if e.surface != nil {
				e.surface.Detach(p.ID)
			}
			continue
		}
		live = append(live, p)
	}
	clear(e.particles[len(live):])
	e.particles = live

	waiting := e.pending[:0]
	for _, sp := range e.pending {
		sp.in -= dt
		if sp.in <= 0 {
			e.Emit(1, sp.preset.Lifetime, sp.preset.Kind, sp.preset.Physics)
			continue
		}
		waiting = append(waiting, sp)
	}
	e.pending = waiting

	if len(e.particles) == 0 && len(e.pending) == 0 {
		e.active = false
	}
}

// Clear removes every particle and halts the simulation until the next Emit.
func (e *Engine) Clear() {
	if e.surface != nil {
		for _, p := range e.particles {
			e.surface.Detach(p.ID)
		}
	}
	clear(e.particles)
	e.particles = e.particles[:0]
	e.pending = nil
	e.active = false
}

// Active reports whether Update has anything to simulate.
func (e *Engine) Active() bool { return e.active }

// Len returns the number of live particles.
func (e *Engine) Len() int { return len(e.particles) }

// Pending returns the number of staggered particles not yet released.
func (e *Engine) Pending() int { return len(e.pending) }

// Snapshot copies the live particles for rendering.
func (e *Engine) Snapshot() []Particle {
	out := make([]Particle, len(e.particles))
	for i, p := range e.particles {
		out[i] = *p
	}
	return out
}
