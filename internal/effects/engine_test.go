package effects

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"
)

type countingSurface struct {
	attached map[uint64]bool
	detaches int
}

func newCountingSurface() *countingSurface {
	return &countingSurface{attached: make(map[uint64]bool)}
}

func (s *countingSurface) Attach(p Particle) { s.attached[p.ID] = true }

func (s *countingSurface) Detach(id uint64) {
	if !s.attached[id] {
		panic("detach of unknown particle")
	}
	delete(s.attached, id)
	s.detaches++
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestEmitSpawnsCountParticles(t *testing.T) {
	t.Parallel()

	surface := newCountingSurface()
	e := NewEngine(seeded(), surface)
	e.EmitPreset(Confetti)

	if e.Len() != 1 || e.Pending() != Confetti.Count-1 {
		t.Fatalf("Expected 1 live and %d staggered, got %d and %d", Confetti.Count-1, e.Len(), e.Pending())
	}
	// 19 more at 30ms apart are all out by 570ms.
	for i := 0; i < 40; i++ {
		e.Update(ReferenceFrame)
	}

	if e.Len() != Confetti.Count || e.Pending() != 0 {
		t.Fatalf("Expected %d particles, got %d (pending %d)", Confetti.Count, e.Len(), e.Pending())
	}
	if len(surface.attached) != Confetti.Count {
		t.Fatalf("Expected %d attached handles, got %d", Confetti.Count, len(surface.attached))
	}
	if !e.Active() {
		t.Fatal("Expected engine to be active after emit")
	}

	for _, p := range e.Snapshot() {
		found := false
		for _, c := range Confetti.Kind.Palette {
			if p.Color == c {
				found = true
			}
		}
		if !found {
			t.Errorf("Particle color %#x not in confetti palette", p.Color)
		}
	}
}

func TestStaggeredPresetReleasesOnePerInterval(t *testing.T) {
	t.Parallel()

	e := NewEngine(seeded(), nil)
	e.EmitPreset(Confetti)

	e.Update(Confetti.Interval)
	if e.Len() != 2 {
		t.Errorf("Expected 2 particles after one interval, got %d", e.Len())
	}
	e.Update(2 * Confetti.Interval)
	if e.Len() != 4 {
		t.Errorf("Expected 4 particles after three intervals, got %d", e.Len())
	}

	e.Clear()
	if e.Pending() != 0 || e.Active() {
		t.Errorf("Expected Clear to drop staggered particles, pending=%d", e.Pending())
	}
	e.Update(time.Second)
	if e.Len() != 0 {
		t.Errorf("Expected nothing released after Clear, got %d", e.Len())
	}
}

func TestVelocityJitterStaysInRange(t *testing.T) {
	t.Parallel()

	e := NewEngine(seeded(), nil)
	phys := Physics{Velocity: Vec{Y: -6.5}, Jitter: Vec{X: 4, Y: 3}}
	e.Emit(200, time.Second, Kind{}, phys)

	// Spread 0 adds speed 1..3 straight along +y.
	var minX, maxX float64
	for _, p := range e.Snapshot() {
		if p.Vel.X < -2 || p.Vel.X > 2 {
			t.Errorf("Velocity x %f outside ±2", p.Vel.X)
		}
		if p.Vel.Y < -8+1 || p.Vel.Y > -5+3 {
			t.Errorf("Velocity y %f outside jittered range", p.Vel.Y)
		}
		minX, maxX = min(minX, p.Vel.X), max(maxX, p.Vel.X)
	}
	if maxX-minX < 1 {
		t.Errorf("Expected velocities to vary, spread was %f", maxX-minX)
	}
}

func TestParticleOpacityAndExpiry(t *testing.T) {
	t.Parallel()

	surface := newCountingSurface()
	e := NewEngine(seeded(), surface)
	lifetime := 800 * time.Millisecond
	e.Emit(3, lifetime, Kind{Symbol: "*"}, Physics{})

	for _, p := range e.Snapshot() {
		if p.Opacity() != 1.0 {
			t.Fatalf("Expected opacity 1.0 at t=0, got %f", p.Opacity())
		}
	}

	e.Update(lifetime / 2)
	for _, p := range e.Snapshot() {
		if math.Abs(p.Opacity()-0.5) > 1e-9 {
			t.Errorf("Expected opacity 0.5 at half life, got %f", p.Opacity())
		}
	}

	e.Update(lifetime / 2)
	if e.Len() != 0 {
		t.Fatalf("Expected all particles removed at t=L, got %d", e.Len())
	}
	if surface.detaches != 3 || len(surface.attached) != 0 {
		t.Errorf("Expected 3 released handles, got detaches=%d attached=%d", surface.detaches, len(surface.attached))
	}
	if e.Active() {
		t.Error("Expected engine to halt once empty")
	}
}

func TestExpiredParticlesRemovedEveryTick(t *testing.T) {
	t.Parallel()

	e := NewEngine(seeded(), nil)
	e.Emit(2, 100*time.Millisecond, Kind{}, Physics{})
	e.Emit(2, 300*time.Millisecond, Kind{}, Physics{})

	e.Update(ReferenceFrame)
	if e.Len() != 4 {
		t.Fatalf("Expected 4 live particles, got %d", e.Len())
	}

	for elapsed := ReferenceFrame; elapsed < 100*time.Millisecond; elapsed += ReferenceFrame {
		e.Update(ReferenceFrame)
	}
	if e.Len() != 2 {
		t.Fatalf("Expected short-lived particles gone after 112ms, got %d live", e.Len())
	}
}

func TestClearRemovesEverything(t *testing.T) {
	t.Parallel()

	surface := newCountingSurface()
	e := NewEngine(seeded(), surface)
	e.EmitPreset(Hearts)
	e.EmitPreset(Sparkles)

	e.Clear()
	if e.Len() != 0 {
		t.Fatalf("Expected 0 particles after Clear, got %d", e.Len())
	}
	if len(surface.attached) != 0 {
		t.Errorf("Expected every handle released, %d remain", len(surface.attached))
	}
	if e.Active() {
		t.Error("Expected simulation halted after Clear")
	}

	// Update on a cleared engine is a no-op.
	e.Update(time.Second)

	e.EmitPreset(Hearts)
	if !e.Active() || e.Len() != Hearts.Count {
		t.Errorf("Expected emit to restart simulation, active=%v len=%d", e.Active(), e.Len())
	}
}

func TestGravitySignPerPreset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		preset Preset
		sign   float64
	}{
		{Hearts, -1},
		{Confetti, 1},
		{Sparkles, 0},
	}

	for _, tt := range tests {
		e := NewEngine(seeded(), nil)
		e.EmitPreset(tt.preset)
		before := e.Snapshot()
		e.Update(ReferenceFrame)
		after := e.Snapshot()

		for i := range before {
			dv := after[i].Vel.Y - before[i].Vel.Y
			switch {
			case tt.sign < 0 && dv >= 0:
				t.Errorf("%s: expected upward acceleration, got dv=%f", tt.preset.Name, dv)
			case tt.sign > 0 && dv <= 0:
				t.Errorf("%s: expected downward acceleration, got dv=%f", tt.preset.Name, dv)
			case tt.sign == 0 && dv != 0:
				t.Errorf("%s: expected no acceleration, got dv=%f", tt.preset.Name, dv)
			}
		}
	}
}

func TestUpdateIsFrameRateIndependentWithoutGravity(t *testing.T) {
	t.Parallel()

	a := NewEngine(seeded(), nil)
	b := NewEngine(seeded(), nil)
	a.EmitPreset(Sparkles)
	b.EmitPreset(Sparkles)

	a.Update(ReferenceFrame)
	a.Update(ReferenceFrame)
	b.Update(2 * ReferenceFrame)

	pa, pb := a.Snapshot(), b.Snapshot()
	for i := range pa {
		if math.Abs(pa[i].Pos.X-pb[i].Pos.X) > 1e-9 || math.Abs(pa[i].Pos.Y-pb[i].Pos.Y) > 1e-9 {
			t.Errorf("Particle %d diverged: %+v vs %+v", i, pa[i].Pos, pb[i].Pos)
		}
	}
}

func TestSpreadConeBoundsDirection(t *testing.T) {
	t.Parallel()

	e := NewEngine(seeded(), nil)
	e.Emit(50, time.Second, Kind{}, Physics{Spread: 0})
	for _, p := range e.Snapshot() {
		if p.Vel.X != 0 {
			t.Fatalf("Expected zero spread to keep particles on axis, got vx=%f", p.Vel.X)
		}
		if p.Vel.Y < 1 || p.Vel.Y > 3 {
			t.Fatalf("Expected speed in [1,3], got vy=%f", p.Vel.Y)
		}
	}
}

func TestEmitIgnoresEmptyBursts(t *testing.T) {
	t.Parallel()

	e := NewEngine(seeded(), nil)
	e.Emit(0, time.Second, Kind{}, Physics{})
	e.Emit(3, 0, Kind{}, Physics{})
	if e.Len() != 0 || e.Active() {
		t.Errorf("Expected no particles, got len=%d active=%v", e.Len(), e.Active())
	}
}
