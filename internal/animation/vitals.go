package animation

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	BreathCycle    = 3 * time.Second
	BreathAmount   = 0.02
	BlinkMin       = 2 * time.Second
	BlinkMax       = 6 * time.Second
	BlinkDuration  = 150 * time.Millisecond
	keyBlink       = "blink"
	keyBlinkFinish = "blink-end"
)

// Vitals is the ambient breathing and blinking that runs underneath every
// state.
type Vitals struct {
	sched    *Scheduler
	rng      *rand.Rand
	phase    time.Duration
	blinking bool
	blinks   int
}

// NewVitals creates vitals that schedule their blinks on sched.
func NewVitals(sched *Scheduler, rng *rand.Rand) *Vitals {
	return &Vitals{sched: sched, rng: rng}
}

// Start schedules the first blink.
func (v *Vitals) Start() {
	v.scheduleBlink()
}

// Reset stops blinking and rewinds the breath cycle.
func (v *Vitals) Reset() {
	v.sched.CancelPrefix(keyBlink)
	v.phase = 0
	v.blinking = false
}

// Update advances the breath cycle.
func (v *Vitals) Update(dt time.Duration) {
	v.phase = (v.phase + dt) % BreathCycle
}

// BreathScale is the vertical scale applied to the body, oscillating around 1.
func (v *Vitals) BreathScale() float64 {
	return 1 + BreathAmount*math.Sin(2*math.Pi*float64(v.phase)/float64(BreathCycle))
}

// Blinking reports whether the eyes are closed right now.
func (v *Vitals) Blinking() bool { return v.blinking }

// Blinks counts the blinks started so far.
func (v *Vitals) Blinks() int { return v.blinks }

func (v *Vitals) scheduleBlink() {
	wait := BlinkMin + time.Duration(v.rng.Int64N(int64(BlinkMax-BlinkMin)))
	v.sched.Schedule(keyBlink, wait, func() {
		v.blinking = true
		v.blinks++
		v.sched.Schedule(keyBlinkFinish, BlinkDuration, func() {
			v.blinking = false
			v.scheduleBlink()
		})
	})
}
