package effects

import "time"

// Preset is a named parameterization of Emit.
type Preset struct {
	Name     string
	Count    int
	Lifetime time.Duration
	Kind     Kind
	Physics  Physics
	// Interval staggers the particles; zero releases them all at once.
	Interval time.Duration
}

// WithCount returns a copy of p emitting n particles.
func (p Preset) WithCount(n int) Preset {
	p.Count = n
	return p
}

var (
	// Hearts float upward.
	Hearts = Preset{
		Name:     "hearts",
		Count:    5,
		Lifetime: time.Second,
		Kind:     Kind{Symbol: "❤", Palette: []Color{0xff6b6b}},
		Physics:  Physics{Gravity: -0.05, Spread: 90, Velocity: Vec{Y: -2}},
	}

	// Sparkles scatter in every direction without gravity.
	Sparkles = Preset{
		Name:     "sparkles",
		Count:    8,
		Lifetime: 800 * time.Millisecond,
		Kind:     Kind{Symbol: "✨", Palette: []Color{0xffd700}},
		Physics:  Physics{Gravity: 0, Spread: 360},
	}

	// Confetti is launched upward one piece every 30ms and falls back down.
	// Launch velocity varies per piece: x in ±2, y in -8..-5.
	Confetti = Preset{
		Name:     "confetti",
		Count:    20,
		Lifetime: 2 * time.Second,
		Kind:     Kind{Palette: []Color{0xff6b6b, 0x4ecdc4, 0xffe66d, 0x95e1d3, 0xf38181}},
		Physics:  Physics{Gravity: 0.15, Spread: 180, Velocity: Vec{Y: -6.5}, Jitter: Vec{X: 4, Y: 3}},
		Interval: 30 * time.Millisecond,
	}

	// Thought drifts a single thinking symbol upward.
	Thought = Preset{
		Name:     "thought",
		Count:    1,
		Lifetime: 2 * time.Second,
		Kind:     Kind{Symbol: "💭"},
		Physics:  Physics{Gravity: -0.02, Spread: 30, Velocity: Vec{Y: -1}},
	}

	// Question floats a question mark above the head.
	Question = Preset{
		Name:     "question",
		Count:    1,
		Lifetime: 2 * time.Second,
		Kind:     Kind{Symbol: "❓"},
		Physics:  Physics{Gravity: -0.01, Spread: 0, Velocity: Vec{Y: -0.5}},
	}
)

// ThoughtSymbols are cycled through while thinking.
var ThoughtSymbols = []string{"💭", "🤔", "💡", "📝", "⚡", "🔍", "📊"}

// Presets indexes every preset by name.
var Presets = map[string]Preset{
	Hearts.Name:   Hearts,
	Sparkles.Name: Sparkles,
	Confetti.Name: Confetti,
	Thought.Name:  Thought,
	Question.Name: Question,
}
