package domain

// AnimationState is one of the fixed visual modes of the companion.
type AnimationState int

const (
	AnimIdle AnimationState = iota
	AnimBreathing
	AnimBlinking
	AnimThinking
	AnimPlanning
	AnimWaiting
	AnimCelebrating
	AnimWaving
	AnimNervous
	AnimDancing

	// AnimationStateCount is the number of animation states.
	AnimationStateCount
)

var animationNames = [AnimationStateCount]string{
	AnimIdle:        "idle",
	AnimBreathing:   "breathing",
	AnimBlinking:    "blinking",
	AnimThinking:    "thinking",
	AnimPlanning:    "planning",
	AnimWaiting:     "waiting",
	AnimCelebrating: "celebrating",
	AnimWaving:      "waving",
	AnimNervous:     "nervous",
	AnimDancing:     "dancing",
}

func (a AnimationState) String() string {
	if a < 0 || a >= AnimationStateCount {
		return "unknown"
	}
	return animationNames[a]
}

// ParseAnimationState maps a name back to its state.
func ParseAnimationState(name string) (AnimationState, bool) {
	for i, n := range animationNames {
		if n == name {
			return AnimationState(i), true
		}
	}
	return AnimIdle, false
}

// Expression is the facial expression shown by the actor.
type Expression string

const (
	ExprNeutral  Expression = "neutral"
	ExprHappy    Expression = "happy"
	ExprFocused  Expression = "focused"
	ExprConfused Expression = "confused"
	ExprExcited  Expression = "excited"
	ExprSleepy   Expression = "sleepy"
	ExprNervous  Expression = "nervous"
)
