package animation

import "github.com/ashureev/clawdachi/internal/domain"

// StatusToAnimation maps an activity status onto the animation it drives.
// Tool use looks the same as thinking; the tool name is shown as a caption.
func StatusToAnimation(status domain.Status) domain.AnimationState {
	switch status {
	case domain.StatusThinking, domain.StatusUsingTool:
		return domain.AnimThinking
	case domain.StatusWaiting:
		return domain.AnimWaiting
	case domain.StatusCompleted:
		return domain.AnimCelebrating
	case domain.StatusError:
		return domain.AnimNervous
	default:
		return domain.AnimIdle
	}
}

// StatusToExpression returns the expression an activity status ends up
// showing.
func StatusToExpression(status domain.Status) domain.Expression {
	return ExpressionFor(StatusToAnimation(status))
}

// ExpressionFor returns the expression bound to an animation state.
func ExpressionFor(state domain.AnimationState) domain.Expression {
	if state < 0 || state >= domain.AnimationStateCount {
		return domain.ExprNeutral
	}
	return stateExpressions[state]
}

var stateExpressions = [domain.AnimationStateCount]domain.Expression{
	domain.AnimIdle:        domain.ExprNeutral,
	domain.AnimBreathing:   domain.ExprNeutral,
	domain.AnimBlinking:    domain.ExprNeutral,
	domain.AnimThinking:    domain.ExprFocused,
	domain.AnimPlanning:    domain.ExprFocused,
	domain.AnimWaiting:     domain.ExprConfused,
	domain.AnimCelebrating: domain.ExprExcited,
	domain.AnimWaving:      domain.ExprHappy,
	domain.AnimNervous:     domain.ExprNervous,
	domain.AnimDancing:     domain.ExprHappy,
}
