package engine

const (
	DefaultProblems     = 10
	DefaultRoundSeconds = 30
	DefaultMinOperand   = 1
	DefaultMaxOperand   = 100

	urgentBelowSeconds = 10
)

func DefaultRules() Rules {
	return Rules{
		Problems:     DefaultProblems,
		RoundSeconds: DefaultRoundSeconds,
		MinOperand:   DefaultMinOperand,
		MaxOperand:   DefaultMaxOperand,
	}
}

func NewState(rules Rules) State {
	return State{
		Phase:        PhaseNotStarted,
		Feedback:     FeedbackUnknown,
		IntroVisible: true, // start modal shows until the first StartGame
		Rules:        rules,
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Urgent reports whether the countdown should be drawn as running out.
func Urgent(s State) bool {
	return s.Phase == PhaseInProgress && s.TimeRemaining < urgentBelowSeconds
}

// Verdict is the closing line shown with the final score.
func Verdict(score, total int) string {
	switch {
	case score >= total:
		return "Perfect score! Amazing!"
	case score >= 8:
		return "Great job!"
	case score >= 5:
		return "Good effort!"
	default:
		return "Keep practicing!"
	}
}
