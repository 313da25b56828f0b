package engine

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pinProblems makes drawProblem hand out the given problems in order, cycling.
func pinProblems(t *testing.T, problems ...Problem) {
	t.Helper()
	orig := drawProblem
	i := 0
	drawProblem = func(Rules) Problem {
		p := problems[i%len(problems)]
		i++
		return p
	}
	t.Cleanup(func() { drawProblem = orig })
}

func mustApply(t *testing.T, s State, cmd Command) ([]Event, State) {
	t.Helper()
	events, next, err := Apply(s, cmd)
	require.NoError(t, err, "command %s", cmd.Type)
	return events, next
}

func startedState(t *testing.T) State {
	t.Helper()
	_, s := mustApply(t, NewState(DefaultRules()), Command{Type: CmdStartGame})
	return s
}

func TestStartGame_InitializesRound(t *testing.T) {
	pinProblems(t, Problem{A: 7, B: 8})

	events, s := mustApply(t, NewState(DefaultRules()), Command{Type: CmdStartGame})

	assert.True(t, ContainsEvent(events, EvtGameStarted))
	assert.True(t, ContainsEvent(events, EvtProblemDealt))
	assert.Equal(t, PhaseInProgress, s.Phase)
	assert.Equal(t, Problem{A: 7, B: 8}, s.Problem)
	assert.Equal(t, 0, s.Score)
	assert.Equal(t, 0, s.ProblemIndex)
	assert.Equal(t, 30, s.TimeRemaining)
	assert.Equal(t, FeedbackUnknown, s.Feedback)
	assert.False(t, s.IntroVisible)
}

func TestSubmitAnswer_Scenarios(t *testing.T) {
	cases := []struct {
		name         string
		text         string
		wantFeedback Feedback
		wantScore    int
	}{
		{name: "correct sum", text: "15", wantFeedback: FeedbackCorrect, wantScore: 1},
		{name: "off by one", text: "14", wantFeedback: FeedbackIncorrect, wantScore: 0},
		{name: "surrounding whitespace", text: " 15 ", wantFeedback: FeedbackCorrect, wantScore: 1},
		{name: "not a number", text: "abc", wantFeedback: FeedbackIncorrect, wantScore: 0},
		{name: "trailing garbage", text: "15abc", wantFeedback: FeedbackIncorrect, wantScore: 0},
		{name: "decimal", text: "15.0", wantFeedback: FeedbackIncorrect, wantScore: 0},
		{name: "negative", text: "-15", wantFeedback: FeedbackIncorrect, wantScore: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pinProblems(t, Problem{A: 7, B: 8})
			s := startedState(t)

			_, s = mustApply(t, s, Command{Type: CmdSubmitAnswer, Text: tc.text, Round: 0})
			assert.Equal(t, tc.wantFeedback, s.Feedback)
			assert.True(t, s.Pending)
			assert.Equal(t, 0, s.ProblemIndex, "index only moves on resolution")

			_, s = mustApply(t, s, Command{Type: CmdResolveAnswer, Round: 0})
			assert.Equal(t, tc.wantScore, s.Score)
			assert.Equal(t, 1, s.ProblemIndex)
			assert.Equal(t, FeedbackUnknown, s.Feedback)
			assert.Equal(t, "", s.AnswerText)
			assert.Equal(t, 30, s.TimeRemaining)
			assert.False(t, s.Pending)
		})
	}
}

func TestSubmitAnswer_SumAlwaysCorrect(t *testing.T) {
	s := startedState(t)
	for s.Phase == PhaseInProgress {
		sum := s.Problem.A + s.Problem.B
		require.GreaterOrEqual(t, s.Problem.A, 1)
		require.LessOrEqual(t, s.Problem.A, 100)

		_, wrong, err := Apply(s, Command{Type: CmdSubmitAnswer, Text: strconv.Itoa(sum + 1), Round: s.ProblemIndex})
		require.NoError(t, err)
		assert.Equal(t, FeedbackIncorrect, wrong.Feedback)

		_, s = mustApply(t, s, Command{Type: CmdSubmitAnswer, Text: strconv.Itoa(sum), Round: s.ProblemIndex})
		assert.Equal(t, FeedbackCorrect, s.Feedback)
		_, s = mustApply(t, s, Command{Type: CmdResolveAnswer, Round: s.ProblemIndex})
	}

	assert.Equal(t, PhaseFinished, s.Phase)
	assert.Equal(t, 10, s.Score)
	assert.Equal(t, 10, s.ProblemIndex)
}

func TestTick_ThirtyTicksAdvanceProblem(t *testing.T) {
	pinProblems(t, Problem{A: 1, B: 2}, Problem{A: 3, B: 4})
	s := startedState(t)

	for i := 0; i < 29; i++ {
		_, s = mustApply(t, s, Command{Type: CmdTick})
	}
	assert.Equal(t, 1, s.TimeRemaining)
	assert.Equal(t, 0, s.ProblemIndex)

	events, s := mustApply(t, s, Command{Type: CmdTick})
	assert.True(t, ContainsEvent(events, EvtTimerExpired))
	assert.Equal(t, PhaseInProgress, s.Phase)
	assert.Equal(t, 1, s.ProblemIndex)
	assert.Equal(t, 0, s.Score)
	assert.Equal(t, 30, s.TimeRemaining)
	assert.Equal(t, Problem{A: 3, B: 4}, s.Problem)
}

func TestTick_TenTimeoutsFinishWithZeroScore(t *testing.T) {
	s := startedState(t)
	s.AnswerText = "typed but never submitted"

	ticks := 0
	for s.Phase == PhaseInProgress {
		_, s = mustApply(t, s, Command{Type: CmdTick})
		ticks++
		require.LessOrEqual(t, ticks, 300)
	}

	assert.Equal(t, 300, ticks)
	assert.Equal(t, PhaseFinished, s.Phase)
	assert.Equal(t, 0, s.Score)
	assert.Equal(t, 10, s.ProblemIndex)
	assert.Equal(t, 0, s.TimeRemaining)
}

func TestTick_ExpiryOnLastProblemFinishes(t *testing.T) {
	s := startedState(t)
	s.ProblemIndex = 9
	s.TimeRemaining = 1

	events, s := mustApply(t, s, Command{Type: CmdTick})
	assert.True(t, ContainsEvent(events, EvtGameCompleted))
	assert.Equal(t, PhaseFinished, s.Phase)
	assert.Equal(t, 10, s.ProblemIndex)
}

func TestTimeoutBeatsLateSubmission(t *testing.T) {
	pinProblems(t, Problem{A: 7, B: 8}, Problem{A: 1, B: 1})
	s := startedState(t)
	s.TimeRemaining = 1

	_, s = mustApply(t, s, Command{Type: CmdTick})
	require.Equal(t, 1, s.ProblemIndex)

	// The answer was typed for round 0, which the timer already resolved.
	_, after, err := Apply(s, Command{Type: CmdSubmitAnswer, Text: "15", Round: 0})
	require.ErrorIs(t, err, ErrStaleRound)
	assert.Equal(t, s, after)
	assert.Equal(t, 0, after.Score)
}

func TestTimeoutDiscardsLateTypingAndEnter(t *testing.T) {
	pinProblems(t, Problem{A: 7, B: 8}, Problem{A: 10, B: 5})
	s := startedState(t)
	s.TimeRemaining = 1

	_, s = mustApply(t, s, Command{Type: CmdTick})
	require.Equal(t, 1, s.ProblemIndex)
	require.Equal(t, Problem{A: 10, B: 5}, s.Problem)

	// Keystrokes meant for round 0 arrive after the timer moved on.
	_, after, err := Apply(s, Command{Type: CmdTypeAnswer, Text: "15", Round: 0})
	require.ErrorIs(t, err, ErrStaleRound)
	assert.Equal(t, s, after)
	assert.Equal(t, "", after.AnswerText)

	_, after, err = Apply(after, Command{Type: CmdKeyDown, Key: "Enter", Round: 0})
	require.ErrorIs(t, err, ErrIgnoredKey)
	assert.Equal(t, FeedbackUnknown, after.Feedback)
	assert.False(t, after.Pending)

	// Text typed against round 1 cannot be submitted by an Enter tagged for round 0.
	_, s = mustApply(t, s, Command{Type: CmdTypeAnswer, Text: "15", Round: 1})
	_, after, err = Apply(s, Command{Type: CmdKeyDown, Key: "Enter", Round: 0})
	require.ErrorIs(t, err, ErrStaleRound)
	assert.Equal(t, s, after)

	events, s := mustApply(t, s, Command{Type: CmdKeyDown, Key: "Enter", Round: 1})
	assert.True(t, ContainsEvent(events, EvtAnswerCorrect))
	assert.Equal(t, 1, s.ProblemIndex)
}

func TestRestartGame_FromFinished(t *testing.T) {
	s := startedState(t)
	s.Phase = PhaseFinished
	s.Score = 6
	s.ProblemIndex = 10
	s.TimeRemaining = 0
	s.AnswerText = "42"

	_, s = mustApply(t, s, Command{Type: CmdRestartGame})
	assert.Equal(t, PhaseInProgress, s.Phase)
	assert.Equal(t, 0, s.Score)
	assert.Equal(t, 0, s.ProblemIndex)
	assert.Equal(t, 30, s.TimeRemaining)
	assert.Equal(t, "", s.AnswerText)
	assert.Equal(t, FeedbackUnknown, s.Feedback)
}

func TestRestartGame_DiscardsPendingResolution(t *testing.T) {
	pinProblems(t, Problem{A: 7, B: 8})
	s := startedState(t)
	_, s = mustApply(t, s, Command{Type: CmdSubmitAnswer, Text: "15", Round: 0})
	require.True(t, s.Pending)

	_, s = mustApply(t, s, Command{Type: CmdRestartGame})
	assert.False(t, s.Pending)
	assert.Equal(t, 0, s.Score)

	_, _, err := Apply(s, Command{Type: CmdResolveAnswer, Round: 0})
	assert.ErrorIs(t, err, ErrNothingPending)
}

func TestKeyDown(t *testing.T) {
	pinProblems(t, Problem{A: 7, B: 8})
	s := startedState(t)

	_, _, err := Apply(s, Command{Type: CmdKeyDown, Key: "Enter"})
	assert.ErrorIs(t, err, ErrIgnoredKey, "enter with empty input")

	_, s = mustApply(t, s, Command{Type: CmdTypeAnswer, Text: "15"})
	assert.Equal(t, "15", s.AnswerText)

	_, _, err = Apply(s, Command{Type: CmdKeyDown, Key: "a"})
	assert.ErrorIs(t, err, ErrIgnoredKey)

	events, s := mustApply(t, s, Command{Type: CmdKeyDown, Key: "Enter"})
	assert.True(t, ContainsEvent(events, EvtAnswerCorrect))
	assert.Equal(t, FeedbackCorrect, s.Feedback)
	assert.Equal(t, 0, s.Score, "credited on resolution")
	assert.True(t, s.Pending)
}

func TestApply_RejectsContractViolations(t *testing.T) {
	started := startedState(t)
	pending := started
	pending.Pending = true
	finished := started
	finished.Phase = PhaseFinished

	cases := []struct {
		name    string
		setup   State
		cmd     Command
		wantErr error
	}{
		{name: "start twice", setup: started, cmd: Command{Type: CmdStartGame}, wantErr: ErrWrongPhase},
		{name: "tick before start", setup: NewState(DefaultRules()), cmd: Command{Type: CmdTick}, wantErr: ErrWrongPhase},
		{name: "tick after finish", setup: finished, cmd: Command{Type: CmdTick}, wantErr: ErrWrongPhase},
		{name: "submit before start", setup: NewState(DefaultRules()), cmd: Command{Type: CmdSubmitAnswer, Text: "1"}, wantErr: ErrWrongPhase},
		{name: "submit empty", setup: started, cmd: Command{Type: CmdSubmitAnswer, Text: "  "}, wantErr: ErrEmptyAnswer},
		{name: "double submit", setup: pending, cmd: Command{Type: CmdSubmitAnswer, Text: "1"}, wantErr: ErrResolutionPending},
		{name: "tick while pending", setup: pending, cmd: Command{Type: CmdTick}, wantErr: ErrResolutionPending},
		{name: "typing while pending", setup: pending, cmd: Command{Type: CmdTypeAnswer, Text: "9"}, wantErr: ErrResolutionPending},
		{name: "typing for another round", setup: started, cmd: Command{Type: CmdTypeAnswer, Text: "9", Round: 1}, wantErr: ErrStaleRound},
		{name: "future round", setup: started, cmd: Command{Type: CmdSubmitAnswer, Text: "1", Round: 3}, wantErr: ErrStaleRound},
		{name: "resolve nothing", setup: started, cmd: Command{Type: CmdResolveAnswer}, wantErr: ErrNothingPending},
		{name: "resolve wrong round", setup: pending, cmd: Command{Type: CmdResolveAnswer, Round: 4}, wantErr: ErrStaleRound},
		{name: "unknown", setup: started, cmd: Command{Type: "Dance"}, wantErr: ErrUnsupportedCommand},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, after, err := Apply(tc.setup, tc.cmd)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, events)
			assert.Equal(t, tc.setup, after, "rejected commands leave state untouched")
		})
	}
}

func TestApply_InvariantsHoldUnderRandomInterleaving(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	s := NewState(DefaultRules())

	for i := 0; i < 20000; i++ {
		var cmd Command
		switch rng.IntN(8) {
		case 0:
			cmd = Command{Type: CmdStartGame}
		case 1, 2, 3:
			cmd = Command{Type: CmdTick}
		case 4:
			cmd = Command{Type: CmdSubmitAnswer, Text: strconv.Itoa(s.Problem.Sum() + rng.IntN(2)), Round: s.ProblemIndex - rng.IntN(2)}
		case 5:
			cmd = Command{Type: CmdResolveAnswer, Round: s.ProblemIndex}
		case 6:
			cmd = Command{Type: CmdKeyDown, Key: "Enter", Round: s.ProblemIndex - rng.IntN(2)}
		default:
			if rng.IntN(20) == 0 {
				cmd = Command{Type: CmdRestartGame}
			} else {
				cmd = Command{Type: CmdTypeAnswer, Text: "abc", Round: s.ProblemIndex}
			}
		}

		prevScore, prevPhase := s.Score, s.Phase
		_, s, _ = Apply(s, cmd)

		require.GreaterOrEqual(t, s.Score, 0)
		require.LessOrEqual(t, s.Score, s.ProblemIndex)
		require.LessOrEqual(t, s.ProblemIndex, 10)
		require.GreaterOrEqual(t, s.TimeRemaining, 0)
		require.LessOrEqual(t, s.TimeRemaining, 30)
		if cmd.Type != CmdRestartGame && cmd.Type != CmdStartGame && prevPhase == s.Phase {
			require.GreaterOrEqual(t, s.Score, prevScore)
		}
		if s.Phase == PhaseFinished {
			require.Equal(t, 10, s.ProblemIndex)
		}
	}
}

func TestReduce_ReplaysAppliedEvents(t *testing.T) {
	pinProblems(t, Problem{A: 7, B: 8}, Problem{A: 20, B: 22}, Problem{A: 5, B: 5})

	var log []Event
	s := NewState(DefaultRules())
	for _, cmd := range []Command{
		{Type: CmdStartGame},
		{Type: CmdTick},
		{Type: CmdTypeAnswer, Text: "15"},
		{Type: CmdKeyDown, Key: "Enter"},
		{Type: CmdResolveAnswer, Round: 0},
		{Type: CmdSubmitAnswer, Text: "41", Round: 1},
		{Type: CmdResolveAnswer, Round: 1},
		{Type: CmdTick},
		{Type: CmdTick},
	} {
		events, next := mustApply(t, s, cmd)
		log = append(log, events...)
		s = next
	}

	assert.Equal(t, s, Reduce(DefaultRules(), log))
	assert.Equal(t, 1, s.Score)
	assert.Equal(t, 2, s.ProblemIndex)
	assert.Equal(t, 28, s.TimeRemaining)
}

func TestVerdict(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{10, "Perfect score! Amazing!"},
		{9, "Great job!"},
		{8, "Great job!"},
		{7, "Good effort!"},
		{5, "Good effort!"},
		{4, "Keep practicing!"},
		{0, "Keep practicing!"},
	}

	for _, tc := range cases {
		t.Run(strconv.Itoa(tc.score), func(t *testing.T) {
			assert.Equal(t, tc.want, Verdict(tc.score, 10))
		})
	}
}

func TestUrgent(t *testing.T) {
	s := startedState(t)
	assert.False(t, Urgent(s))
	s.TimeRemaining = 9
	assert.True(t, Urgent(s))
	s.Phase = PhaseFinished
	assert.False(t, Urgent(s))
}

func TestRandomOperandStaysInRange(t *testing.T) {
	r := DefaultRules()
	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		p := drawProblem(r)
		require.GreaterOrEqual(t, p.A, 1)
		require.LessOrEqual(t, p.A, 100)
		require.GreaterOrEqual(t, p.B, 1)
		require.LessOrEqual(t, p.B, 100)
		seen[p.A] = true
	}
	assert.Greater(t, len(seen), 90, "operands should cover most of the range")

	assert.Equal(t, 4, randomOperand(Rules{MinOperand: 4, MaxOperand: 4}))
}
