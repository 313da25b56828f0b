package engine

import (
	"errors"
	"strconv"
	"strings"
)

var ErrWrongPhase = errors.New("wrong phase")
var ErrEmptyAnswer = errors.New("empty answer")
var ErrResolutionPending = errors.New("resolution pending")
var ErrNothingPending = errors.New("no resolution pending")
var ErrStaleRound = errors.New("stale round")
var ErrIgnoredKey = errors.New("ignored key")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
)

// Feedback is the verdict shown on the just-submitted answer.
type Feedback string

const (
	FeedbackUnknown   Feedback = "unknown"
	FeedbackCorrect   Feedback = "correct"
	FeedbackIncorrect Feedback = "incorrect"
)

type State struct {
	Phase         Phase
	Problem       Problem
	AnswerText    string
	Score         int
	ProblemIndex  int
	TimeRemaining int
	Feedback      Feedback
	Pending       bool // a submission is waiting for its deferred resolution
	IntroVisible  bool
	Rules         Rules
}

type Rules struct {
	Problems     int
	RoundSeconds int
	MinOperand   int
	MaxOperand   int
}

type CommandType string

const (
	CmdStartGame     CommandType = "StartGame"
	CmdTick          CommandType = "Tick"
	CmdSubmitAnswer  CommandType = "SubmitAnswer"
	CmdResolveAnswer CommandType = "ResolveAnswer"
	CmdTypeAnswer    CommandType = "TypeAnswer"
	CmdKeyDown       CommandType = "KeyDown"
	CmdRestartGame   CommandType = "RestartGame"
)

/*
	CmdStartGame     -> EvtGameStarted -> EvtProblemDealt
	CmdRestartGame   -> EvtGameStarted -> EvtProblemDealt
	CmdTick          -> EvtTimerTicked
	                 or EvtTimerExpired -> EvtProblemDealt | EvtGameCompleted
	CmdSubmitAnswer  -> EvtAnswerCorrect | EvtAnswerIncorrect
	CmdKeyDown       -> same as CmdSubmitAnswer when the key is Enter
	CmdResolveAnswer -> EvtProblemResolved -> EvtProblemDealt | EvtGameCompleted
	CmdTypeAnswer    -> EvtAnswerTyped

	Submission and resolution are split so the caller can hold the feedback
	on screen before the next problem appears.
*/

type Command struct {
	Type  CommandType
	Text  string
	Key   string
	Round int // problem index the command was issued against
}

type EventType string

const (
	EvtGameStarted     EventType = "GameStarted"
	EvtProblemDealt    EventType = "ProblemDealt"
	EvtTimerTicked     EventType = "TimerTicked"
	EvtTimerExpired    EventType = "TimerExpired"
	EvtAnswerTyped     EventType = "AnswerTyped"
	EvtAnswerCorrect   EventType = "AnswerCorrect"
	EvtAnswerIncorrect EventType = "AnswerIncorrect"
	EvtProblemResolved EventType = "ProblemResolved" // a correct answer is credited here, not on submit
	EvtGameCompleted   EventType = "GameCompleted"
)

type Event struct {
	Type    EventType
	Round   int
	Problem Problem
	Text    string
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	var events []Event

	switch cmd.Type {
	case CmdStartGame:
		if s.Phase != PhaseNotStarted {
			return nil, s, ErrWrongPhase
		}
		events = deal(s.Rules, 0)

	case CmdRestartGame:
		events = deal(s.Rules, 0)

	case CmdTick:
		if s.Phase != PhaseInProgress {
			return nil, s, ErrWrongPhase
		}
		if s.Pending {
			return nil, s, ErrResolutionPending
		}

		switch {
		case s.ProblemIndex >= s.Rules.Problems:
			events = []Event{{Type: EvtGameCompleted}}
		case s.TimeRemaining > 1:
			events = []Event{{Type: EvtTimerTicked, Round: s.ProblemIndex}}
		default:
			// Countdown hits zero: the problem is resolved with no credit.
			events = append([]Event{{Type: EvtTimerExpired, Round: s.ProblemIndex}}, next(s)...)
		}

	case CmdTypeAnswer:
		if s.Phase != PhaseInProgress {
			return nil, s, ErrWrongPhase
		}
		if s.Pending {
			return nil, s, ErrResolutionPending
		}
		if cmd.Round != s.ProblemIndex {
			return nil, s, ErrStaleRound
		}
		events = []Event{{Type: EvtAnswerTyped, Round: s.ProblemIndex, Text: cmd.Text}}

	case CmdKeyDown:
		if cmd.Key != "Enter" || strings.TrimSpace(s.AnswerText) == "" {
			return nil, s, ErrIgnoredKey
		}
		return Apply(s, Command{Type: CmdSubmitAnswer, Text: s.AnswerText, Round: cmd.Round})

	case CmdSubmitAnswer:
		if s.Phase != PhaseInProgress {
			return nil, s, ErrWrongPhase
		}
		if s.Pending {
			return nil, s, ErrResolutionPending
		}
		if cmd.Round != s.ProblemIndex {
			return nil, s, ErrStaleRound
		}
		if strings.TrimSpace(cmd.Text) == "" {
			return nil, s, ErrEmptyAnswer
		}

		evt := Event{Type: EvtAnswerIncorrect, Round: s.ProblemIndex, Text: cmd.Text}
		if isCorrect(s.Problem, cmd.Text) {
			evt.Type = EvtAnswerCorrect
		}
		events = []Event{evt}

	case CmdResolveAnswer:
		if !s.Pending {
			return nil, s, ErrNothingPending
		}
		if cmd.Round != s.ProblemIndex {
			return nil, s, ErrStaleRound
		}
		events = append([]Event{{Type: EvtProblemResolved, Round: s.ProblemIndex}}, next(s)...)

	default:
		return nil, s, ErrUnsupportedCommand
	}

	newState := s
	for _, event := range events {
		newState = evolve(newState, event)
	}
	return events, newState, nil
}

func Reduce(rules Rules, events []Event) State {
	s := NewState(rules)
	for _, event := range events {
		s = evolve(s, event)
	}
	return s
}

func evolve(s State, event Event) State {
	switch event.Type {
	case EvtGameStarted:
		s.Phase = PhaseInProgress
		s.IntroVisible = false
		s.Score = 0
		s.ProblemIndex = 0
		s.AnswerText = ""
		s.Feedback = FeedbackUnknown
		s.Pending = false
		s.TimeRemaining = s.Rules.RoundSeconds
	case EvtProblemDealt:
		s.Problem = event.Problem
		s.TimeRemaining = s.Rules.RoundSeconds
	case EvtTimerTicked:
		s.TimeRemaining--
	case EvtTimerExpired:
		s.TimeRemaining = 0
		s.ProblemIndex++
		s.AnswerText = ""
		s.Feedback = FeedbackUnknown
	case EvtAnswerTyped:
		s.AnswerText = event.Text
	case EvtAnswerCorrect:
		s.Feedback = FeedbackCorrect
		s.Pending = true
	case EvtAnswerIncorrect:
		s.Feedback = FeedbackIncorrect
		s.Pending = true
	case EvtProblemResolved:
		// Credit lands together with the index so Score never runs ahead of it.
		if s.Feedback == FeedbackCorrect {
			s.Score++
		}
		s.ProblemIndex++
		s.AnswerText = ""
		s.Feedback = FeedbackUnknown
		s.Pending = false
	case EvtGameCompleted:
		s.Phase = PhaseFinished
		s.Pending = false
	}
	return s
}

// deal starts a fresh game at the given round.
func deal(r Rules, round int) []Event {
	return []Event{
		{Type: EvtGameStarted},
		{Type: EvtProblemDealt, Round: round, Problem: drawProblem(r)},
	}
}

// next follows a resolution: either another problem or the end of the game.
func next(s State) []Event {
	round := s.ProblemIndex + 1
	if round >= s.Rules.Problems {
		return []Event{{Type: EvtGameCompleted, Round: round}}
	}
	return []Event{{Type: EvtProblemDealt, Round: round, Problem: drawProblem(s.Rules)}}
}

// isCorrect never fails: text that is not a base-10 integer is just wrong.
func isCorrect(p Problem, text string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return false
	}
	return n == p.Sum()
}
