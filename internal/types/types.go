package types

import (
	"errors"

	"github.com/DoyleJ11/math-challenge-backend/internal/engine"
	wire "github.com/DoyleJ11/math-challenge-backend/pkg/types"
)

func ToSnapshot(s engine.State) wire.Snapshot {
	snap := wire.Snapshot{
		Phase:         string(s.Phase),
		ShowIntro:     s.IntroVisible,
		OperandA:      s.Problem.A,
		OperandB:      s.Problem.B,
		Answer:        s.AnswerText,
		Score:         s.Score,
		Round:         s.ProblemIndex,
		Problems:      s.Rules.Problems,
		TimeRemaining: s.TimeRemaining,
		RoundSeconds:  s.Rules.RoundSeconds,
		Urgent:        engine.Urgent(s),
		Feedback:      string(s.Feedback),
		Locked:        s.Pending,
	}
	if s.Phase == engine.PhaseFinished {
		snap.Verdict = engine.Verdict(s.Score, s.Rules.Problems)
	}
	return snap
}

func StateMessage(version int, s engine.State) wire.ServerMessage {
	snap := ToSnapshot(s)
	return wire.ServerMessage{Type: wire.MsgStateSnapshot, Version: version, State: &snap}
}

func ErrorMessage(msg string) wire.ServerMessage {
	return wire.ServerMessage{Type: wire.MsgError, Error: msg}
}

var ErrUnknownType = errors.New("unknown type")
var ErrEmptySubmit = errors.New("empty submit")

// ToCommand maps a client intent onto an engine command.
func ToCommand(m wire.ClientMessage) (engine.Command, error) {
	switch m.Type {
	case wire.MsgStart:
		return engine.Command{Type: engine.CmdStartGame}, nil
	case wire.MsgType:
		return engine.Command{Type: engine.CmdTypeAnswer, Text: m.Text, Round: m.Round}, nil
	case wire.MsgSubmit:
		if m.Text == "" {
			return engine.Command{}, ErrEmptySubmit
		}
		return engine.Command{Type: engine.CmdSubmitAnswer, Text: m.Text, Round: m.Round}, nil
	case wire.MsgKeyDown:
		return engine.Command{Type: engine.CmdKeyDown, Key: m.Key, Round: m.Round}, nil
	case wire.MsgRestart:
		return engine.Command{Type: engine.CmdRestartGame}, nil
	default:
		return engine.Command{}, ErrUnknownType
	}
}
