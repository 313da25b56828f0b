package engine

import "math/rand/v2"

// Problem is one addition exercise.
type Problem struct {
	A int
	B int
}

func (p Problem) Sum() int { return p.A + p.B }

// drawProblem picks both operands independently and uniformly from
// [MinOperand, MaxOperand]. Tests replace it to pin operands.
var drawProblem = func(r Rules) Problem {
	return Problem{A: randomOperand(r), B: randomOperand(r)}
}

func randomOperand(r Rules) int {
	if r.MaxOperand <= r.MinOperand {
		return r.MinOperand
	}
	return r.MinOperand + rand.IntN(r.MaxOperand-r.MinOperand+1)
}
