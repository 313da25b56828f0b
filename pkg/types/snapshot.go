package types

// Snapshot is the read-only view of one game that the page renders.
// round is the problem index to echo back on submit.
type Snapshot struct {
	Phase         string `json:"phase"` // "not_started" | "in_progress" | "finished"
	ShowIntro     bool   `json:"show_intro"`
	OperandA      int    `json:"operand_a"`
	OperandB      int    `json:"operand_b"`
	Answer        string `json:"answer"`
	Score         int    `json:"score"`
	Round         int    `json:"round"`
	Problems      int    `json:"problems"`
	TimeRemaining int    `json:"time_remaining"`
	RoundSeconds  int    `json:"round_seconds"`
	Urgent        bool   `json:"urgent"`
	Feedback      string `json:"feedback"` // "unknown" | "correct" | "incorrect"
	Locked        bool   `json:"locked"`   // input disabled while feedback is shown
	Verdict       string `json:"verdict,omitempty"`
}
