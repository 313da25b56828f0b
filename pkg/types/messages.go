package types

// Client -> Server
// start:   {}
// type:    text: string, round: number  (mirrors the answer input as the player types)
// submit:  text: string, round: number
// keydown: key: string, round: number   (only "Enter" with a non-empty answer submits)
// restart: {}
//
// round echoes state.round; input tagged with a round that has already ended is dropped.
//
// Server -> Client
// StateSnapshot: version: number, state: Snapshot
// Error:         error: string

const (
	MsgStart   = "start"
	MsgType    = "type"
	MsgSubmit  = "submit"
	MsgKeyDown = "keydown"
	MsgRestart = "restart"

	MsgStateSnapshot = "StateSnapshot"
	MsgError         = "Error"
)

type ClientMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Key   string `json:"key,omitempty"`
	Round int    `json:"round,omitempty"`
}

type ServerMessage struct {
	Type    string    `json:"type"` // "StateSnapshot" | "Error"
	Version int       `json:"version,omitempty"`
	State   *Snapshot `json:"state,omitempty"`
	Error   string    `json:"error,omitempty"`
}
