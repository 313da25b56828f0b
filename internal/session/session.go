package session

import (
	"context"
	"time"

	"github.com/DoyleJ11/math-challenge-backend/internal/engine"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	TickInterval         = time.Second
	DefaultFeedbackDelay = 500 * time.Millisecond
)

type Msg interface{ isSessionMsg() }

type FromClient struct {
	Cmd engine.Command
}

func (FromClient) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type Snapshot struct {
	Version int
	State   engine.State
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
	Ticking    bool // countdown ticker armed
	Resolving  bool // feedback timer armed
}

type Options struct {
	Clock         clockwork.Clock
	FeedbackDelay time.Duration
	Logger        *zap.Logger
}

// Session is the single writer for one player's game state. Commands, ticks
// and deferred resolutions are all handled on its loop goroutine.
type Session struct {
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot

	clock         clockwork.Clock
	feedbackDelay time.Duration
	ticker        clockwork.Ticker // nil unless the countdown is running
	resolve       clockwork.Timer  // nil unless a submission is on display
	resolveRound  int

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSession(parent context.Context, initial engine.State, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)

	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.FeedbackDelay <= 0 {
		opts.FeedbackDelay = DefaultFeedbackDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Session{
		inbox:         make(chan Msg, 64),
		state:         initial,
		clients:       make(map[string]chan Snapshot),
		clock:         opts.Clock,
		feedbackDelay: opts.FeedbackDelay,
		log:           opts.Logger,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	// A session may be created mid-game (tests, replays).
	if initial.Phase == engine.PhaseInProgress && !initial.Pending {
		s.armTicker()
	}

	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case <-tickerChan(s.ticker):
			s.apply(engine.Command{Type: engine.CmdTick})

		case <-timerChan(s.resolve):
			s.resolve = nil
			s.apply(engine.Command{Type: engine.CmdResolveAnswer, Round: s.resolveRound})

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// A rejoin under the same id replaces the old outbox.
				if old, ok := s.clients[msg.ClientID]; ok && old != msg.Outbox {
					close(old)
				}
				delete(s.clients, msg.ClientID)

				// Register client + send current snapshot immediately
				select {
				case msg.Outbox <- Snapshot{Version: s.version, State: s.state}:
					s.clients[msg.ClientID] = msg.Outbox
				default:
					s.log.Warn("dropping slow client on join", zap.String("client_id", msg.ClientID))
					close(msg.Outbox)
				}

			case Leave:
				delete(s.clients, msg.ClientID)

			case FromClient:
				s.apply(msg.Cmd)

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					State:      s.state,
					Ticking:    s.ticker != nil,
					Resolving:  s.resolve != nil,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// apply runs one command through the engine. Rejected commands are contract
// violations from the presentation layer and leave everything untouched.
func (s *Session) apply(cmd engine.Command) {
	events, newState, err := engine.Apply(s.state, cmd)
	if err != nil {
		s.log.Debug("command ignored",
			zap.String("command", string(cmd.Type)),
			zap.Int("round", cmd.Round),
			zap.String("phase", string(s.state.Phase)),
			zap.Error(err))
		return
	}

	s.state = newState
	s.version++
	s.syncTimers(events)

	if engine.ContainsEvent(events, engine.EvtGameCompleted) {
		s.log.Info("game completed",
			zap.Int("score", s.state.Score),
			zap.Int("problems", s.state.Rules.Problems))
	}

	s.broadcast(Snapshot{Version: s.version, State: s.state})
}

// syncTimers makes the armed timers match the state the events produced.
func (s *Session) syncTimers(events []engine.Event) {
	if engine.ContainsEvent(events, engine.EvtGameStarted) {
		s.disarmResolve()
	}

	for _, event := range events {
		switch event.Type {
		case engine.EvtProblemDealt:
			// Fresh problem, fresh second boundary.
			s.armTicker()
		case engine.EvtAnswerCorrect, engine.EvtAnswerIncorrect:
			s.disarmTicker()
			s.armResolve(event.Round)
		}
	}

	if s.state.Phase != engine.PhaseInProgress {
		s.disarmTicker()
		s.disarmResolve()
	}
}

func (s *Session) armTicker() {
	s.disarmTicker()
	s.ticker = s.clock.NewTicker(TickInterval)
}

func (s *Session) disarmTicker() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	select {
	case <-s.ticker.Chan():
	default:
	}
	s.ticker = nil
}

func (s *Session) armResolve(round int) {
	s.disarmResolve()
	s.resolve = s.clock.NewTimer(s.feedbackDelay)
	s.resolveRound = round
}

func (s *Session) disarmResolve() {
	if s.resolve == nil {
		return
	}
	stopAndDrainTimer(s.resolve)
	s.resolve = nil
}

func (s *Session) shutdown() {
	s.disarmTicker()
	s.disarmResolve()
	for id, ch := range s.clients {
		close(ch) // Tell client no more snapshots
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			s.log.Warn("dropping slow client", zap.String("client_id", id))
			close(ch)
			delete(s.clients, id)
		}
	}
}

// Inbox exposes the inbox so tests or the WS layer can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Send delivers msg unless the session has stopped or ctx ends first.
func (s *Session) Send(ctx context.Context, msg Msg) bool {
	select {
	case s.inbox <- msg:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Done is closed once the loop has exited and every outbox is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// A nil channel blocks forever, which keeps a disarmed timer out of the select.
func tickerChan(t clockwork.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.Chan()
}

func timerChan(t clockwork.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.Chan()
}
