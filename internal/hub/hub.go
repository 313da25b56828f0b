package hub

import (
	"context"
	"time"

	"github.com/DoyleJ11/math-challenge-backend/internal/engine"
	"github.com/DoyleJ11/math-challenge-backend/internal/session"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	Code  string
	Reply chan *session.Session
}

type GetSession struct {
	Code  string
	Reply chan *session.Session
}

type EnsureSession struct {
	Code  string
	Reply chan *session.Session
}

type RemoveSession struct {
	Code string
}

type ShutdownHub struct {
	Done chan struct{} // closed once every session has stopped; optional
}

type Count struct {
	Reply chan int
}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (EnsureSession) isHubMsg() {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}
func (Count) isHubMsg()         {}

// Config is applied to every session the hub creates.
type Config struct {
	Rules         engine.Rules
	Clock         clockwork.Clock
	FeedbackDelay time.Duration
	Logger        *zap.Logger
}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	cfg      Config
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Rules == (engine.Rules{}) {
		cfg.Rules = engine.DefaultRules()
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		cfg:      cfg,
		log:      cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Lookup is a convenience round trip for GetSession.
func (h *Hub) Lookup(ctx context.Context, code string) *session.Session {
	reply := make(chan *session.Session, 1)
	return h.call(ctx, GetSession{Code: code, Reply: reply}, reply)
}

// Ensure returns the session for code, creating it if needed.
// It returns nil once ctx ends or the hub has stopped.
func (h *Hub) Ensure(ctx context.Context, code string) *session.Session {
	reply := make(chan *session.Session, 1)
	return h.call(ctx, EnsureSession{Code: code, Reply: reply}, reply)
}

func (h *Hub) call(ctx context.Context, msg HubMsg, reply <-chan *session.Session) *session.Session {
	select {
	case h.inbox <- msg:
	case <-ctx.Done():
		return nil
	case <-h.ctx.Done():
		return nil
	}
	select {
	case s := <-reply:
		return s
	case <-ctx.Done():
		return nil
	case <-h.ctx.Done():
		return nil
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown(nil)
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				if s := h.sessions[msg.Code]; s != nil {
					msg.Reply <- s
					break
				}
				msg.Reply <- h.create(msg.Code)

			case GetSession:
				msg.Reply <- h.sessions[msg.Code] // May be nil

			case EnsureSession:
				if s := h.sessions[msg.Code]; s != nil {
					msg.Reply <- s
					break
				}
				msg.Reply <- h.create(msg.Code)

			case RemoveSession:
				if s := h.sessions[msg.Code]; s != nil {
					s.Send(h.ctx, session.Shutdown{})
					delete(h.sessions, msg.Code)
					h.log.Info("session removed", zap.String("code", msg.Code))
				}

			case Count:
				msg.Reply <- len(h.sessions)

			case ShutdownHub:
				h.shutdown(msg.Done)
				return
			}
		}
	}
}

func (h *Hub) create(code string) *session.Session {
	log := h.log.With(zap.String("session", code))
	s := session.NewSession(h.ctx, engine.NewState(h.cfg.Rules), session.Options{
		Clock:         h.cfg.Clock,
		FeedbackDelay: h.cfg.FeedbackDelay,
		Logger:        log,
	})
	h.sessions[code] = s
	log.Info("session created")
	return s
}

func (h *Hub) shutdown(done chan struct{}) {
	stopped := make([]*session.Session, 0, len(h.sessions))
	for code, s := range h.sessions {
		s.Send(context.Background(), session.Shutdown{})
		stopped = append(stopped, s)
		delete(h.sessions, code)
	}
	h.cancel()
	for _, s := range stopped {
		<-s.Done()
	}
	if done != nil {
		close(done)
	}
}
