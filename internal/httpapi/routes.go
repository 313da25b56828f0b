package httpapi

import (
	"net/http"
	"time"

	"github.com/DoyleJ11/math-challenge-backend/internal/hub"
	"github.com/DoyleJ11/math-challenge-backend/internal/web"
	"github.com/DoyleJ11/math-challenge-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Options struct {
	Logger         *zap.Logger
	OriginPatterns []string
}

func SetupRoutes(h *hub.Hub, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimw.Recoverer)

	// Public routes
	r.Get("/", web.Index)
	r.Get("/healthz", Healthz)
	r.Post("/sessions", CreateSession(h, log))
	r.Get("/sessions/{code}", GetSession(h))
	r.Get("/ws", ws.Handler(h, ws.Options{OriginPatterns: opts.OriginPatterns, Logger: log}))
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())))
		})
	}
}
