package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"time"

	"github.com/DoyleJ11/math-challenge-backend/internal/hub"
	"github.com/DoyleJ11/math-challenge-backend/internal/session"
	"github.com/DoyleJ11/math-challenge-backend/internal/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxCodeAttempts = 8

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateSession(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for attempt := 0; code == "" && attempt < maxCodeAttempts; attempt++ {
			c, err := GenerateCode()
			if err != nil {
				log.Error("generate session code", zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, "failed to generate code")
				return
			}
			if h.Lookup(r.Context(), c) == nil {
				code = c
				break
			}
			log.Warn("collision on code, regenerating", zap.String("code", c))
		}
		if code == "" {
			writeJSONError(w, http.StatusServiceUnavailable, "no free session code")
			return
		}

		if h.Ensure(r.Context(), code) == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "server shutting down")
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

func GetSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := h.Lookup(r.Context(), chi.URLParam(r, "code"))
		if s == nil {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}

		reply := make(chan session.View, 1)
		if !s.Send(r.Context(), session.GetState{Reply: reply}) {
			writeJSONError(w, http.StatusGone, "session closed")
			return
		}
		select {
		case view := <-reply:
			writeJSON(w, http.StatusOK, types.StateMessage(view.Version, view.State))
		case <-s.Done():
			writeJSONError(w, http.StatusGone, "session closed")
		case <-time.After(2 * time.Second):
			writeJSONError(w, http.StatusGatewayTimeout, "session busy")
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorMessage(msg))
}
