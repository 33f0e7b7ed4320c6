package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/florianilch/proxy-console/internal/session"
	"github.com/florianilch/proxy-console/internal/tokensource"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// StateResponse is the body of GET /session/state.
type StateResponse struct {
	State string `json:"state"`
}

// TerminatedEvent is the data of a "terminated" event on the events stream.
type TerminatedEvent struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !isJSON(r) {
		writeJSONError(ctx, w, "expected application/json", http.StatusUnsupportedMediaType)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSONError(ctx, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSONError(ctx, w, "username and password are required", http.StatusBadRequest)
		return
	}

	if err := g.session.Login(ctx, req.Username, req.Password); err != nil {
		if errors.Is(err, tokensource.ErrInvalidCredentials) {
			writeJSONError(ctx, w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		slog.ErrorContext(ctx, "login failed", "error", err)
		writeJSONError(ctx, w, "login failed", http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := g.session.Logout(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "logout failed", "error", err)
		writeJSONError(r.Context(), w, "logout failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := g.session.State(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "reading session state failed", "error", err)
		writeJSONError(r.Context(), w, "session state unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(r.Context(), w, StateResponse{State: state.String()}, http.StatusOK)
}

// handleEvents streams session events until the client disconnects. The
// current state is sent first; every termination follows as a "terminated" event.
func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sse, err := NewSSEWriter(w)
	if err != nil {
		writeJSONError(ctx, w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events := make(chan session.TerminationEvent, 4)
	cancel := g.session.Subscribe(func(e session.TerminationEvent) {
		select {
		case events <- e:
		default:
			slog.WarnContext(ctx, "events subscriber too slow, dropping termination event")
		}
	})
	defer cancel()

	state, err := g.session.State(ctx)
	if err != nil {
		slog.WarnContext(ctx, "reading session state failed", "error", err)
	}
	if err := sse.WriteEvent("state", StateResponse{State: state.String()}); err != nil {
		return
	}

	heartbeat := time.NewTicker(g.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			reason := ""
			if e.Cause != nil {
				reason = e.Cause.Error()
			}
			if err := sse.WriteEvent("terminated", TerminatedEvent{Reason: reason, At: e.At}); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		}
	}
}
