package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/MrWong99/gridvoice/internal/observe"
	"github.com/MrWong99/gridvoice/internal/session"
	"github.com/MrWong99/gridvoice/internal/speech"
	"github.com/MrWong99/gridvoice/internal/vocab"
	"github.com/MrWong99/gridvoice/pkg/grid"
)

// Frame types exchanged over the WebSocket. Text frames carry JSON; binary
// frames carry raw Opus packets for server-side transcription.
const (
	frameUtterance = "utterance" // client → server: recognised text
	frameInterim   = "interim"   // server → client: partial transcript
	frameResult    = "result"    // server → client: outcome of one utterance
	frameError     = "error"     // server → client: non-fatal error
)

// clientFrame is a JSON message from the client.
type clientFrame struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// serverFrame is a JSON message to the client.
type serverFrame struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	Recognized string      `json:"recognized,omitempty"`
	Action     string      `json:"action,omitempty"`
	Feedback   string      `json:"feedback,omitempty"`
	State      *grid.State `json:"state,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// wsConn serialises writes to one WebSocket connection. The read loop and
// the transcript pump both produce frames.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) writeJSON(ctx context.Context, f serverFrame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.Write(ctx, websocket.MessageText, data)
}

// handleWS upgrades the connection and runs the session loop. The session is
// selected by the ?session= query parameter; reconnecting with the same ID
// resumes the same grid.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "missing session query parameter", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sess, err := s.cfg.Sessions.Acquire(ctx, sessionID)
	if err != nil {
		observe.Logger(ctx).Error("acquire session", "session", sessionID, "error", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	// The last connection to let go evicts the cached session; its grid
	// survives in the snapshot store.
	defer s.cfg.Sessions.Release(sessionID)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(ctx).Warn("websocket accept", "session", sessionID, "error", err)
		return
	}
	wc := &wsConn{conn: conn}

	s.metrics.ActiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveSessions.Add(ctx, -1)

	log := observe.Logger(ctx).With("session", sessionID)
	log.Info("client connected")
	defer log.Info("client disconnected")

	// Greet the client with its current grid so reconnects render
	// immediately.
	state := sess.State()
	if err := wc.writeJSON(ctx, serverFrame{Type: frameResult, State: &state}); err != nil {
		conn.Close(websocket.StatusInternalError, "write failed")
		return
	}

	var src *speech.Source
	if s.cfg.STT != nil {
		src = speech.NewSource(s.cfg.STT, speech.Config{
			Language: s.cfg.Speech.Language,
			Hints:    vocab.Words,
		})
		if err := src.Start(ctx); err != nil {
			log.Error("start speech source", "error", err)
			wc.writeJSON(ctx, serverFrame{Type: frameError, Error: "speech unavailable"})
			src = nil
		} else {
			defer src.Close()
			go s.pumpTranscripts(ctx, wc, sess, src)
		}
	}

	s.readLoop(ctx, wc, sess, src, log)
	conn.Close(websocket.StatusNormalClosure, "bye")
}

// readLoop consumes frames until the client disconnects or ctx ends.
func (s *Server) readLoop(ctx context.Context, wc *wsConn, sess *session.Session, src *speech.Source, log *slog.Logger) {
	for {
		typ, data, err := wc.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway ||
				errors.Is(err, context.Canceled) {
				return
			}
			log.Warn("websocket read", "error", err)
			return
		}

		switch typ {
		case websocket.MessageText:
			var f clientFrame
			if err := json.Unmarshal(data, &f); err != nil {
				wc.writeJSON(ctx, serverFrame{Type: frameError, Error: "malformed frame"})
				continue
			}
			switch f.Type {
			case frameUtterance:
				s.dispatch(ctx, wc, sess, f.Text)
			case frameInterim:
				// Display-only text from a client-side recognizer;
				// never interpreted.
			default:
				wc.writeJSON(ctx, serverFrame{Type: frameError, Error: "unknown frame type " + f.Type})
			}

		case websocket.MessageBinary:
			if src == nil {
				wc.writeJSON(ctx, serverFrame{Type: frameError, Error: "audio path not configured"})
				continue
			}
			if err := src.WriteOpus(data); err != nil {
				transient := speech.Transient(err)
				s.metrics.RecordSpeechError(ctx, transient)
				if !transient {
					log.Warn("audio frame", "error", err)
					wc.writeJSON(ctx, serverFrame{Type: frameError, Error: "audio error: " + err.Error()})
				}
			}
		}
	}
}

// pumpTranscripts forwards provider output to the client: partials as
// interim frames, finals through the command pipeline. Transient provider
// errors (no speech, aborted utterances) are counted only; anything else is
// also shown to the client.
func (s *Server) pumpTranscripts(ctx context.Context, wc *wsConn, sess *session.Session, src *speech.Source) {
	log := observe.Logger(ctx).With("session", sess.ID())
	partials := src.Partials()
	finals := src.Finals()
	errs := src.Errs()
	for partials != nil || finals != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-partials:
			if !ok {
				partials = nil
				continue
			}
			wc.writeJSON(ctx, serverFrame{Type: frameInterim, Text: t.Text})
		case t, ok := <-finals:
			if !ok {
				finals = nil
				continue
			}
			if t.Latency > 0 {
				s.metrics.STTDuration.Record(ctx, t.Latency.Seconds())
			}
			s.dispatch(ctx, wc, sess, t.Text)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			transient := speech.Transient(err)
			s.metrics.RecordSpeechError(ctx, transient)
			if !transient {
				log.Warn("speech source", "error", err)
				wc.writeJSON(ctx, serverFrame{Type: frameError, Error: "speech error: " + err.Error()})
			}
		}
	}
}

// dispatch runs one utterance through the session and reports the result.
func (s *Server) dispatch(ctx context.Context, wc *wsConn, sess *session.Session, text string) {
	res, err := sess.HandleUtterance(ctx, text)
	if err != nil {
		// Snapshot persistence failed; the in-memory grid is still
		// authoritative, so report the result and log the store trouble.
		observe.Logger(ctx).Error("persist snapshot", "session", sess.ID(), "error", err)
	}
	wc.writeJSON(ctx, serverFrame{
		Type:       frameResult,
		Recognized: res.Recognized,
		Action:     res.Action.Kind.String(),
		Feedback:   res.Feedback,
		State:      &res.State,
	})
}
