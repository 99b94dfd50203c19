package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Pranav-shellkode/voice-agent-learning/internal/protocol"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/session"
)

// handleWS upgrades the connection and bridges it to the turn pipeline. A
// session is created on connect unless the client resumes one by ID; either
// way the session ends when the socket does.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	active := s.sessionForRequest(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if active == nil {
		active = s.sessions.Create()
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	defer func() {
		_, _ = s.sessions.End(active.ID)
		s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
		s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 256)
	outbound := make(chan any, 256)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		_ = s.orchestrator.RunConnection(ctx, active, inbound, outbound)
		cancel()
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				data, err := protocol.Encode(msg)
				if err != nil {
					s.metrics.SessionEvents.WithLabelValues("ws_encode_error").Inc()
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					s.metrics.SessionEvents.WithLabelValues("ws_write_error").Inc()
					cancel()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(8 << 20)

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			errMsg := protocol.ErrorMessage{Type: protocol.TypeError, Message: err.Error()}
			select {
			case outbound <- errMsg:
			default:
				// Keep websocket writes single-threaded; drop if the
				// outbound queue is saturated.
				s.metrics.SessionEvents.WithLabelValues("ws_outbound_drop").Inc()
			}
			continue
		}

		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}

		if _, isClose := parsed.(protocol.Close); isClose {
			break
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
}

func (s *Server) sessionForRequest(r *http.Request) *session.Session {
	id := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if id == "" {
		return nil
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil
	}
	return sess
}
