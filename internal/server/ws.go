package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type      string `json:"type"`       // "start", "answer", or "end"
	SessionID string `json:"session_id"` // empty for "start"
	Domain    string `json:"domain,omitempty"`
	Content   string `json:"content,omitempty"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type      string `json:"type"` // "question", "done", or "error"
	SessionID string `json:"session_id"`
	Question  any    `json:"question,omitempty"`
	Expertise any    `json:"expertise,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleWebSocket runs an interactive questioning session over one
// connection. Each "start" opens a session and returns its first question;
// each "answer" feeds the pipeline and returns the follow-up.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWSError(conn, "", "invalid message format")
			continue
		}

		switch req.Type {
		case "start":
			s.handleWSStart(conn, r, req)
		case "answer":
			s.handleWSAnswer(conn, r, req)
		case "end":
			s.handleWSEnd(conn, r, req)
		default:
			s.sendWSError(conn, req.SessionID, "unknown message type: "+req.Type)
		}
	}
}

func (s *Server) handleWSStart(conn *websocket.Conn, r *http.Request, req wsRequest) {
	ctx := r.Context()

	sess, err := s.engine.StartSession(ctx, req.Domain)
	if err != nil {
		s.sendWSError(conn, "", "failed to start session: "+err.Error())
		return
	}

	q, err := s.engine.NextQuestion(ctx, sess.ID)
	if err != nil {
		s.sendWSError(conn, sess.ID, "failed to generate question: "+err.Error())
		return
	}
	if q == nil {
		s.sendWS(conn, wsResponse{Type: "done", SessionID: sess.ID})
		return
	}
	s.sendWS(conn, wsResponse{Type: "question", SessionID: sess.ID, Question: q})
}

func (s *Server) handleWSAnswer(conn *websocket.Conn, r *http.Request, req wsRequest) {
	if req.SessionID == "" {
		s.sendWSError(conn, "", "session_id is required")
		return
	}
	if req.Content == "" {
		s.sendWSError(conn, req.SessionID, "content is required")
		return
	}

	res, err := s.engine.SubmitAnswer(r.Context(), req.SessionID, req.Content)
	if err != nil {
		s.sendWSError(conn, req.SessionID, "processing failed: "+err.Error())
		return
	}

	out := wsResponse{SessionID: req.SessionID}
	if res.Question == nil {
		out.Type = "done"
	} else {
		out.Type = "question"
		out.Question = res.Question
	}
	if res.Expertise != nil {
		out.Expertise = res.Expertise
	}
	s.sendWS(conn, out)
}

func (s *Server) handleWSEnd(conn *websocket.Conn, r *http.Request, req wsRequest) {
	if err := s.engine.EndSession(r.Context(), req.SessionID); err != nil {
		s.sendWSError(conn, req.SessionID, "failed to end session: "+err.Error())
		return
	}
	s.sendWS(conn, wsResponse{Type: "done", SessionID: req.SessionID})
}

func (s *Server) sendWS(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}

func (s *Server) sendWSError(conn *websocket.Conn, sessionID, msg string) {
	s.sendWS(conn, wsResponse{Type: "error", SessionID: sessionID, Error: msg})
}
