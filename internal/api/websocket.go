package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sahayak-analytics/backend/internal/models"
)

// WebSocket message types for the report progress protocol
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeProgress  = "progress"
	MsgTypeComplete  = "complete"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WSMessage is the envelope for all WebSocket frames
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSProgressPayload carries the session snapshot pushed to clients
type WSProgressPayload struct {
	SessionID string               `json:"sessionId"`
	Status    models.SessionStatus `json:"status"`
	Progress  float64              `json:"progress"`
	Errors    []models.ReportError `json:"errors,omitempty"`
	Bundle    string               `json:"bundle,omitempty"`
}

// WSErrorPayload describes a protocol-level error
type WSErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler pushes report generation progress to connected clients
type WebSocketHandler struct {
	reportMgr ReportManager
	upgrader  websocket.Upgrader
	readLimit int64
}

// NewWebSocketHandler creates a new WebSocket progress handler.
// maxMessageKB bounds incoming client frames.
func NewWebSocketHandler(reportMgr ReportManager, maxMessageKB int) *WebSocketHandler {
	if maxMessageKB <= 0 {
		maxMessageKB = 64
	}
	return &WebSocketHandler{
		reportMgr: reportMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  8 * 1024,
			WriteBufferSize: 8 * 1024,
		},
		readLimit: int64(maxMessageKB) * 1024,
	}
}

// HandleReportProgress upgrades the connection and streams progress updates
// for one session until it completes or the client disconnects.
func (wsh *WebSocketHandler) HandleReportProgress(c echo.Context) error {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		return NewValidationError("sessionId")
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeConnected,
		Timestamp: time.Now().UnixMilli(),
	})

	if _, ok := wsh.reportMgr.GetSession(sessionID); !ok {
		wsh.sendError(ws, "session not found: "+sessionID, "NOT_FOUND")
		return nil
	}

	ws.SetReadLimit(wsh.readLimit)

	// Read loop detects disconnects and forwards ping requests. The
	// connection allows only one concurrent writer, so pongs are written
	// by the select loop below, never from here.
	done := make(chan struct{})
	pings := make(chan struct{}, 1)
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == MsgTypePing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-ticker.C:
			sess, ok := wsh.reportMgr.GetSession(sessionID)
			if !ok {
				wsh.sendError(ws, "session not found: "+sessionID, "NOT_FOUND")
				return nil
			}

			wsh.reportMgr.TouchSession(sessionID)

			msgType := MsgTypeProgress
			if sess.Status == models.SessionStatusComplete {
				msgType = MsgTypeComplete
			} else if sess.Status == models.SessionStatusError {
				msgType = MsgTypeError
			}
			wsh.sendProgress(ws, msgType, sess)

			if sess.Status == models.SessionStatusComplete ||
				sess.Status == models.SessionStatusError {
				return nil
			}

		case <-pings:
			wsh.sendMessage(ws, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})

		case <-timeout.C:
			wsh.sendError(ws, "progress stream timeout", "TIMEOUT")
			return nil

		case <-done:
			return nil
		}
	}
}

func (wsh *WebSocketHandler) sendProgress(ws *websocket.Conn, msgType string, sess *models.ReportSession) {
	payload, _ := json.Marshal(WSProgressPayload{
		SessionID: sess.ID,
		Status:    sess.Status,
		Progress:  sess.Progress,
		Errors:    sess.Errors,
		Bundle:    sess.BundleName,
	})
	wsh.sendMessage(ws, WSMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (wsh *WebSocketHandler) sendError(ws *websocket.Conn, message, code string) {
	payload, _ := json.Marshal(WSErrorPayload{Message: message, Code: code})
	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeError,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (wsh *WebSocketHandler) sendMessage(ws *websocket.Conn, msg WSMessage) {
	if err := ws.WriteJSON(msg); err != nil {
		ws.Close()
	}
}
