// websocket_test.go - Tests for the WebSocket progress stream
package api

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sahayak-analytics/backend/internal/analytics"
	"github.com/sahayak-analytics/backend/internal/models"
)

// wsTestManager is a concurrency-safe ReportManager stub. The handler
// reads sessions from its ticker loop while the test mutates them, so
// every access is mutex-guarded and GetSession returns a copy.
type wsTestManager struct {
	mu   sync.Mutex
	sess models.ReportSession
}

func newWSTestManager(id string) *wsTestManager {
	return &wsTestManager{
		sess: models.ReportSession{
			ID:       id,
			Status:   models.SessionStatusAnalyzing,
			Progress: 10,
		},
	}
}

func (m *wsTestManager) GetSession(id string) (*models.ReportSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id != m.sess.ID {
		return nil, false
	}
	copied := m.sess
	return &copied, true
}

func (m *wsTestManager) TouchSession(id string) bool { return id == m.sess.ID }

func (m *wsTestManager) complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess.Status = models.SessionStatusComplete
	m.sess.Progress = 100
	m.sess.BundleName = "sahayak_reports.zip"
}

func (m *wsTestManager) StartReport(string) (*models.ReportSession, error) { return nil, nil }
func (m *wsTestManager) StartDemoReport() (*models.ReportSession, error)  { return nil, nil }
func (m *wsTestManager) StudentReports(string) ([]*models.StudentReport, bool) {
	return nil, false
}
func (m *wsTestManager) StudentReportsMsgpack(string) ([]byte, error) { return nil, nil }
func (m *wsTestManager) ClassInsights(string) ([]analytics.Insight, []string, bool) {
	return nil, nil, false
}
func (m *wsTestManager) BundlePath(string) (string, string, bool) { return "", "", false }

func startWSServer(t *testing.T, mgr ReportManager) (*httptest.Server, string) {
	t.Helper()
	e := echo.New()
	wsh := NewWebSocketHandler(mgr, 64)
	e.GET("/api/ws/reports/:sessionId", wsh.HandleReportProgress)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

// A client hammering pings while the server streams progress must get
// well-formed frames back: progress writes and pong writes share one
// connection, which permits only a single concurrent writer.
func TestWebSocketPingsDuringProgressStream(t *testing.T) {
	mgr := newWSTestManager("sess-ws")
	_, wsURL := startWSServer(t, mgr)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/api/ws/reports/sess-ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// Complete the session while pings are still in flight.
	timer := time.AfterFunc(300*time.Millisecond, mgr.complete)
	defer timer.Stop()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := conn.WriteJSON(WSMessage{Type: MsgTypePing, Timestamp: time.Now().UnixMilli()}); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	var gotConnected, gotProgress, gotPong, gotComplete bool
	deadline := time.Now().Add(10 * time.Second)
	for !gotComplete {
		conn.SetReadDeadline(deadline)
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read failed before completion: %v", err)
		}
		switch msg.Type {
		case MsgTypeConnected:
			gotConnected = true
		case MsgTypeProgress:
			gotProgress = true
		case MsgTypePong:
			gotPong = true
		case MsgTypeComplete:
			gotComplete = true
		case MsgTypeError:
			t.Fatalf("unexpected error frame: %s", msg.Payload)
		default:
			t.Fatalf("unexpected frame type %q", msg.Type)
		}
	}
	close(stop)
	wg.Wait()

	if !gotConnected {
		t.Error("expected a connected frame")
	}
	if !gotProgress {
		t.Error("expected at least one progress frame")
	}
	if !gotPong {
		t.Error("expected at least one pong frame")
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	mgr := newWSTestManager("sess-ws")
	_, wsURL := startWSServer(t, mgr)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/api/ws/reports/missing", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var connected WSMessage
	if err := conn.ReadJSON(&connected); err != nil {
		t.Fatalf("read connected frame: %v", err)
	}
	if connected.Type != MsgTypeConnected {
		t.Fatalf("expected connected frame, got %q", connected.Type)
	}

	var errMsg WSMessage
	if err := conn.ReadJSON(&errMsg); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if errMsg.Type != MsgTypeError {
		t.Errorf("expected error frame for unknown session, got %q", errMsg.Type)
	}
}
