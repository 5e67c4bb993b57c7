package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/config"
	"github.com/ducminhle1904/whale-tracker/internal/monitoring"
	"github.com/ducminhle1904/whale-tracker/internal/orchestrator"
	"github.com/ducminhle1904/whale-tracker/internal/position"
	"github.com/ducminhle1904/whale-tracker/internal/whale"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

type fakeEngine struct {
	mu       sync.Mutex
	snapshot orchestrator.Snapshot
	commands []orchestrator.Command
	closed   []string
}

func (f *fakeEngine) Snapshot() orchestrator.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeEngine) Submit(cmd orchestrator.Command) bool {
	switch cmd {
	case orchestrator.CommandPause, orchestrator.CommandResume, orchestrator.CommandRefresh:
	default:
		return false
	}
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	return true
}

func (f *fakeEngine) ClosePosition(_ context.Context, symbol string) (position.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.snapshot.OpenPositions {
		if p.Symbol == symbol {
			f.closed = append(f.closed, symbol)
			p.Status = position.StatusClosed
			p.CloseReason = position.ReasonManual
			return p, nil
		}
	}
	return position.Position{}, position.ErrPositionNotFound
}

func newTestServer(t *testing.T) (*Server, *fakeEngine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := &fakeEngine{snapshot: orchestrator.Snapshot{
		Cycle:      7,
		RunState:   orchestrator.StateRunning,
		RiskStatus: "ACTIVE",
		OpenPositions: []position.Position{
			{ID: "p-1", Symbol: "AAPL", Side: position.SideLong, EntryPrice: 100, Quantity: 50, Status: position.StatusOpen},
		},
		Alerts: []whale.Alert{
			{Symbol: "TSLA", Kind: whale.KindVolumeSpike, Severity: whale.SeverityHigh, Timestamp: now},
			{Symbol: "AAPL", Kind: whale.KindWhalePresence, Severity: whale.SeverityMedium, Timestamp: now},
			{Symbol: "AAPL", Kind: whale.KindVolumeSpike, Severity: whale.SeverityLow, Timestamp: now},
		},
	}}

	health := monitoring.NewHealthChecker(time.Hour)
	health.RecordCycle(7, time.Now(), true)
	metrics := monitoring.NewMetrics()
	metrics.ObserveCycle(time.Second)

	cfg := config.APIConfig{Enabled: true, Addr: ":0"}
	return NewServer(cfg, engine, nil, health, metrics.Handler(), nil), engine
}

func do(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestSnapshotEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(s, http.MethodGet, "/api/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, float64(7), doc["cycle"])
	assert.Equal(t, "RUNNING", doc["run_state"])
	assert.Equal(t, "ACTIVE", doc["risk_status"])
	for _, key := range []string{"portfolio", "risk", "open_positions", "recent_closed", "alerts", "last_cycle"} {
		assert.Contains(t, doc, key)
	}
}

func TestAlertsEndpoint_Filters(t *testing.T) {
	s, _ := newTestServer(t)

	var body struct {
		Success bool          `json:"success"`
		Data    []whale.Alert `json:"data"`
	}
	rec := do(s, http.MethodGet, "/api/alerts?symbol=aapl&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, whale.KindWhalePresence, body.Data[0].Kind)

	rec = do(s, http.MethodGet, "/api/alerts?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestControlEndpoint(t *testing.T) {
	s, engine := newTestServer(t)

	for _, cmd := range []string{"pause", "RESUME", "refresh"} {
		rec := do(s, http.MethodPost, "/api/control/"+cmd)
		assert.Equal(t, http.StatusAccepted, rec.Code, cmd)
	}
	assert.Equal(t, []orchestrator.Command{
		orchestrator.CommandPause, orchestrator.CommandResume, orchestrator.CommandRefresh,
	}, engine.commands)

	rec := do(s, http.MethodPost, "/api/control/liquidate")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown command")

	rec = do(s, http.MethodGet, "/api/control/pause")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClosePositionEndpoint(t *testing.T) {
	s, engine := newTestServer(t)

	rec := do(s, http.MethodPost, "/api/positions/aapl/close")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AAPL"}, engine.closed)
	assert.Contains(t, rec.Body.String(), `"close_reason":"manual"`)

	rec = do(s, http.MethodPost, "/api/positions/MSFT/close")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = do(s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "whale_tracker_cycles_total 1"))
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/snapshot", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocket_ReceivesCurrentAndPublishedSnapshots(t *testing.T) {
	s, engine := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Hub().Run(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	readCycle := func() float64 {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg struct {
			Type string                 `json:"type"`
			Data map[string]interface{} `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "snapshot", msg.Type)
		return msg.Data["cycle"].(float64)
	}
	assert.Equal(t, float64(7), readCycle())

	require.Eventually(t, func() bool { return s.Hub().ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	next := engine.Snapshot()
	next.Cycle = 8
	s.Hub().Publish(next)
	assert.Equal(t, float64(8), readCycle())
}
