package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/range.trigger/internal/benewake"
	"github.com/banshee-data/range.trigger/internal/db"
	"github.com/banshee-data/range.trigger/internal/monitoring"
	"github.com/banshee-data/range.trigger/internal/sensing"
	"github.com/banshee-data/range.trigger/internal/sensorstate"
	"github.com/banshee-data/range.trigger/internal/trigger"
)

type fixedStatus trigger.Status

func (f fixedStatus) Status() trigger.Status { return trigger.Status(f) }

type fixedDecoder benewake.DecoderStats

func (f fixedDecoder) Stats() benewake.DecoderStats { return benewake.DecoderStats(f) }

type fixedSensing sensing.Stats

func (f fixedSensing) Stats() sensing.Stats { return sensing.Stats(f) }

type fakeJournal struct {
	events    []db.TriggerEvent
	err       error
	lastLimit int
}

func (j *fakeJournal) RecentTriggers(limit int) ([]db.TriggerEvent, error) {
	j.lastLimit = limit
	if j.err != nil {
		return nil, j.err
	}
	if limit < len(j.events) {
		return j.events[:limit], nil
	}
	return j.events, nil
}

var at = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newTestServer(journal *fakeJournal) (*Server, *sensorstate.Store) {
	store := sensorstate.NewStore(func() time.Time { return at })
	src := Sources{
		State:   store,
		Loop:    fixedStatus{State: "armed", Triggers: 3, Cycles: 120},
		Decoder: fixedDecoder{Frames: 900, ChecksumErrors: 2},
		Sensing: fixedSensing{Polls: 1000, Averaged: 880, NoData: 120},
	}
	if journal != nil {
		src.Journal = journal
	}
	return NewServer(src), store
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestShowState(t *testing.T) {
	s, store := newTestServer(nil)
	mux := s.ServeMux()

	w := get(t, mux, "/api/state")
	assert.Equal(t, http.StatusNoContent, w.Code, "never populated")
	assert.Empty(t, w.Body.String())

	store.Update(48.5, 1234, 37.125)
	w = get(t, mux, "/api/state")
	require.Equal(t, http.StatusOK, w.Code)

	var snap sensorstate.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	want := sensorstate.Snapshot{DistanceCM: 48.5, Strength: 1234, TemperatureC: 37.125, UpdatedAt: at, Seq: 1}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestShowController(t *testing.T) {
	s, _ := newTestServer(nil)
	w := get(t, s.ServeMux(), "/api/controller")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"armed","triggers":3,"in_flight":0,"cycles":120}`, w.Body.String())
}

func TestShowDecoder(t *testing.T) {
	s, _ := newTestServer(nil)
	w := get(t, s.ServeMux(), "/api/decoder")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Decoder benewake.DecoderStats `json:"decoder"`
		Sensing sensing.Stats         `json:"sensing"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(900), resp.Decoder.Frames)
	assert.Equal(t, uint64(2), resp.Decoder.ChecksumErrors)
	assert.Equal(t, uint64(120), resp.Sensing.NoData)
}

func sampleEvents() []db.TriggerEvent {
	pitch, yaw := 1777, 1500
	return []db.TriggerEvent{
		{ID: "c", TriggeredAt: at.Add(2 * time.Second), DistanceCM: 70, BaselineCM: 64, DeltaCM: 6},
		{ID: "b", TriggeredAt: at.Add(time.Second), DistanceCM: 57, BaselineCM: 52, DeltaCM: 5, PitchUS: &pitch, YawUS: &yaw},
		{ID: "a", TriggeredAt: at, DistanceCM: 52, BaselineCM: 50, DeltaCM: 2},
	}
}

func TestListTriggers(t *testing.T) {
	j := &fakeJournal{events: sampleEvents()}
	s, _ := newTestServer(j)
	mux := s.ServeMux()

	w := get(t, mux, "/api/triggers")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, db.DefaultRecentLimit, j.lastLimit)

	w = get(t, mux, "/api/triggers?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	var got []db.TriggerEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	require.NotNil(t, got[1].PitchUS)
	assert.Equal(t, 1777, *got[1].PitchUS)
}

func TestListTriggers_Errors(t *testing.T) {
	tests := []struct {
		name    string
		journal *fakeJournal
		target  string
		status  int
	}{
		{"journal disabled", nil, "/api/triggers", http.StatusServiceUnavailable},
		{"bad limit", &fakeJournal{}, "/api/triggers?limit=abc", http.StatusBadRequest},
		{"zero limit", &fakeJournal{}, "/api/triggers?limit=0", http.StatusBadRequest},
		{"huge limit", &fakeJournal{}, "/api/triggers?limit=5000", http.StatusBadRequest},
		{"db error", &fakeJournal{err: errors.New("disk I/O error")}, "/api/triggers", http.StatusInternalServerError},
		{"chart with journal disabled", nil, "/api/triggers/chart", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(tt.journal)
			w := get(t, s.ServeMux(), tt.target)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestTriggerChart(t *testing.T) {
	s, _ := newTestServer(&fakeJournal{events: sampleEvents()})
	w := get(t, s.ServeMux(), "/api/triggers/chart")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "Recent triggers")
	assert.Contains(t, body, "3 events")
	assert.Contains(t, body, "echarts")
}

func TestShowVersion(t *testing.T) {
	s, _ := newTestServer(nil)
	w := get(t, s.ServeMux(), "/api/version")
	require.Equal(t, http.StatusOK, w.Code)

	var v map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, "dev", v["version"])
	assert.Contains(t, v, "git_sha")
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(nil)
	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/state", strings.NewReader("{}")))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, http.MethodGet, w.Header().Get("Allow"))
}

func TestLoggingMiddleware(t *testing.T) {
	var lines []string
	prev := monitoring.Logf
	monitoring.Logf = func(format string, v ...interface{}) {
		lines = append(lines, format)
	}
	t.Cleanup(func() { monitoring.Logf = prev })

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := get(t, h, "/api/anything")

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Len(t, lines, 1)
	assert.Equal(t, colorBoldRed+"418"+colorReset, statusCodeColor(418))
	assert.Equal(t, colorBoldGreen+"200"+colorReset, statusCodeColor(200))
	assert.Equal(t, colorYellow+"304"+colorReset, statusCodeColor(304))
	assert.Equal(t, "101", statusCodeColor(101))
}
