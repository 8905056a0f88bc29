package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soocke/lipread-go/domain/history"
	"github.com/soocke/lipread-go/domain/pipeline"
	"github.com/soocke/lipread-go/domain/stage"
)

type fakePipeline struct {
	mu       sync.Mutex
	state    pipeline.State
	selected string
	stops    int
}

func (f *fakePipeline) State() pipeline.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}
func (f *fakePipeline) LastAccepted() string   { return "Bom dia!" }
func (f *fakePipeline) Stats() pipeline.Stats  { return pipeline.Stats{Ticks: 3, Published: 1} }
func (f *fakePipeline) SessionID() string      { return "sess-1" }
func (f *fakePipeline) SelectedRegion() string { f.mu.Lock(); defer f.mu.Unlock(); return f.selected }
func (f *fakePipeline) SelectRegion(id string) { f.mu.Lock(); f.selected = id; f.mu.Unlock() }
func (f *fakePipeline) Stop() {
	f.mu.Lock()
	f.stops++
	f.state = pipeline.Idle
	f.mu.Unlock()
}

type fakeHistory struct{ entries []history.Entry }

func (f fakeHistory) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func newTestServer(t *testing.T, start func() error) (*Server, *fakePipeline) {
	t.Helper()
	p := &fakePipeline{state: pipeline.Sampling}
	s := New(Options{
		Pipeline: p,
		Start:    start,
		History:  fakeHistory{entries: []history.Entry{{Original: "a"}, {Original: "b"}}},
	})
	return s, p
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestServer_HealthzAndStatus(t *testing.T) {
	s, _ := newTestServer(t, nil)
	if w := do(t, s.Handler(), http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w := do(t, s.Handler(), http.MethodGet, "/status", "")
	var st statusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.State != "Sampling" || st.LastAccepted != "Bom dia!" || st.Stats.Ticks != 3 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestServer_StartMapsAlreadyRunning(t *testing.T) {
	s, _ := newTestServer(t, func() error { return pipeline.ErrAlreadyRunning })
	if w := do(t, s.Handler(), http.MethodPost, "/start", ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	s2, _ := newTestServer(t, func() error { return errors.New("boom") })
	if w := do(t, s2.Handler(), http.MethodPost, "/start", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	s3, _ := newTestServer(t, func() error { return nil })
	if w := do(t, s3.Handler(), http.MethodPost, "/start", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestServer_StopAndSelect(t *testing.T) {
	s, p := newTestServer(t, nil)
	if w := do(t, s.Handler(), http.MethodPost, "/select", `{"region_id":"face_1"}`); w.Code != http.StatusOK {
		t.Fatalf("select: %d", w.Code)
	}
	if p.SelectedRegion() != "face_1" {
		t.Fatalf("region not selected")
	}
	do(t, s.Handler(), http.MethodPost, "/stop", "")
	do(t, s.Handler(), http.MethodPost, "/stop", "")
	if p.stops != 2 || p.State() != pipeline.Idle {
		t.Fatalf("stop not forwarded")
	}
}

func TestServer_History(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := do(t, s.Handler(), http.MethodGet, "/history?limit=1", "")
	var entries []history.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Original != "a" {
		t.Fatalf("unexpected history %+v", entries)
	}
	if w := do(t, s.Handler(), http.MethodGet, "/history?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	noHist := New(Options{Pipeline: &fakePipeline{}})
	if w := do(t, noHist.Handler(), http.MethodGet, "/history", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestServer_WebsocketBroadcast(t *testing.T) {
	s, _ := newTestServer(t, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	defer s.Hub().Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	onResult, onStatus := s.Sinks()
	onResult(pipeline.Event{Kind: pipeline.EventResult, Original: "Bom dia!", Translated: "Good morning!", Confidence: 0.9})
	onStatus(pipeline.Status{Kind: pipeline.StatusError, State: pipeline.Sampling, Stage: stage.Recognition, Err: errors.New("x")})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second Message
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatal(err)
	}
	if first.Type != "result" || first.Translated != "Good morning!" {
		t.Fatalf("unexpected first message %+v", first)
	}
	if second.Type != "status" || second.Status != "error" || second.Stage != "recognition" {
		t.Fatalf("unexpected second message %+v", second)
	}
}
