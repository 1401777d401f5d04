package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"quickrev/internal/app"
	"quickrev/internal/auth"
	"quickrev/internal/domain"
	"quickrev/internal/infra/memory"

	"github.com/gorilla/websocket"
)

func TestWebSocketQuizFlow(t *testing.T) {
	server := newTestServer(t, memory.NewStaticRecordLoader(sampleFiles()))
	conn := dial(t, server, "fileId=file-1&userId=u1")
	defer conn.Close()

	msg := readNext(conn, t, "state")
	if msg.Payload["phase"] != string(app.PhaseModeSelection) {
		t.Fatalf("expected mode selection, got %v", msg.Payload["phase"])
	}

	send(t, conn, "selectMode", map[string]any{"mode": "quiz"})
	readUntil(conn, t, func(m message) bool {
		return m.Type == "state" && m.Payload["phase"] == string(app.PhaseInSession)
	})

	send(t, conn, "answer", map[string]any{"value": "Rome"})
	readNext(conn, t, "state")
	send(t, conn, "next", nil)
	readNext(conn, t, "state")

	send(t, conn, "answer", map[string]any{"value": "True"})
	readNext(conn, t, "state")
	send(t, conn, "next", nil)
	readNext(conn, t, "state")

	send(t, conn, "next", nil)
	complete := readNext(conn, t, "complete")
	if complete.Payload["score"] != float64(1) || complete.Payload["total"] != float64(3) {
		t.Fatalf("expected score 1 of 3, got %v", complete.Payload)
	}
	final := readNext(conn, t, "state")
	if final.Payload["phase"] != string(app.PhaseComplete) {
		t.Fatalf("expected complete phase, got %v", final.Payload["phase"])
	}
}

func TestWebSocketNormalCheck(t *testing.T) {
	server := newTestServer(t, memory.NewStaticRecordLoader(sampleFiles()))
	conn := dial(t, server, "fileId=file-1&userId=u1")
	defer conn.Close()

	readNext(conn, t, "state")
	send(t, conn, "selectMode", map[string]any{"mode": "normal"})
	readUntil(conn, t, func(m message) bool {
		return m.Type == "state" && m.Payload["phase"] == string(app.PhaseInSession)
	})

	send(t, conn, "check", nil)
	cue := readNext(conn, t, "cue")
	if cue.Payload["outcome"] != "wrong" {
		t.Fatalf("expected wrong cue, got %v", cue.Payload)
	}
	state := readNext(conn, t, "state")
	card := state.Payload["card"].(map[string]any)
	if card["inputLocked"] != true || card["correctAnswer"] != "Paris" {
		t.Fatalf("expected locked card with revealed answer, got %v", card)
	}

	send(t, conn, "answer", map[string]any{"value": "Paris"})
	locked := readNext(conn, t, "error")
	if !strings.Contains(locked.Payload["message"].(string), "locked") {
		t.Fatalf("expected locked error, got %v", locked.Payload)
	}
}

func TestWebSocketRetryAfterFormatError(t *testing.T) {
	loader := &flakyLoader{RecordLoader: memory.NewStaticRecordLoader(sampleFiles()), failures: 1}
	server := newTestServer(t, loader)
	conn := dial(t, server, "fileId=file-1&userId=u1")
	defer conn.Close()

	failed := readNext(conn, t, "error")
	if failed.Payload["kind"] != "format" || failed.Payload["retryable"] != true {
		t.Fatalf("expected retryable format error, got %v", failed.Payload)
	}

	send(t, conn, "retry", nil)
	state := readNext(conn, t, "state")
	if state.Payload["total"] != float64(3) {
		t.Fatalf("expected 3 cards after retry, got %v", state.Payload["total"])
	}
}

func TestWebSocketUnknownFile(t *testing.T) {
	server := newTestServer(t, memory.NewStaticRecordLoader(sampleFiles()))
	conn := dial(t, server, "fileId=nope&userId=u1")
	defer conn.Close()

	failed := readNext(conn, t, "error")
	if failed.Payload["kind"] != "not_found" || failed.Payload["retryable"] != false {
		t.Fatalf("expected fatal not found, got %v", failed.Payload)
	}
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	server := newTestServer(t, memory.NewStaticRecordLoader(sampleFiles()))

	u := "ws" + server.URL[len("http"):] + "/ws?fileId=file-1"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail without identity")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
}

func TestRESTCards(t *testing.T) {
	server := newTestServer(t, memory.NewStaticRecordLoader(sampleFiles()))

	resp, err := http.Get(server.URL + "/cards?fileId=file-1&userId=u1")
	if err != nil {
		t.Fatalf("get cards: %v", err)
	}
	defer resp.Body.Close()
	var records []domain.QuestionRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || len(records) != 3 {
		t.Fatalf("expected 3 records, got %d (%d)", len(records), resp.StatusCode)
	}

	cases := map[string]int{
		"/cards?fileId=nope&userId=u1":  http.StatusNotFound,
		"/cards?fileId=empty&userId=u1": http.StatusUnprocessableEntity,
		"/cards?fileId=file-1":          http.StatusUnauthorized,
		"/sessions?id=nope&userId=u1":   http.StatusNotFound,
	}
	for path, want := range cases {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("%s: expected %d, got %d", path, want, resp.StatusCode)
		}
	}
}

func TestRESTFiles(t *testing.T) {
	server := newTestServer(t, memory.NewStaticRecordLoader(sampleFiles()))

	resp, err := http.Get(server.URL + "/files?userId=u1")
	if err != nil {
		t.Fatalf("get files: %v", err)
	}
	var files []domain.FileSummary
	err = json.NewDecoder(resp.Body).Decode(&files)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || len(files) != 2 || files[0].FileID != "empty" || files[1].FileID != "file-1" {
		t.Fatalf("unexpected listing %d %+v", resp.StatusCode, files)
	}

	del := func(query string) int {
		req, err := http.NewRequest(http.MethodDelete, server.URL+"/files?"+query, nil)
		if err != nil {
			t.Fatalf("build delete: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	if got := del("fileId=file-1&userId=u1"); got != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", got)
	}
	if got := del("fileId=file-1&userId=u1"); got != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", got)
	}
	if got := del("fileId=empty"); got != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", got)
	}

	resp, err = http.Get(server.URL + "/cards?fileId=file-1&userId=u1")
	if err != nil {
		t.Fatalf("get cards: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected deleted file to be gone, got %d", resp.StatusCode)
	}
}

func TestRESTFilesWithoutCatalog(t *testing.T) {
	server := newTestServer(t, &flakyLoader{RecordLoader: memory.NewStaticRecordLoader(sampleFiles())})

	resp, err := http.Get(server.URL + "/files?userId=u1")
	if err != nil {
		t.Fatalf("get files: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.StatusCode)
	}
}

type message struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func newTestServer(t *testing.T, loader memory.RecordLoader) *httptest.Server {
	t.Helper()
	store := memory.NewSessionStore()
	records := memory.NewRecordRepository(loader, time.Minute)
	service := app.NewStudyService(store, records)
	identity := auth.QueryProvider{}
	var catalog app.FileCatalog
	if c, ok := loader.(app.FileCatalog); ok {
		catalog = c
	}

	mux := http.NewServeMux()
	NewRESTHandler(service, app.NewLibrary(catalog, records), identity).Register(mux)
	mux.HandleFunc("/ws", NewWSHandler(service, identity, time.Millisecond).ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) message {
	t.Helper()
	var msg message
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg
}

func readUntil(conn *websocket.Conn, t *testing.T, done func(message) bool) message {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := readNext(conn, t, "")
		if done(msg) {
			return msg
		}
	}
	t.Fatalf("expected message not received")
	return message{}
}

type flakyLoader struct {
	memory.RecordLoader
	mu       sync.Mutex
	failures int
}

func (l *flakyLoader) LoadRecords(ctx context.Context, fileID string) ([]domain.QuestionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failures > 0 {
		l.failures--
		return nil, domain.ErrFormat
	}
	return l.RecordLoader.LoadRecords(ctx, fileID)
}

func sampleFiles() map[string][]domain.QuestionRecord {
	return map[string][]domain.QuestionRecord{
		"file-1": {
			{Question: "Capital of France?", Type: domain.TypeMultipleChoice, Choices: []string{"Paris", "Rome"}, CorrectAnswer: domain.Single("Paris")},
			{Question: "The sun is a star.", Type: domain.TypeTrueOrFalse, CorrectAnswer: domain.Single("True")},
			{Question: "Powerhouse of the cell", Type: domain.TypeIdentification, CorrectAnswer: domain.Single("Mitochondria")},
		},
		"empty": {},
	}
}
