package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"voicedine-service/internal/events"
	"voicedine-service/internal/models"
	"voicedine-service/internal/service/audio"
	"voicedine-service/internal/service/stt"
)

// 100 Hz * 1 channel * 2 bytes * 1 second = 200-byte flush windows.
func testConfig() audio.Config {
	return audio.Config{
		SampleRate:     100,
		Channels:       1,
		SampleWidth:    2,
		WindowSeconds:  1,
		MinCommitBytes: 50,
		Language:       "en",
		CloseGrace:     2 * time.Second,
		STTTimeout:     time.Second,
	}
}

type scriptedTranscriber struct {
	mu      sync.Mutex
	calls   int
	results []*stt.Result
}

func (s *scriptedTranscriber) Name() string { return "scripted" }

func (s *scriptedTranscriber) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.results[s.calls%len(s.results)]
	s.calls++
	return r, nil
}

func dialTest(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("write text frame: %v", err)
	}
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("expected text frame, got %v", typ)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
}

func TestTranscribeRoundTrip(t *testing.T) {
	tr := &scriptedTranscriber{results: []*stt.Result{{
		Text: "reserve a table please",
		Words: []stt.Word{
			{Text: "reserve", Speaker: 0},
			{Text: "a", Speaker: 0},
			{Text: "table", Speaker: 0},
			{Text: "please", Speaker: 0},
		},
	}}}
	pub := events.New(&events.Config{Enabled: false, TopicTranscripts: "t", TopicRequirements: "r"})
	srv := httptest.NewServer(NewHandler(testConfig(), tr, pub))
	defer srv.Close()

	conn := dialTest(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	sendJSON(t, conn, models.ControlMessage{Type: models.ControlConfig, SampleRate: 100})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageBinary, make([]byte, 200)); err != nil {
		t.Fatalf("write audio frame: %v", err)
	}

	var msg models.TranscriptMessage
	readJSON(t, conn, &msg)
	if msg.Type != models.MessageTranscript {
		t.Errorf("expected type transcript, got %q", msg.Type)
	}
	if msg.Text != "reserve a table please" {
		t.Errorf("unexpected text %q", msg.Text)
	}
	if msg.SpeakerID != 0 || !msg.IsFinal {
		t.Errorf("unexpected transcript fields: %+v", msg)
	}
}

func TestAudioWithoutConfigTranscribes(t *testing.T) {
	tr := &scriptedTranscriber{results: []*stt.Result{{
		Text:  "no config needed",
		Words: []stt.Word{{Text: "no", Speaker: 0}, {Text: "config", Speaker: 0}, {Text: "needed", Speaker: 0}},
	}}}
	pub := events.New(&events.Config{Enabled: false, TopicTranscripts: "t", TopicRequirements: "r"})
	srv := httptest.NewServer(NewHandler(testConfig(), tr, pub))
	defer srv.Close()

	conn := dialTest(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// No config message: the first frame streams at the default rate.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageBinary, make([]byte, 200)); err != nil {
		t.Fatalf("write audio frame: %v", err)
	}

	var msg models.TranscriptMessage
	readJSON(t, conn, &msg)
	if msg.Text != "no config needed" {
		t.Errorf("unexpected transcript: %+v", msg)
	}
}

func TestClientCloseDrainsBufferedAudio(t *testing.T) {
	tr := &scriptedTranscriber{results: []*stt.Result{{
		Text:  "au revoir",
		Words: []stt.Word{{Text: "au", Speaker: 0}, {Text: "revoir", Speaker: 0}},
	}}}
	pub := events.New(&events.Config{Enabled: false, TopicTranscripts: "t", TopicRequirements: "r"})
	srv := httptest.NewServer(NewHandler(testConfig(), tr, pub))
	defer srv.Close()

	conn := dialTest(t, srv)

	sendJSON(t, conn, models.ControlMessage{Type: models.ControlConfig})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Below the window threshold; only the close-triggered flush sees it.
	if err := conn.Write(ctx, websocket.MessageBinary, make([]byte, 120)); err != nil {
		t.Fatalf("write audio frame: %v", err)
	}
	conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(3 * time.Second)
	for {
		tr.mu.Lock()
		calls := tr.calls
		tr.mu.Unlock()
		if calls == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 1 provider call after close, got %d", calls)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCommitFlushesBeforeWindow(t *testing.T) {
	tr := &scriptedTranscriber{results: []*stt.Result{{
		Text:  "bonjour",
		Words: []stt.Word{{Text: "bonjour", Speaker: 1}},
	}}}
	pub := events.New(&events.Config{Enabled: false, TopicTranscripts: "t", TopicRequirements: "r"})
	srv := httptest.NewServer(NewHandler(testConfig(), tr, pub))
	defer srv.Close()

	conn := dialTest(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	sendJSON(t, conn, models.ControlMessage{Type: models.ControlConfig})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Below the window threshold but above the commit minimum.
	if err := conn.Write(ctx, websocket.MessageBinary, make([]byte, 120)); err != nil {
		t.Fatalf("write audio frame: %v", err)
	}
	sendJSON(t, conn, models.ControlMessage{Type: models.ControlCommit})

	var msg models.TranscriptMessage
	readJSON(t, conn, &msg)
	if msg.Text != "bonjour" || msg.SpeakerID != 1 {
		t.Errorf("unexpected transcript: %+v", msg)
	}
}

func TestNilTranscriberRejectsSession(t *testing.T) {
	pub := events.New(&events.Config{Enabled: false, TopicTranscripts: "t", TopicRequirements: "r"})
	srv := httptest.NewServer(NewHandler(testConfig(), nil, pub))
	defer srv.Close()

	conn := dialTest(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var msg models.ErrorMessage
	readJSON(t, conn, &msg)
	if msg.Type != models.MessageError {
		t.Errorf("expected type error, got %q", msg.Type)
	}
	if msg.Message == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestMalformedControlIgnored(t *testing.T) {
	tr := &scriptedTranscriber{results: []*stt.Result{{
		Text:  "ok",
		Words: []stt.Word{{Text: "ok", Speaker: 0}},
	}}}
	pub := events.New(&events.Config{Enabled: false, TopicTranscripts: "t", TopicRequirements: "r"})
	srv := httptest.NewServer(NewHandler(testConfig(), tr, pub))
	defer srv.Close()

	conn := dialTest(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Garbage text frame must not kill the connection.
	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write garbage frame: %v", err)
	}

	sendJSON(t, conn, models.ControlMessage{Type: models.ControlConfig})
	if err := conn.Write(ctx, websocket.MessageBinary, make([]byte, 200)); err != nil {
		t.Fatalf("write audio frame: %v", err)
	}

	var msg models.TranscriptMessage
	readJSON(t, conn, &msg)
	if msg.Text != "ok" {
		t.Errorf("unexpected transcript: %+v", msg)
	}
}
