// Package ws implements the transcription WebSocket endpoint. Each accepted
// connection gets its own audio session; binary frames carry raw PCM and
// text frames carry JSON control messages.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"voicedine-service/internal/events"
	"voicedine-service/internal/models"
	"voicedine-service/internal/service/audio"
	"voicedine-service/internal/service/stt"
)

const (
	// Generous per-frame limit; clients typically send 100ms PCM chunks.
	maxFrameBytes = 1 << 20
	writeTimeout  = 5 * time.Second
)

// Handler accepts transcription WebSocket connections.
type Handler struct {
	cfg         audio.Config
	transcriber stt.Transcriber
	publisher   *events.Publisher
	ids         atomic.Uint64
}

// NewHandler creates the WebSocket handler. transcriber may be nil when no
// provider is configured; connections are then rejected with an error
// message instead of failing silently.
func NewHandler(cfg audio.Config, transcriber stt.Transcriber, publisher *events.Publisher) *Handler {
	return &Handler{
		cfg:         cfg,
		transcriber: transcriber,
		publisher:   publisher,
	}
}

// ServeHTTP upgrades the request and runs the connection read loop until the
// client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	sessionId := fmt.Sprintf("ws-%d-%d", time.Now().Unix(), h.ids.Add(1))
	writer := &connWriter{conn: conn}

	if h.transcriber == nil {
		_ = writer.send(models.NewError("transcription is not configured"))
		conn.Close(websocket.StatusInternalError, "transcription unavailable")
		return
	}

	log.Info().Str("sessionId", sessionId).Msg("Transcription session started")

	sess := audio.NewSession(sessionId, h.cfg, h.transcriber, h.publisher, writer.send)
	// Drain the session before closing the socket so transcripts from the
	// final flush can still reach the peer.
	defer conn.Close(websocket.StatusNormalClosure, "")
	defer sess.Close()

	ctx := r.Context()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				log.Info().Str("sessionId", sessionId).Msg("Client closed connection")
			} else {
				log.Debug().Err(err).Str("sessionId", sessionId).Msg("Connection read ended")
			}
			break
		}

		switch typ {
		case websocket.MessageBinary:
			if err := sess.Append(data); err != nil {
				log.Debug().Err(err).Str("sessionId", sessionId).Msg("Dropping audio frame")
			}
		case websocket.MessageText:
			h.handleControl(sess, sessionId, data)
		}
	}
}

func (h *Handler) handleControl(sess *audio.Session, sessionId string, data []byte) {
	msg, err := models.ParseControl(data)
	if err != nil {
		log.Debug().Err(err).Str("sessionId", sessionId).Msg("Ignoring malformed control message")
		return
	}

	switch msg.Type {
	case models.ControlConfig:
		if err := sess.Configure(msg.SampleRate); err != nil {
			if !errors.Is(err, audio.ErrAlreadyConfigured) {
				log.Warn().Err(err).Str("sessionId", sessionId).Msg("Config rejected")
			}
		}
	case models.ControlCommit:
		if err := sess.Commit(); err != nil {
			log.Debug().Err(err).Str("sessionId", sessionId).Msg("Commit rejected")
		}
	default:
		log.Debug().Str("sessionId", sessionId).Str("type", msg.Type).Msg("Unknown control message")
	}
}

// connWriter serializes outbound JSON text frames. The session worker and
// the handler itself both write to the connection.
type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *connWriter) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal outbound message: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return w.conn.Write(ctx, websocket.MessageText, payload)
}
