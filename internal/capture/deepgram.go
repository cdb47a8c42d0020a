package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dwesselviax/EstateLogger/internal/common"
)

const chunkSizeBytes = 640 // 20ms @ 16kHz mono s16

// DeepgramConfig controls the streaming listen endpoint.
type DeepgramConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Language   string
	SampleRate int
}

func DeepgramConfigFrom(s common.SpeechConfig, a common.AudioConfig) DeepgramConfig {
	return DeepgramConfig{
		APIKey:     s.DeepgramAPIKey,
		BaseURL:    s.BaseURL,
		Model:      s.Model,
		Language:   s.Language,
		SampleRate: a.SampleRate,
	}
}

// Deepgram recognizes speech over Deepgram's streaming websocket API.
type Deepgram struct {
	cfg    DeepgramConfig
	dialer *websocket.Dialer
	logger *slog.Logger
}

var _ Recognizer = (*Deepgram)(nil)

func NewDeepgram(cfg DeepgramConfig, logger *slog.Logger) *Deepgram {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	return &Deepgram{cfg: cfg, dialer: websocket.DefaultDialer, logger: logger}
}

// Recognize streams audio until it ends, the socket fails or ctx is done.
// A missing key or a 401/403 handshake is reported as common.ErrUnsupported.
func (d *Deepgram) Recognize(ctx context.Context, audio AudioSource, emit func(TranscriptEvent)) error {
	if strings.TrimSpace(d.cfg.APIKey) == "" {
		return fmt.Errorf("%w: DEEPGRAM_API_KEY is not configured", common.ErrUnsupported)
	}
	wsURL, err := d.listenURL()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnsupported, err)
	}

	src, err := audio.Open(ctx)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer src.Close()

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.cfg.APIKey)
	conn, resp, err := d.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: deepgram handshake %s", common.ErrUnsupported, resp.Status)
		}
		return fmt.Errorf("dial deepgram: %w", err)
	}
	d.logger.Debug("capture.deepgram.connected", "model", d.cfg.Model)

	var closeOnce sync.Once
	closeConn := func() { closeOnce.Do(func() { _ = conn.Close() }) }
	defer closeConn()

	stop := context.AfterFunc(ctx, func() {
		closeConn()
		_ = src.Close()
	})
	defer stop()

	writeErr := make(chan error, 1)
	go func() { writeErr <- d.writeLoop(conn, src) }()

	readErr := d.readLoop(conn, emit)
	closeConn()
	_ = src.Close()
	var werr error
	select {
	case werr = <-writeErr:
	default:
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if readErr != nil {
		return readErr
	}
	if werr != nil {
		return werr
	}
	return io.EOF
}

func (d *Deepgram) writeLoop(conn *websocket.Conn, src io.Reader) error {
	buf := make([]byte, chunkSizeBytes*10)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return fmt.Errorf("send audio: %w", werr)
			}
		}
		if errors.Is(err, io.EOF) {
			if werr := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); werr != nil {
				return fmt.Errorf("close stream: %w", werr)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}
	}
}

// readLoop returns nil when the server closes the socket normally.
func (d *Deepgram) readLoop(conn *websocket.Conn, emit func(TranscriptEvent)) error {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return fmt.Errorf("read deepgram event: %w", err)
		}

		var msg deepgramMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			d.logger.Debug("capture.deepgram.bad_event", "error", err)
			continue
		}
		if strings.EqualFold(msg.Type, "Error") {
			return fmt.Errorf("deepgram error: %s", strings.TrimSpace(msg.Message))
		}
		if text := msg.transcript(); text != "" {
			emit(TranscriptEvent{Text: text, IsFinal: msg.IsFinal || msg.SpeechFinal})
		}
	}
}

type deepgramMessage struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (m deepgramMessage) transcript() string {
	if len(m.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(m.Channel.Alternatives[0].Transcript)
}

func (d *Deepgram) listenURL() (string, error) {
	base := strings.TrimRight(strings.TrimSpace(d.cfg.BaseURL), "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	u, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid deepgram base url: %w", err)
	}
	q := u.Query()
	q.Set("model", d.cfg.Model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(d.cfg.SampleRate))
	q.Set("channels", "1")
	q.Set("interim_results", "true")
	q.Set("smart_format", "true")
	if d.cfg.Language != "" {
		q.Set("language", d.cfg.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
