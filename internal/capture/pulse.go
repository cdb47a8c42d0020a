package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/dwesselviax/EstateLogger/internal/common"
)

// PulseSource records 16-bit mono PCM from a PulseAudio input.
type PulseSource struct {
	device     string
	sampleRate int
	logger     *slog.Logger
}

func NewPulseSource(device string, sampleRate int, logger *slog.Logger) *PulseSource {
	if logger == nil {
		logger = slog.Default()
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &PulseSource{device: device, sampleRate: sampleRate, logger: logger}
}

// Open starts a record stream. A missing server or device is reported as
// common.ErrUnsupported.
func (p *PulseSource) Open(_ context.Context) (io.ReadCloser, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("estate-logger"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connect pulse server: %v", common.ErrUnsupported, err)
	}

	var source *pulse.Source
	if d := strings.TrimSpace(p.device); d == "" || d == "default" {
		source, err = client.DefaultSource()
	} else {
		source, err = client.SourceByID(d)
	}
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: resolve source %q: %v", common.ErrUnsupported, p.device, err)
	}

	pr, pw := io.Pipe()
	stream, err := client.NewRecord(
		pulse.NewWriter(pw, pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(p.sampleRate),
		pulse.RecordBufferFragmentSize(chunkSizeBytes),
		pulse.RecordMediaName("estate-logger capture"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: create pulse record stream: %v", common.ErrUnsupported, err)
	}
	stream.Start()
	p.logger.Info("capture.pulse.recording", "source", source.ID(), "sample_rate", p.sampleRate)

	return &pulseStream{PipeReader: pr, pw: pw, stream: stream, client: client}, nil
}

type pulseStream struct {
	*io.PipeReader
	pw     *io.PipeWriter
	stream *pulse.RecordStream
	client *pulse.Client
	once   sync.Once
}

func (s *pulseStream) Close() error {
	s.once.Do(func() {
		_ = s.PipeReader.Close()
		s.stream.Stop()
		s.stream.Close()
		s.client.Close()
		_ = s.pw.Close()
	})
	return nil
}
