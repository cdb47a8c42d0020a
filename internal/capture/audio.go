package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/dwesselviax/EstateLogger/internal/common"
)

const readChunkBytes = 8192

// ReaderSource streams PCM from an io.Reader, such as stdin or a raw file.
// The underlying reader is consumed once by a single pump goroutine; each Open
// returns a stream that resumes where the previous one stopped. Once the reader
// hits EOF, Open reports common.ErrUnsupported so the adapter stops instead of
// replaying nothing.
type ReaderSource struct {
	open func() (io.ReadCloser, error)

	mu     sync.Mutex
	chunks chan readResult
	ended  bool

	quit      chan struct{}
	closeOnce sync.Once
}

type readResult struct {
	data []byte
	err  error
}

func NewReaderSource(r io.Reader) *ReaderSource {
	return newReaderSource(func() (io.ReadCloser, error) {
		if rc, ok := r.(io.ReadCloser); ok && r != os.Stdin {
			return rc, nil
		}
		return io.NopCloser(r), nil
	})
}

func NewFileSource(path string) *ReaderSource {
	return newReaderSource(func() (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: open audio file: %v", common.ErrUnsupported, err)
		}
		return f, nil
	})
}

func newReaderSource(open func() (io.ReadCloser, error)) *ReaderSource {
	return &ReaderSource{open: open, quit: make(chan struct{})}
}

func (s *ReaderSource) Open(_ context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil, fmt.Errorf("%w: audio stream already consumed", common.ErrUnsupported)
	}
	select {
	case <-s.quit:
		return nil, fmt.Errorf("%w: audio source closed", common.ErrUnsupported)
	default:
	}
	if s.chunks == nil {
		rc, err := s.open()
		if err != nil {
			return nil, err
		}
		s.chunks = make(chan readResult)
		go s.pump(rc, s.chunks)
	}
	return &sourceStream{chunks: s.chunks, done: make(chan struct{})}, nil
}

// Close stops the pump. A pump blocked reading stdin exits after its next read.
func (s *ReaderSource) Close() error {
	s.closeOnce.Do(func() { close(s.quit) })
	return nil
}

func (s *ReaderSource) pump(rc io.ReadCloser, chunks chan<- readResult) {
	defer rc.Close()
	for {
		buf := make([]byte, readChunkBytes)
		n, err := rc.Read(buf)
		if n > 0 && !s.send(chunks, readResult{data: buf[:n]}) {
			return
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, os.ErrClosed):
			s.mu.Lock()
			s.ended = true
			s.mu.Unlock()
			close(chunks)
			return
		default:
			// Delivered to the current stream; the next Open keeps reading.
			if !s.send(chunks, readResult{err: err}) {
				return
			}
		}
	}
}

func (s *ReaderSource) send(chunks chan<- readResult, r readResult) bool {
	select {
	case chunks <- r:
		return true
	case <-s.quit:
		return false
	}
}

// sourceStream is one Open of a ReaderSource. Close unblocks a pending Read
// without touching the underlying reader.
type sourceStream struct {
	chunks <-chan readResult
	done   chan struct{}
	once   sync.Once
	rest   []byte
}

func (r *sourceStream) Read(p []byte) (int, error) {
	if len(r.rest) == 0 {
		select {
		case <-r.done:
			return 0, io.ErrClosedPipe
		case res, ok := <-r.chunks:
			if !ok {
				return 0, io.EOF
			}
			if res.err != nil {
				return 0, res.err
			}
			r.rest = res.data
		}
	}
	n := copy(p, r.rest)
	r.rest = r.rest[n:]
	return n, nil
}

func (r *sourceStream) Close() error {
	r.once.Do(func() { close(r.done) })
	return nil
}

// IsStdinSource reports whether an audio source name selects stdin.
func IsStdinSource(source string) bool {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "stdin", "-":
		return true
	}
	return false
}

// NewAudioSource builds the source named by cfg.Source: pulse, file or stdin.
func NewAudioSource(cfg common.AudioConfig, logger *slog.Logger) (AudioSource, error) {
	if IsStdinSource(cfg.Source) {
		return NewReaderSource(os.Stdin), nil
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case "", "pulse":
		return NewPulseSource(cfg.Device, cfg.SampleRate, logger), nil
	case "file":
		if strings.TrimSpace(cfg.File) == "" {
			return nil, fmt.Errorf("%w: audio.file is required for the file source", common.ErrInvalidInput)
		}
		return NewFileSource(cfg.File), nil
	}
	return nil, fmt.Errorf("%w: unknown audio source %q", common.ErrInvalidInput, cfg.Source)
}
