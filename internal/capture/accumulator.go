package capture

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Accumulator owns the running transcript of one session. Finalized speech
// goes through the debouncer; manual entries are extracted right away.
type Accumulator struct {
	deb     *Debouncer
	extract ExtractFunc

	mu       sync.Mutex
	segments []string
	interim  string
	closed   bool

	manual sync.WaitGroup
}

func NewAccumulator(ctx context.Context, quiet time.Duration, extract ExtractFunc) *Accumulator {
	return &Accumulator{
		deb:     NewDebouncer(ctx, quiet, extract),
		extract: extract,
	}
}

// HandleTranscript is the recognizer callback.
func (a *Accumulator) HandleTranscript(text string, isFinal bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if !isFinal {
		a.interim = text
		return
	}
	a.interim = ""
	if t := strings.TrimSpace(text); t != "" {
		a.segments = append(a.segments, t)
		a.deb.Record(t)
	}
}

// SubmitManual appends text to the transcript and extracts it in the
// background, bypassing the quiet period. It may run alongside a
// timer-triggered extraction.
func (a *Accumulator) SubmitManual(ctx context.Context, text string) {
	t := strings.TrimSpace(text)
	if t == "" {
		return
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.segments = append(a.segments, t)
	a.manual.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.manual.Done()
		a.extract(ctx, t)
	}()
}

func (a *Accumulator) Transcript() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.Join(a.segments, " ")
}

func (a *Accumulator) Interim() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interim
}

// Close flushes pending speech, waits for manual extractions and returns the
// full transcript. Later input is ignored.
func (a *Accumulator) Close(ctx context.Context) string {
	a.mu.Lock()
	a.closed = true
	a.interim = ""
	a.mu.Unlock()

	a.deb.Flush(ctx)
	a.manual.Wait()
	return a.Transcript()
}
