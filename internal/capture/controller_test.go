package capture

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/extraction"
	"github.com/dwesselviax/EstateLogger/internal/llm"
	"github.com/dwesselviax/EstateLogger/internal/repository"
	"github.com/dwesselviax/EstateLogger/internal/repository/repotest"
	"github.com/dwesselviax/EstateLogger/internal/services/estate"
)

// echoExtractor returns one item per call, named after the text it was given.
type echoExtractor struct {
	mu    sync.Mutex
	texts []string
	fail  bool
}

func (e *echoExtractor) ExtractItems(_ context.Context, transcript string) ([]llm.ExtractedItem, []byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, transcript)
	if e.fail {
		return nil, nil, common.UpstreamError("openai returned 502", errors.New("bad gateway"))
	}
	return []llm.ExtractedItem{{Name: transcript, Category: "Furniture", Condition: "good"}}, nil, nil
}

func newController(t *testing.T, ex *echoExtractor, rec Recognizer, events Events) (*Controller, *repository.Repositories, *entity.Estate) {
	t.Helper()
	_, repos := repotest.New(t)
	sessions := estate.NewService(repos.Estates, repos.Sessions, repos.Items, nil)
	extractor := extraction.NewService(ex, repos.Estates, repos.Sessions, repos.Items, nil)
	c := NewController(sessions, extractor, rec, nil, ControllerConfig{QuietPeriod: time.Hour, RestartDelay: time.Millisecond}, events, nil)
	return c, repos, repotest.Estate(t, repos, "Whitaker")
}

func TestControllerManualOnlySession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	var unsupported error
	ex := &echoExtractor{}
	c, repos, est := newController(t, ex, nil, Events{OnUnsupported: func(err error) { unsupported = err }})

	sess, err := c.Start(ctx, est.ID)
	require.NoError(t, err)
	require.ErrorIs(t, unsupported, common.ErrUnsupported)
	require.Equal(t, sess, c.Session())

	_, err = c.Start(ctx, est.ID)
	require.Error(t, err)

	require.NoError(t, c.SubmitManual(ctx, "brass floor lamp"))
	require.NoError(t, c.SubmitManual(ctx, "pair of table lamps"))

	done, err := c.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, constants.SessionCompleted, done.Status)
	require.Equal(t, 2, done.ItemCount)
	require.Equal(t, "brass floor lamp pair of table lamps", done.FullTranscript)
	require.NotNil(t, done.EndedAt)

	got, err := repos.Estates.GetByID(ctx, est.ID)
	require.NoError(t, err)
	require.Equal(t, constants.EstateLogging, got.Status)

	items, err := repos.Items.ListByEstate(ctx, est.ID, repository.ItemFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		require.Equal(t, sess.ID, *it.SessionID)
		require.Equal(t, constants.Furniture, it.Category)
	}

	require.ErrorIs(t, c.SubmitManual(ctx, "late"), ErrNotRunning)
	_, err = c.Stop(ctx)
	require.ErrorIs(t, err, ErrNotRunning)
}

// phraseRecognizer emits its phrases as finals once, then blocks.
type phraseRecognizer struct {
	phrases []string
	once    sync.Once
}

func (p *phraseRecognizer) Recognize(ctx context.Context, _ AudioSource, emit func(TranscriptEvent)) error {
	p.once.Do(func() {
		for _, ph := range p.phrases {
			emit(TranscriptEvent{Text: ph + "...", IsFinal: false})
			emit(TranscriptEvent{Text: ph, IsFinal: true})
		}
	})
	<-ctx.Done()
	return ctx.Err()
}

func TestControllerSpeechIsFlushedOnStop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ex := &echoExtractor{}
	var mu sync.Mutex
	var finals []string
	rec := &phraseRecognizer{phrases: []string{"a crystal chandelier", "hanging in the foyer"}}
	c, _, est := newController(t, ex, rec, Events{OnTranscript: func(text string, isFinal bool) {
		if isFinal {
			mu.Lock()
			finals = append(finals, text)
			mu.Unlock()
		}
	}})

	_, err := c.Start(ctx, est.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		final, _ := c.Transcript()
		return final == "a crystal chandelier hanging in the foyer"
	}, time.Second, 5*time.Millisecond)

	done, err := c.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, done.ItemCount)

	ex.mu.Lock()
	defer ex.mu.Unlock()
	require.Equal(t, []string{"a crystal chandelier hanging in the foyer"}, ex.texts)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, finals, 2)
}

func TestControllerReportsExtractionErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	errs := make(chan error, 1)
	c, _, est := newController(t, &echoExtractor{fail: true}, nil, Events{OnError: func(err error) { errs <- err }})

	_, err := c.Start(ctx, est.ID)
	require.NoError(t, err)
	require.NoError(t, c.SubmitManual(ctx, "a chipped vase"))

	select {
	case err := <-errs:
		require.ErrorIs(t, err, common.ErrUpstream)
	case <-time.After(time.Second):
		t.Fatal("error callback not called")
	}

	done, err := c.Stop(ctx)
	require.NoError(t, err)
	require.Zero(t, done.ItemCount)
	require.True(t, strings.Contains(done.FullTranscript, "chipped vase"))
}

// flakySessions fails CompleteSession a set number of times before delegating.
type flakySessions struct {
	SessionStore
	failures int
}

func (f *flakySessions) CompleteSession(ctx context.Context, id uuid.UUID, transcript string) (*entity.Session, error) {
	if f.failures > 0 {
		f.failures--
		return nil, common.StoreError("complete session", errors.New("connection reset"))
	}
	return f.SessionStore.CompleteSession(ctx, id, transcript)
}

func TestControllerStopCanBeRetriedAfterCompleteFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, repos := repotest.New(t)
	sessions := &flakySessions{SessionStore: estate.NewService(repos.Estates, repos.Sessions, repos.Items, nil), failures: 1}
	extractor := extraction.NewService(&echoExtractor{}, repos.Estates, repos.Sessions, repos.Items, nil)
	c := NewController(sessions, extractor, nil, nil, ControllerConfig{QuietPeriod: time.Hour}, Events{}, nil)
	est := repotest.Estate(t, repos, "Okafor")

	sess, err := c.Start(ctx, est.ID)
	require.NoError(t, err)
	require.NoError(t, c.SubmitManual(ctx, "oak hall tree"))

	_, err = c.Stop(ctx)
	require.ErrorIs(t, err, common.ErrDatabase)
	require.Equal(t, sess, c.Session())

	row, err := repos.Sessions.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, constants.SessionActive, row.Status)

	done, err := c.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, constants.SessionCompleted, done.Status)
	require.Equal(t, "oak hall tree", done.FullTranscript)
	require.Equal(t, 1, done.ItemCount)
	require.Nil(t, c.Session())

	_, err = c.Stop(ctx)
	require.ErrorIs(t, err, ErrNotRunning)
}
