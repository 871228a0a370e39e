package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"originality/config"
	"originality/extract"
	"originality/models"
	"originality/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger { return zap.NewNop() }

// --- Fakes ---------------------------------------------------------------

// fakeRenderer zeichnet Render- und Close-Aufrufe auf und kann einzelne
// Render-Aufrufe gezielt scheitern lassen (Fault Injection).
type fakeRenderer struct {
	mu      sync.Mutex
	renders []string // die übergebenen HTML-Dokumente
	closes  int
	failIf  func(html string) error
}

func (f *fakeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	f.mu.Lock()
	f.renders = append(f.renders, html)
	f.mu.Unlock()
	if f.failIf != nil {
		if err := f.failIf(html); err != nil {
			return nil, err
		}
	}
	return []byte("%PDF-fake " + html[:20]), nil
}

func (f *fakeRenderer) Close() {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
}

// fakeArtifacts ist ein In-Memory-ArtifactStore.
type fakeArtifacts struct {
	mu      sync.Mutex
	objects map[string][]byte
	failKey string // Suffix, bei dem Put scheitert
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{objects: make(map[string][]byte)}
}

func (f *fakeArtifacts) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.failKey != "" && strings.HasSuffix(key, f.failKey) {
		return "", errors.New("upload rejected")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return "mem://" + key, nil
}

func (f *fakeArtifacts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// fakeRecords ist ein In-Memory-RecordStore.
type fakeRecords struct {
	mu         sync.Mutex
	subs       []models.Submission
	failInsert bool
	inserts    int
}

func (f *fakeRecords) Insert(ctx context.Context, sub *models.Submission) error {
	if f.failInsert {
		return errors.New("insert rejected")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().Add(time.Duration(f.inserts) * time.Millisecond)
	}
	f.subs = append(f.subs, *sub)
	return nil
}

func (f *fakeRecords) ListByUser(ctx context.Context, userID string) ([]models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Submission
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- Aufbau --------------------------------------------------------------

func testConfig() *config.Config {
	return &config.Config{
		PaginationPolicy: "words",
		WordsPerPage:     500,
		MaxLinesPerPage:  42,
		WrapWidth:        90,
		SimilarityScore:  12.5,
		AIScore:          31.0,
		ExtractTimeout:   time.Second,
		RenderTimeout:    time.Second,
		UploadTimeout:    time.Second,
	}
}

type testEnv struct {
	pipeline  *PipelineService
	renderer  *fakeRenderer
	artifacts *fakeArtifacts
	records   *fakeRecords
	openCalls int
	openErr   error
}

func newTestEnv(cfg *config.Config) *testEnv {
	env := &testEnv{
		renderer:  &fakeRenderer{},
		artifacts: newFakeArtifacts(),
		records:   &fakeRecords{},
	}
	opener := func(ctx context.Context) (Renderer, error) {
		env.openCalls++
		if env.openErr != nil {
			return nil, env.openErr
		}
		return env.renderer, nil
	}
	env.pipeline = NewPipelineService(cfg, testLogger(), extract.Extract, opener, env.artifacts, env.records)
	return env
}

func wordsDocument(n int) []byte {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return []byte(strings.Join(words, " "))
}

func plainUpload(data []byte) UploadInput {
	return UploadInput{
		UserID:    "user-1",
		Filename:  "essay.txt",
		MediaType: "text/plain",
		Data:      data,
	}
}

// --- Tests ---------------------------------------------------------------

func TestProcessEndToEnd(t *testing.T) {
	env := newTestEnv(testConfig())

	// 1200 Wörter bei 500 pro Seite → 3 Content-Seiten → 5 Seiten gesamt
	sub, err := env.pipeline.Process(context.Background(), plainUpload(wordsDocument(1200)))
	require.NoError(t, err)

	assert.NotEmpty(t, sub.SubmissionID)
	assert.Equal(t, 1200, sub.WordCount)
	assert.Equal(t, "user-1", sub.UserID)
	assert.Equal(t, 12.5, sub.SimilarityScore)
	assert.Equal(t, 31.0, sub.AIScore)
	assert.Contains(t, sub.FileURL, sub.SubmissionID)
	assert.Contains(t, sub.SimilarityReportURL, "similarity.pdf")
	assert.Contains(t, sub.AIReportURL, "ai.pdf")

	// Beide Reports wurden in einer Session gerendert und geschlossen
	assert.Equal(t, 1, env.openCalls)
	assert.Equal(t, 1, env.renderer.closes, "close exactly once per open")
	require.Len(t, env.renderer.renders, 2)
	for _, html := range env.renderer.renders {
		assert.Contains(t, html, "Page 5 of 5", "both report models carry totalPages = 2 + 3")
	}

	// Original + zwei Artefakte hochgeladen
	assert.Equal(t, 3, env.artifacts.count())

	// Datensatz vollständig persistiert und abrufbar
	subs, err := env.records.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, sub.SubmissionID, subs[0].SubmissionID)
}

func TestProcessListByUserOrder(t *testing.T) {
	env := newTestEnv(testConfig())

	first, err := env.pipeline.Process(context.Background(), plainUpload([]byte("older document")))
	require.NoError(t, err)
	second, err := env.pipeline.Process(context.Background(), plainUpload([]byte("newer document")))
	require.NoError(t, err)

	subs, err := env.records.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, second.SubmissionID, subs[0].SubmissionID, "most recent first")
	assert.Equal(t, first.SubmissionID, subs[1].SubmissionID)
}

func TestProcessInvalidInput(t *testing.T) {
	env := newTestEnv(testConfig())

	tests := []struct {
		name   string
		mutate func(*UploadInput)
	}{
		{"missing user id", func(in *UploadInput) { in.UserID = "" }},
		{"missing filename", func(in *UploadInput) { in.Filename = "" }},
		{"missing file", func(in *UploadInput) { in.Data = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := plainUpload([]byte("text"))
			tt.mutate(&in)
			_, err := env.pipeline.Process(context.Background(), in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, StageReceived, se.Stage)
		})
	}
	// Validierungsfehler haben keine Seiteneffekte
	assert.Equal(t, 0, env.openCalls)
	assert.Equal(t, 0, env.artifacts.count())
}

func TestProcessExtractionFailure(t *testing.T) {
	env := newTestEnv(testConfig())

	// Korrupte PDF: die Extraktion scheitert vor allem anderen
	in := UploadInput{
		UserID:    "user-1",
		Filename:  "broken.pdf",
		MediaType: "application/pdf",
		Data:      []byte("not a pdf"),
	}
	_, err := env.pipeline.Process(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrExtractionFailed)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageExtracting, se.Stage)

	// Keine Submission, keine Artefakte, Engine nie geöffnet
	assert.Equal(t, 0, env.openCalls, "render engine must never be opened")
	assert.Equal(t, 0, env.artifacts.count())
	assert.Equal(t, 0, env.records.inserts)
}

func TestProcessRenderFailureClosesSessionOnce(t *testing.T) {
	env := newTestEnv(testConfig())
	env.renderer.failIf = func(html string) error {
		if strings.Contains(html, "AI Writing Detection Report") {
			return render.ErrRenderFailed
		}
		return nil
	}

	_, err := env.pipeline.Process(context.Background(), plainUpload([]byte("some text")))
	require.Error(t, err)
	assert.ErrorIs(t, err, render.ErrRenderFailed)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageRenderingAI, se.Stage)

	assert.Equal(t, 1, env.renderer.closes, "session closed exactly once despite render fault")
	assert.Equal(t, 0, env.artifacts.count(), "no uploads after a failed render")
	assert.Equal(t, 0, env.records.inserts)
}

func TestProcessEngineStartFailure(t *testing.T) {
	env := newTestEnv(testConfig())
	env.openErr = render.ErrEngineStart

	_, err := env.pipeline.Process(context.Background(), plainUpload([]byte("some text")))
	require.Error(t, err)
	assert.ErrorIs(t, err, render.ErrEngineStart)
	assert.Equal(t, 0, env.artifacts.count())
}

func TestProcessUploadFailureLeavesOrphans(t *testing.T) {
	env := newTestEnv(testConfig())
	env.artifacts.failKey = "ai.pdf"

	_, err := env.pipeline.Process(context.Background(), plainUpload([]byte("some text")))
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageUploading, se.Stage)

	// Original + Similarity-Report liegen bereits im Store: bewusst
	// akzeptierte Waisen, die der Sweeper später einsammelt.
	assert.Equal(t, 2, env.artifacts.count())
	assert.Equal(t, 0, env.records.inserts, "no partially populated record is ever written")
	assert.Equal(t, 1, env.renderer.closes)
}

func TestProcessPersistFailure(t *testing.T) {
	env := newTestEnv(testConfig())
	env.records.failInsert = true

	_, err := env.pipeline.Process(context.Background(), plainUpload([]byte("some text")))
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StagePersisting, se.Stage)
	assert.Equal(t, 1, env.renderer.closes, "session closed even when persistence fails")
}

func TestProcessExtractTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.ExtractTimeout = 10 * time.Millisecond
	env := newTestEnv(cfg)
	env.pipeline.Extract = func(data []byte, mediaType string) (string, error) {
		time.Sleep(200 * time.Millisecond)
		return "late", nil
	}

	_, err := env.pipeline.Process(context.Background(), plainUpload([]byte("some text")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStageTimeout)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageExtracting, se.Stage)
}
