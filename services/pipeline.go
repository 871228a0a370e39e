// Package services orchestriert die Verarbeitungs-Pipeline einer Submission:
// Extraktion → Kennzahlen/Paginierung → zwei Report-Renderings → Uploads →
// Persistierung. Externe Fähigkeiten (Extraktor, Render-Session, Stores)
// werden als Interfaces konsumiert.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"originality/config"
	"originality/models"
	"originality/report"
	"originality/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stage benennt den Pipeline-Zustand, in dem ein Fehler aufgetreten ist.
type Stage string

const (
	StageReceived            Stage = "received"
	StageExtracting          Stage = "extracting"
	StageExtracted           Stage = "extracted"
	StageRenderingSimilarity Stage = "rendering_similarity"
	StageRenderingAI         Stage = "rendering_ai"
	StageUploading           Stage = "uploading"
	StagePersisting          Stage = "persisting"
	StageComplete            Stage = "complete"
)

var (
	// ErrInvalidInput: Eingabe vor jedem externen Aufruf abgelehnt,
	// keine Seiteneffekte.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStageTimeout: eine Stage hat ihr request-scoped Zeitbudget
	// überschritten.
	ErrStageTimeout = errors.New("stage timed out")
)

// StageError markiert, in welcher Stage die Pipeline terminal gescheitert ist.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// ExtractFunc ist der konsumierte Extraktor-Kontrakt (extract.Extract).
type ExtractFunc func(data []byte, mediaType string) (string, error)

// Renderer ist eine geöffnete Render-Engine-Session.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
	Close()
}

// SessionOpener öffnet eine Render-Engine-Session (render.Open).
type SessionOpener func(ctx context.Context) (Renderer, error)

// ArtifactStore lädt Binär-Artefakte hoch und liefert die dauerhafte Referenz.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// RecordStore persistiert Submissions und listet sie pro Benutzer.
type RecordStore interface {
	Insert(ctx context.Context, sub *models.Submission) error
	ListByUser(ctx context.Context, userID string) ([]models.Submission, error)
}

// PipelineService führt die Dokument-zu-Report-Pipeline pro Submission aus.
type PipelineService struct {
	Config      *config.Config
	Logger      *zap.Logger
	Extract     ExtractFunc
	OpenSession SessionOpener
	Artifacts   ArtifactStore
	Records     RecordStore
}

// NewPipelineService erstellt eine neue Instanz des PipelineService.
func NewPipelineService(cfg *config.Config, logger *zap.Logger, ex ExtractFunc, open SessionOpener, artifacts ArtifactStore, records RecordStore) *PipelineService {
	return &PipelineService{
		Config:      cfg,
		Logger:      logger,
		Extract:     ex,
		OpenSession: open,
		Artifacts:   artifacts,
		Records:     records,
	}
}

// UploadInput ist die angenommene Eingabe der Ingestion-Grenze.
type UploadInput struct {
	UserID    string
	Filename  string
	MediaType string
	Data      []byte
}

// Process durchläuft die Pipeline sequenziell; nur die beiden Renderings
// laufen parallel, da sie lediglich den extrahierten Text teilen. Die
// Render-Session wird auf jedem Ausstiegspfad geschlossen. Keine Stage
// wird automatisch wiederholt; bereits hochgeladene Artefakte einer
// gescheiterten Submission bleiben liegen (der Sweeper räumt sie auf).
func (p *PipelineService) Process(ctx context.Context, in UploadInput) (*models.Submission, error) {
	log := p.Logger.With(zap.String("user_id", in.UserID), zap.String("filename", in.Filename))

	// Stage: received — Validierung vor jedem externen Aufruf
	switch {
	case in.UserID == "":
		return nil, p.fail(log, StageReceived, fmt.Errorf("%w: missing user id", ErrInvalidInput))
	case in.Filename == "":
		return nil, p.fail(log, StageReceived, fmt.Errorf("%w: missing filename", ErrInvalidInput))
	case len(in.Data) == 0:
		return nil, p.fail(log, StageReceived, fmt.Errorf("%w: no file uploaded", ErrInvalidInput))
	}

	submissionID := uuid.NewString()
	createdAt := time.Now().UTC()
	log = log.With(zap.String("submission_id", submissionID))
	log.Info("Pipeline gestartet", zap.Int("byte_size", len(in.Data)))

	// Stage: extracting
	text, err := withTimeout(ctx, p.Config.ExtractTimeout, func(context.Context) (string, error) {
		return p.Extract(in.Data, in.MediaType)
	})
	if err != nil {
		return nil, p.fail(log, StageExtracting, err)
	}

	// Stage: extracted — Kennzahlen und Paginierung (rein, kein I/O)
	metrics := report.ComputeMetrics(text)
	pages := report.Paginate(text, p.budget())
	log.Info("Text extrahiert",
		zap.Int("word_count", metrics.WordCount),
		zap.Int("char_count", metrics.CharCount),
		zap.Int("content_pages", len(pages)))

	meta := report.SubmissionMeta{
		SubmissionID: submissionID,
		UserID:       in.UserID,
		Filename:     in.Filename,
		MediaType:    in.MediaType,
		ByteSize:     int64(len(in.Data)),
		CreatedAt:    createdAt,
	}

	// Eine Session für beide Report-Varianten: einmal öffnen, zweimal
	// rendern, einmal schließen.
	session, err := p.OpenSession(ctx)
	if err != nil {
		return nil, p.fail(log, StageRenderingSimilarity, err)
	}
	defer session.Close()

	var similarityPDF, aiPDF []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pdf, err := p.renderReport(gctx, session, meta, metrics, pages, report.KindSimilarity, p.Config.SimilarityScore)
		if err != nil {
			return &StageError{Stage: StageRenderingSimilarity, Err: err}
		}
		similarityPDF = pdf
		return nil
	})
	g.Go(func() error {
		pdf, err := p.renderReport(gctx, session, meta, metrics, pages, report.KindAI, p.Config.AIScore)
		if err != nil {
			return &StageError{Stage: StageRenderingAI, Err: err}
		}
		aiPDF = pdf
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, p.failErr(log, err)
	}
	log.Info("Beide Reports gerendert",
		zap.Int("similarity_bytes", len(similarityPDF)),
		zap.Int("ai_bytes", len(aiPDF)))

	// Stage: uploading — Original zuerst, dann die beiden Artefakte
	fileURL, err := p.upload(ctx, storage.OriginalKey(submissionID, in.Filename), in.Data, in.MediaType)
	if err != nil {
		return nil, p.fail(log, StageUploading, err)
	}
	similarityURL, err := p.upload(ctx, storage.ReportKey(submissionID, string(report.KindSimilarity)), similarityPDF, "application/pdf")
	if err != nil {
		return nil, p.fail(log, StageUploading, err)
	}
	aiURL, err := p.upload(ctx, storage.ReportKey(submissionID, string(report.KindAI)), aiPDF, "application/pdf")
	if err != nil {
		return nil, p.fail(log, StageUploading, err)
	}

	// Stage: persisting — der Datensatz wird erst jetzt, vollständig
	// befüllt, geschrieben. Teilbefüllte Submissions existieren nie.
	sub := &models.Submission{
		SubmissionID:        submissionID,
		UserID:              in.UserID,
		Filename:            in.Filename,
		MediaType:           in.MediaType,
		ByteSize:            int64(len(in.Data)),
		WordCount:           metrics.WordCount,
		CharCount:           metrics.CharCount,
		FileURL:             fileURL,
		SimilarityReportURL: similarityURL,
		AIReportURL:         aiURL,
		SimilarityScore:     p.Config.SimilarityScore,
		AIScore:             p.Config.AIScore,
	}
	if err := p.Records.Insert(ctx, sub); err != nil {
		return nil, p.fail(log, StagePersisting, err)
	}

	log.Info("Pipeline abgeschlossen", zap.String("stage", string(StageComplete)))
	return sub, nil
}

// renderReport baut das Seitenmodell einer Report-Variante und druckt es
// in der gegebenen Session.
func (p *PipelineService) renderReport(ctx context.Context, session Renderer, meta report.SubmissionMeta, m report.Metrics, pages []report.Page, kind report.ReportKind, score float64) ([]byte, error) {
	doc, err := report.Assemble(meta, m, pages, kind, score)
	if err != nil {
		return nil, err
	}
	html, err := report.HTML(doc)
	if err != nil {
		return nil, err
	}
	return withTimeout(ctx, p.Config.RenderTimeout, func(ctx context.Context) ([]byte, error) {
		return session.Render(ctx, html)
	})
}

// upload lädt ein Objekt mit dem Upload-Zeitbudget hoch.
func (p *PipelineService) upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return withTimeout(ctx, p.Config.UploadTimeout, func(ctx context.Context) (string, error) {
		return p.Artifacts.Put(ctx, key, data, contentType)
	})
}

// budget baut das Paginator-Budget aus der Konfiguration.
func (p *PipelineService) budget() report.Budget {
	return report.Budget{
		Policy:          report.Policy(p.Config.PaginationPolicy),
		MaxLinesPerPage: p.Config.MaxLinesPerPage,
		WordsPerPage:    p.Config.WordsPerPage,
		LineCost:        report.WrapCost(p.Config.WrapWidth),
	}
}

// fail macht aus einem Stage-Fehler den terminalen Failed-Zustand.
func (p *PipelineService) fail(log *zap.Logger, stage Stage, err error) error {
	return p.failErr(log, &StageError{Stage: stage, Err: err})
}

func (p *PipelineService) failErr(log *zap.Logger, err error) error {
	var se *StageError
	if !errors.As(err, &se) {
		se = &StageError{Stage: StageReceived, Err: err}
	}
	log.Error("Pipeline fehlgeschlagen", zap.String("stage", string(se.Stage)), zap.Error(se.Err))
	return se
}

// withTimeout führt fn unter einem Stage-Zeitbudget aus. Ein Überschreiten
// wird als ErrStageTimeout gemeldet statt den Request hängen zu lassen.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w: %v", ErrStageTimeout, r.err)
		}
		return r.v, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w: %v", ErrStageTimeout, ctx.Err())
		}
		return zero, ctx.Err()
	}
}
