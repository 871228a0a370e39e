package report

import (
	"errors"
	"fmt"
	"time"
)

// ReportKind unterscheidet die beiden Report-Varianten.
type ReportKind string

const (
	KindSimilarity ReportKind = "similarity"
	KindAI         ReportKind = "ai"
)

// ErrInvalidSubmissionMeta: ein Pflichtfeld der Submission-Metadaten fehlt.
var ErrInvalidSubmissionMeta = errors.New("invalid submission metadata")

// SubmissionMeta sind die Metadaten, die auf Cover und Kopfzeilen erscheinen.
type SubmissionMeta struct {
	SubmissionID string
	UserID       string
	Filename     string
	MediaType    string
	ByteSize     int64
	CreatedAt    time.Time
}

// PageKind klassifiziert einen Seiten-Deskriptor.
type PageKind string

const (
	PageCover    PageKind = "cover"
	PageOverview PageKind = "overview"
	PageContent  PageKind = "content"
)

// CoverPayload trägt die Angaben der Titelseite.
type CoverPayload struct {
	Filename  string
	ByteSize  int64
	WordCount int
	CharCount int
}

// OverviewPayload trägt den (injizierten) Score und den Hinweistext der
// Übersichtsseite.
type OverviewPayload struct {
	Headline   string
	Score      float64
	Disclaimer string
}

// PageDescriptor beschreibt genau eine Seite des paginierten Dokuments.
// TotalPages ist über alle Deskriptoren eines Dokuments identisch und wird
// nachgetragen, sobald die vollständige Folge steht.
type PageDescriptor struct {
	Kind       PageKind
	Number     int
	TotalPages int

	Cover    *CoverPayload
	Overview *OverviewPayload
	Content  *Page
}

// Document ist das abstrakte, paginierte Report-Modell:
// Cover + Übersicht + N Content-Seiten.
type Document struct {
	Kind       ReportKind
	Meta       SubmissionMeta
	TotalPages int
	Pages      []PageDescriptor
}

// Hinweistexte je Report-Variante.
const (
	similarityHeadline   = "Similarity Report"
	similarityDisclaimer = "The similarity score indicates the proportion of this document " +
		"that matches material in the comparison corpus. A match is not in itself " +
		"evidence of plagiarism; quotations, citations and common phrases also match. " +
		"Review flagged passages in context before drawing conclusions."

	aiHeadline   = "AI Writing Detection Report"
	aiDisclaimer = "The AI score estimates how likely it is that this document was " +
		"generated by a language model. Detection of machine-generated text is " +
		"probabilistic and can produce false positives, particularly for formulaic " +
		"or non-native writing. Use this report as one signal among several."
)

// Assemble baut das Seitenmodell eines Reports: genau ein Cover- und ein
// Übersichts-Deskriptor vor den Content-Seiten, TotalPages = 2 + |pages|.
// Der Score kommt vom Aufrufer (Platzhalter oder echter Detektor) und wird
// hier nur durchgereicht. Rein, deterministisch, kein I/O.
func Assemble(meta SubmissionMeta, m Metrics, pages []Page, kind ReportKind, score float64) (*Document, error) {
	switch {
	case meta.SubmissionID == "":
		return nil, fmt.Errorf("%w: missing submission id", ErrInvalidSubmissionMeta)
	case meta.UserID == "":
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidSubmissionMeta)
	case meta.Filename == "":
		return nil, fmt.Errorf("%w: missing filename", ErrInvalidSubmissionMeta)
	}

	headline, disclaimer := similarityHeadline, similarityDisclaimer
	if kind == KindAI {
		headline, disclaimer = aiHeadline, aiDisclaimer
	}

	doc := &Document{Kind: kind, Meta: meta}

	doc.Pages = append(doc.Pages, PageDescriptor{
		Kind:   PageCover,
		Number: 1,
		Cover: &CoverPayload{
			Filename:  meta.Filename,
			ByteSize:  meta.ByteSize,
			WordCount: m.WordCount,
			CharCount: m.CharCount,
		},
	})
	doc.Pages = append(doc.Pages, PageDescriptor{
		Kind:   PageOverview,
		Number: 2,
		Overview: &OverviewPayload{
			Headline:   headline,
			Score:      score,
			Disclaimer: disclaimer,
		},
	})
	for i := range pages {
		doc.Pages = append(doc.Pages, PageDescriptor{
			Kind:    PageContent,
			Number:  3 + i,
			Content: &pages[i],
		})
	}

	// TotalPages erst jetzt bekannt — in alle Deskriptoren nachtragen.
	doc.TotalPages = len(doc.Pages)
	for i := range doc.Pages {
		doc.Pages[i].TotalPages = doc.TotalPages
	}

	return doc, nil
}
