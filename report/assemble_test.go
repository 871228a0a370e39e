package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeta() SubmissionMeta {
	return SubmissionMeta{
		SubmissionID: "sub-123",
		UserID:       "user-9",
		Filename:     "essay.pdf",
		MediaType:    "application/pdf",
		ByteSize:     2048,
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAssembleZeroContentPages(t *testing.T) {
	doc, err := Assemble(testMeta(), Metrics{}, nil, KindSimilarity, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, doc.TotalPages, "cover + overview, no content")
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, PageCover, doc.Pages[0].Kind)
	assert.Equal(t, PageOverview, doc.Pages[1].Kind)
}

func TestAssemblePageNumbering(t *testing.T) {
	pages := []Page{{Content: "p1"}, {Content: "p2"}, {Content: "p3"}}
	doc, err := Assemble(testMeta(), Metrics{WordCount: 6}, pages, KindAI, 42)
	require.NoError(t, err)

	assert.Equal(t, 5, doc.TotalPages, "2 + content pages")
	require.Len(t, doc.Pages, 5)

	seen := make(map[int]bool)
	for i, p := range doc.Pages {
		assert.Equal(t, i+1, p.Number, "page numbers are a contiguous 1..total sequence")
		assert.Equal(t, doc.TotalPages, p.TotalPages, "total is backfilled into every descriptor")
		assert.False(t, seen[p.Number], "no repeated page numbers")
		seen[p.Number] = true
	}
}

func TestAssembleInjectedScore(t *testing.T) {
	simDoc, err := Assemble(testMeta(), Metrics{}, nil, KindSimilarity, 12.5)
	require.NoError(t, err)
	aiDoc, err := Assemble(testMeta(), Metrics{}, nil, KindAI, 31.0)
	require.NoError(t, err)

	assert.Equal(t, 12.5, simDoc.Pages[1].Overview.Score)
	assert.Equal(t, 31.0, aiDoc.Pages[1].Overview.Score)
	assert.NotEqual(t, simDoc.Pages[1].Overview.Disclaimer, aiDoc.Pages[1].Overview.Disclaimer,
		"disclaimer wording differs per report kind")
}

func TestAssembleInvalidMeta(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmissionMeta)
	}{
		{"missing submission id", func(m *SubmissionMeta) { m.SubmissionID = "" }},
		{"missing user id", func(m *SubmissionMeta) { m.UserID = "" }},
		{"missing filename", func(m *SubmissionMeta) { m.Filename = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := testMeta()
			tt.mutate(&meta)
			_, err := Assemble(meta, Metrics{}, nil, KindSimilarity, 0)
			assert.ErrorIs(t, err, ErrInvalidSubmissionMeta)
		})
	}
}

func TestHTMLRendersAllPages(t *testing.T) {
	pages := []Page{{Content: "first body"}, {Content: "second body"}}
	doc, err := Assemble(testMeta(), Metrics{WordCount: 4, CharCount: 21}, pages, KindSimilarity, 12.5)
	require.NoError(t, err)

	html, err := HTML(doc)
	require.NoError(t, err)

	assert.Contains(t, html, "Similarity Report")
	assert.Contains(t, html, "sub-123")
	assert.Contains(t, html, "essay.pdf")
	assert.Contains(t, html, "12.5%")
	assert.Contains(t, html, "first body")
	assert.Contains(t, html, "second body")
	for n := 1; n <= 4; n++ {
		assert.Contains(t, html, "Page "+string(rune('0'+n))+" of 4")
	}
	assert.Equal(t, 4, strings.Count(html, `class="foot"`), "footer on every page")
}

func TestHTMLEscapesContent(t *testing.T) {
	pages := []Page{{Content: `<script>alert("x")</script>`}}
	doc, err := Assemble(testMeta(), Metrics{}, pages, KindAI, 0)
	require.NoError(t, err)

	html, err := HTML(doc)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert", "document text must be escaped")
}
