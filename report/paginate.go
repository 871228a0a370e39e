package report

import (
	"strings"
	"unicode/utf8"
)

// Policy wählt die Paginierungs-Strategie.
type Policy string

const (
	// PolicyLines teilt nach Zeilen unter einem Zeilen-Budget pro Seite.
	// Erhält die originale Zeilenstruktur; Standard.
	PolicyLines Policy = "lines"

	// PolicyWords teilt in feste Wort-Blöcke. Verliert Zeilenumbrüche;
	// nur sinnvoll, wenn Layout-Treue keine Rolle spielt.
	PolicyWords Policy = "words"
)

// LineCostFunc schätzt, wie viele gerenderte Zeilen eine Rohzeile belegt.
// Austauschbar, damit die Heuristik später durch eine echte
// Glyphenbreiten-Messung ersetzt werden kann, ohne den Algorithmus anzufassen.
type LineCostFunc func(line string) int

// WrapCost liefert die Standard-Heuristik: max(1, ceil(len/wrapWidth)).
func WrapCost(wrapWidth int) LineCostFunc {
	if wrapWidth <= 0 {
		wrapWidth = 90
	}
	return func(line string) int {
		n := utf8.RuneCountInString(line)
		if n == 0 {
			return 1
		}
		return (n + wrapWidth - 1) / wrapWidth
	}
}

// Budget konfiguriert den Paginator.
type Budget struct {
	Policy          Policy
	MaxLinesPerPage int
	WordsPerPage    int
	LineCost        LineCostFunc
}

func (b *Budget) defaults() {
	if b.Policy == "" {
		b.Policy = PolicyLines
	}
	if b.MaxLinesPerPage <= 0 {
		b.MaxLinesPerPage = 42
	}
	if b.WordsPerPage <= 0 {
		b.WordsPerPage = 500
	}
	if b.LineCost == nil {
		b.LineCost = WrapCost(90)
	}
}

// Page ist ein Element der Seitenfolge: ein Textblock plus die geschätzten
// Zeilenkosten, die die Seitengrenze begründet haben.
type Page struct {
	Content  string
	LineCost int
}

// Paginate teilt den Text in eine geordnete Seitenfolge unter dem Budget.
// Deterministisch und total; leerer Input ergibt null Seiten. Die
// Konkatenation aller Seiteninhalte (mit dem Join-Trenner der Policy)
// rekonstruiert den originalen Zeilen- bzw. Token-Strom exakt.
func Paginate(text string, budget Budget) []Page {
	budget.defaults()
	if text == "" {
		return nil
	}
	switch budget.Policy {
	case PolicyWords:
		return paginateWords(text, budget.WordsPerPage)
	default:
		return paginateLines(text, budget.MaxLinesPerPage, budget.LineCost)
	}
}

// paginateLines akkumuliert Rohzeilen, bis die nächste Zeile das Budget
// sprengen würde. Einzige Ausnahme: auf eine noch leere Seite kommt die
// Zeile immer — eine überlange Einzelzeile bekommt damit ihre eigene Seite.
// Zeilen werden nie umsortiert oder verworfen.
func paginateLines(text string, maxLines int, cost LineCostFunc) []Page {
	lines := strings.Split(text, "\n")

	var pages []Page
	var current []string
	currentCost := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		pages = append(pages, Page{
			Content:  strings.Join(current, "\n"),
			LineCost: currentCost,
		})
		current = nil
		currentCost = 0
	}

	for _, line := range lines {
		c := cost(line)
		if len(current) > 0 && currentCost+c > maxLines {
			flush()
		}
		current = append(current, line)
		currentCost += c
	}
	flush()

	return pages
}

// paginateWords gruppiert Whitespace-Tokens in feste Blöcke.
func paginateWords(text string, wordsPerPage int) []Page {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var pages []Page
	for start := 0; start < len(words); start += wordsPerPage {
		end := start + wordsPerPage
		if end > len(words) {
			end = len(words)
		}
		pages = append(pages, Page{
			Content:  strings.Join(words[start:end], " "),
			LineCost: end - start,
		})
	}
	return pages
}
