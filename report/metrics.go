// Package report baut aus extrahiertem Text das abstrakte, paginierte
// Report-Dokument: Kennzahlen, Seitenaufteilung, Seitenmodell und dessen
// druckfertige HTML-Realisierung für die Render-Engine.
package report

import (
	"strings"
	"unicode/utf8"
)

// Metrics sind die Kennzahlen des extrahierten Texts.
type Metrics struct {
	WordCount int `json:"word_count"`
	CharCount int `json:"char_count"`
}

// ComputeMetrics zählt Wörter und Zeichen. Wörter sind maximale, durch
// Whitespace getrennte Tokens. Zeichen werden als Runen inklusive
// Whitespace gezählt — wie der Zeichenzähler einer Textverarbeitung.
func ComputeMetrics(text string) Metrics {
	return Metrics{
		WordCount: len(strings.Fields(text)),
		CharCount: utf8.RuneCountInString(text),
	}
}
