// Package extract wandelt hochgeladene Dokument-Bytes in reinen Text um.
// Pro Media-Type existiert ein eigener Extraktor; die Auswahl erfolgt über
// den deklarierten Content-Type des Uploads. Alle Parser sind pure Go.
package extract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedMediaType: der deklarierte Content-Type gehört nicht
	// zu den akzeptierten Formaten. Wird vor jedem externen Aufruf geprüft.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrExtractionFailed: die eigentliche Konvertierung ist fehlgeschlagen
	// (korrupte Datei, passwortgeschützt, leerer Stream).
	ErrExtractionFailed = errors.New("text extraction failed")
)

// Akzeptierte Media-Types.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeText = "text/plain"
)

// Supported meldet, ob für den Media-Type ein Extraktor existiert.
func Supported(mediaType string) bool {
	switch normalizeMediaType(mediaType) {
	case MediaTypePDF, MediaTypeDocx, MediaTypeText:
		return true
	}
	return false
}

// Extract gibt den Textinhalt der Dokument-Bytes zurück. Leerer Text ist
// ein gültiges Ergebnis, kein Fehler.
func Extract(data []byte, mediaType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty upload stream", ErrExtractionFailed)
	}

	switch normalizeMediaType(mediaType) {
	case MediaTypePDF:
		return extractPDF(data)
	case MediaTypeDocx:
		return extractDocx(data)
	case MediaTypeText:
		return extractText(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMediaType, mediaType)
	}
}

// normalizeMediaType entfernt Parameter wie "; charset=utf-8".
func normalizeMediaType(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// extractText liest eine Plain-Text-Datei durch und normalisiert nur die
// Zeilenenden. Die Zeilenstruktur bleibt für den Zeilen-Paginator erhalten.
func extractText(data []byte) (string, error) {
	text := string(data)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text, nil
}
