package report

import (
	"fmt"
	"html/template"
	"strings"
)

// reportTmpl realisiert das Seitenmodell als druckfertiges HTML. Jede Seite
// ist ein eigener .page-Block mit erzwungenem Seitenumbruch; Kopf- und
// Fußzeile ("Page N of T", Submission-ID, Markenzeichen) stehen auf jeder
// Seite, damit der PDF-Druck exakt die modellierte Paginierung übernimmt.
var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"fmtScore": func(s float64) string { return fmt.Sprintf("%.1f%%", s) },
	"fmtBytes": func(n int64) string {
		if n >= 1024*1024 {
			return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
		}
		return fmt.Sprintf("%.2f KB", float64(n)/1024)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  @page { size: A4; margin: 0; }
  * { box-sizing: border-box; }
  body { margin: 0; font-family: Helvetica, Arial, sans-serif; color: #1a1a1a; }
  .page { position: relative; width: 210mm; height: 297mm; padding: 22mm 18mm 24mm 18mm; page-break-after: always; overflow: hidden; }
  .page:last-child { page-break-after: avoid; }
  .head { position: absolute; top: 8mm; left: 18mm; right: 18mm; display: flex; justify-content: space-between; font-size: 9px; color: #777; border-bottom: 1px solid #ddd; padding-bottom: 2mm; }
  .foot { position: absolute; bottom: 8mm; left: 18mm; right: 18mm; display: flex; justify-content: space-between; font-size: 9px; color: #777; border-top: 1px solid #ddd; padding-top: 2mm; }
  .brand { font-weight: bold; color: #2b6cb0; }
  .cover h1 { font-size: 28px; margin: 40mm 0 10mm 0; }
  .cover table { font-size: 13px; border-collapse: collapse; }
  .cover td { padding: 2mm 6mm 2mm 0; }
  .cover td:first-child { color: #777; }
  .overview .score { font-size: 52px; font-weight: bold; color: #2b6cb0; margin: 18mm 0 6mm 0; }
  .overview .disclaimer { font-size: 12px; line-height: 1.6; color: #444; max-width: 150mm; }
  .content pre { font-size: 11px; line-height: 1.45; white-space: pre-wrap; word-wrap: break-word; font-family: Georgia, serif; margin: 0; }
</style>
</head>
<body>
{{- $doc := . }}
{{- range .Pages }}
<div class="page {{ .Kind }}">
  <div class="head"><span class="brand">originality</span><span>{{ $doc.Meta.SubmissionID }}</span></div>
  {{- if eq .Kind "cover" }}
  <h1>{{ if eq $doc.Kind "ai" }}AI Writing Detection Report{{ else }}Similarity Report{{ end }}</h1>
  <table>
    <tr><td>Document</td><td>{{ .Cover.Filename }}</td></tr>
    <tr><td>Size</td><td>{{ fmtBytes .Cover.ByteSize }}</td></tr>
    <tr><td>Word count</td><td>{{ .Cover.WordCount }}</td></tr>
    <tr><td>Character count</td><td>{{ .Cover.CharCount }}</td></tr>
    <tr><td>Submitted</td><td>{{ $doc.Meta.CreatedAt.Format "2006-01-02 15:04 MST" }}</td></tr>
  </table>
  {{- else if eq .Kind "overview" }}
  <h2>{{ .Overview.Headline }}</h2>
  <div class="score">{{ fmtScore .Overview.Score }}</div>
  <p class="disclaimer">{{ .Overview.Disclaimer }}</p>
  {{- else }}
  <pre>{{ .Content.Content }}</pre>
  {{- end }}
  <div class="foot"><span>{{ $doc.Meta.Filename }}</span><span>Page {{ .Number }} of {{ .TotalPages }}</span></div>
</div>
{{- end }}
</body>
</html>
`))

// HTML rendert das Dokumentmodell in die HTML-Form, die die Render-Engine
// in das paginierte PDF druckt.
func HTML(doc *Document) (string, error) {
	var sb strings.Builder
	if err := reportTmpl.Execute(&sb, doc); err != nil {
		return "", fmt.Errorf("report template: %w", err)
	}
	return sb.String(), nil
}
