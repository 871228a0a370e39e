// Package render kapselt die Render-Engine (Headless Chrome über go-rod)
// als scoped Ressource: Open → Render (beliebig oft) → Close. Die Session
// darf den Browser-Prozess auf keinem Ausstiegspfad leaken.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

var (
	// ErrEngineStart: der Browser-Prozess konnte nicht gestartet oder
	// verbunden werden.
	ErrEngineStart = errors.New("render engine start failed")

	// ErrRenderFailed: die Konvertierung eines Dokuments ist auch nach dem
	// Retry mit frischem Seitenkontext fehlgeschlagen.
	ErrRenderFailed = errors.New("render failed")
)

// Options konfiguriert die Session.
type Options struct {
	// RemoteURL ist die WebSocket-URL eines externen Chrome.
	// Leer = lokalen Chrome über den Launcher starten.
	RemoteURL string

	Logger *zap.Logger
}

// Session ist eine geöffnete Render-Engine-Instanz. Eine Session bedient
// beide Report-Varianten einer Submission (einmal öffnen, zweimal rendern,
// einmal schließen); Fehler einzelner Render-Aufrufe vergiften die Session
// nicht.
type Session struct {
	browser *rod.Browser
	lnch    *launcher.Launcher
	log     *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Open startet den Browser (oder verbindet sich mit einem externen) und
// gibt die Session zurück. Der Aufrufer muss Close aufrufen.
func Open(ctx context.Context, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var wsURL string
	var lnch *launcher.Launcher

	if opts.RemoteURL != "" {
		wsURL = opts.RemoteURL
		log.Info("Render-Engine: verbinde mit externem Chrome", zap.String("url", wsURL))
	} else {
		l := launcher.New().Headless(true)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("%w: launch: %v", ErrEngineStart, err)
		}
		wsURL = u
		lnch = l
		log.Info("Render-Engine: lokaler Chrome gestartet", zap.String("url", wsURL))
	}

	browser := rod.New().ControlURL(wsURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		if lnch != nil {
			lnch.Cleanup()
		}
		return nil, fmt.Errorf("%w: connect: %v", ErrEngineStart, err)
	}

	return &Session{browser: browser, lnch: lnch, log: log}, nil
}

// Render druckt ein HTML-Dokument in das paginierte PDF-Format. Jeder
// Aufruf bekommt eine frische Seite; schlägt der Druck fehl, wird genau
// einmal mit einem neuen Seitenkontext wiederholt.
func (s *Session) Render(ctx context.Context, html string) ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: session already closed", ErrRenderFailed)
	}
	s.mu.Unlock()

	pdf, err := s.renderOnce(ctx, html)
	if err == nil {
		return pdf, nil
	}
	s.log.Warn("Render fehlgeschlagen, wiederhole mit frischer Seite", zap.Error(err))

	pdf, err = s.renderOnce(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return pdf, nil
}

func (s *Session) renderOnce(ctx context.Context, html string) ([]byte, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}

	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	return pdf, nil
}

// Close gibt den Browser-Prozess und den Launcher frei. Idempotent;
// sicher nach fehlgeschlagenen Render-Aufrufen.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	if err := s.browser.Close(); err != nil {
		s.log.Warn("Render-Engine: Browser-Close fehlgeschlagen", zap.Error(err))
	}
	if s.lnch != nil {
		// Kill fängt den Fall ab, dass Browser.Close am abgebrochenen
		// Request-Kontext scheitert — der Prozess darf nicht überleben.
		s.lnch.Kill()
		s.lnch.Cleanup()
	}
	s.log.Info("Render-Engine geschlossen")
}
