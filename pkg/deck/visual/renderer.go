package visual

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/benjaminschreck/go-deck/pkg/deck"
)

// Option configures a Renderer
type Option func(*Renderer)

// WithViewport sets the screenshot size in CSS pixels
func WithViewport(width, height int) Option {
	return func(r *Renderer) {
		r.width = width
		r.height = height
	}
}

// WithTimeout bounds a single render
func WithTimeout(timeout time.Duration) Option {
	return func(r *Renderer) {
		r.timeout = timeout
	}
}

// WithSettle sets how long the page may settle (fonts, CSS) before the capture
func WithSettle(settle time.Duration) Option {
	return func(r *Renderer) {
		r.settle = settle
	}
}

// WithChromePath uses a specific Chrome/Chromium binary
func WithChromePath(path string) Option {
	return func(r *Renderer) {
		r.chromePath = path
	}
}

// WithTokens injects design tokens into every template
func WithTokens(tokens *Tokens) Option {
	return func(r *Renderer) {
		r.tokens = tokens
	}
}

// WithTemplateDir overrides built-in templates with <dir>/<kind>.html
func WithTemplateDir(dir string) Option {
	return func(r *Renderer) {
		r.templateDir = dir
	}
}

// WithWorkDir sets where intermediate HTML files are written
func WithWorkDir(dir string) Option {
	return func(r *Renderer) {
		r.workDir = dir
	}
}

// WithLogger sets the renderer's logger
func WithLogger(logger *deck.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// Renderer turns HTML templates into PNG screenshots with headless Chrome.
// One browser is started on first use and shared by all renders; each render
// gets its own tab, so Render is safe for concurrent use.
type Renderer struct {
	width       int
	height      int
	timeout     time.Duration
	settle      time.Duration
	chromePath  string
	tokens      *Tokens
	templateDir string
	workDir     string
	logger      *deck.Logger

	startOnce     sync.Once
	startErr      error
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// NewRenderer creates a renderer using the global configuration as defaults
func NewRenderer(opts ...Option) *Renderer {
	config := deck.GetGlobalConfig()
	r := &Renderer{
		width:       config.Renderer.ViewportWidth,
		height:      config.Renderer.ViewportHeight,
		timeout:     config.RenderTimeout(),
		settle:      time.Duration(config.Renderer.SettleMillis) * time.Millisecond,
		chromePath:  config.Renderer.ChromePath,
		templateDir: config.Paths.VisualsDir,
		logger:      deck.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Viewport returns the screenshot size
func (r *Renderer) Viewport() (int, int) {
	return r.width, r.height
}

func (r *Renderer) start() error {
	r.startOnce.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.WindowSize(r.width, r.height),
			chromedp.NoSandbox,
			chromedp.Flag("hide-scrollbars", true),
		)
		if r.chromePath != "" {
			opts = append(opts, chromedp.ExecPath(r.chromePath))
		}

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

		// the first Run launches the browser
		if err := chromedp.Run(browserCtx); err != nil {
			cancelBrowser()
			cancelAlloc()
			r.startErr = fmt.Errorf("%w: start browser: %v", deck.ErrRenderFailure, err)
			return
		}
		r.logger.Debug("headless browser started (%dx%d)", r.width, r.height)
		r.browserCtx = browserCtx
		r.cancelBrowser = cancelBrowser
		r.cancelAlloc = cancelAlloc
	})
	return r.startErr
}

// Close shuts the browser down
func (r *Renderer) Close() {
	if r.cancelBrowser != nil {
		r.cancelBrowser()
		r.cancelAlloc()
	}
}

// Render executes htmlTemplate against data and returns a PNG screenshot of
// the configured viewport. Every failure is reported as deck.ErrRenderFailure.
func (r *Renderer) Render(ctx context.Context, htmlTemplate string, data any) ([]byte, error) {
	html, err := BuildHTML(htmlTemplate, r.tokens, r.width, r.height, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", deck.ErrRenderFailure, err)
	}
	return r.RenderHTML(ctx, html)
}

// RenderKind renders the template registered for kind
func (r *Renderer) RenderKind(ctx context.Context, kind string, data any) ([]byte, error) {
	source, err := TemplateSource(r.templateDir, kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", deck.ErrRenderFailure, err)
	}
	return r.Render(ctx, source, data)
}

// RenderHTML screenshots a complete HTML document
func (r *Renderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", deck.ErrRenderFailure, err)
	}

	htmlPath, err := r.writePage(html)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", deck.ErrRenderFailure, err)
	}
	defer os.Remove(htmlPath)

	if err := r.start(); err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	started := time.Now()
	var png []byte
	err = chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(r.width), int64(r.height)),
		chromedp.Navigate("file://"+filepath.ToSlash(htmlPath)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.settle),
		chromedp.CaptureScreenshot(&png),
	)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", deck.ErrRenderFailure, err)
	}

	r.logger.WithFields(deck.Fields{
		"bytes":    len(png),
		"duration": time.Since(started).Round(time.Millisecond).String(),
	}).Debug("visual rendered")
	return png, nil
}

func (r *Renderer) writePage(html string) (string, error) {
	dir := r.workDir
	if dir == "" {
		dir = os.TempDir()
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "visual-*.html")
	if err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	if _, err := f.WriteString(html); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write page: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write page: %w", err)
	}
	abs, err := filepath.Abs(f.Name())
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return abs, nil
}
