package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/benjaminschreck/go-deck/pkg/deck"
	"github.com/benjaminschreck/go-deck/pkg/deck/gamma"
	"github.com/benjaminschreck/go-deck/pkg/deck/render"
)

// ImageRenderer renders a visual kind to PNG bytes
type ImageRenderer interface {
	RenderKind(ctx context.Context, kind string, data any) ([]byte, error)
}

// Generator produces presentations with the content-generation service
type Generator interface {
	GenerateAndWait(ctx context.Context, req gamma.GenerateRequest) (gamma.GenerationStatus, error)
	TemplateAndWait(ctx context.Context, req gamma.TemplateRequest) (gamma.GenerationStatus, error)
	Download(ctx context.Context, exportURL, dest string) (string, error)
}

// Option configures a Runner
type Option func(*Runner)

// WithRenderer sets the image renderer used for page visuals
func WithRenderer(r ImageRenderer) Option {
	return func(rn *Runner) {
		rn.renderer = r
	}
}

// WithGenerator sets the client used for dynamic pages
func WithGenerator(g Generator) Option {
	return func(rn *Runner) {
		rn.generator = g
	}
}

// WithCache shares a fragment cache between runs
func WithCache(cache *deck.FragmentCache) Option {
	return func(rn *Runner) {
		rn.cache = cache
	}
}

// WithConcurrency limits parallel renders and generations
func WithConcurrency(n int) Option {
	return func(rn *Runner) {
		rn.concurrency = n
	}
}

// WithWorkDir sets where generated presentations are downloaded
func WithWorkDir(dir string) Option {
	return func(rn *Runner) {
		rn.workDir = dir
	}
}

// WithComposerOptions passes options to the composition engine
func WithComposerOptions(opts ...deck.ComposerOption) Option {
	return func(rn *Runner) {
		rn.composerOpts = append(rn.composerOpts, opts...)
	}
}

// WithLogger sets the runner's logger
func WithLogger(logger *deck.Logger) Option {
	return func(rn *Runner) {
		rn.logger = logger
	}
}

// Runner executes plans
type Runner struct {
	renderer     ImageRenderer
	generator    Generator
	cache        *deck.FragmentCache
	concurrency  int
	workDir      string
	composerOpts []deck.ComposerOption
	logger       *deck.Logger
}

// NewRunner creates a runner with defaults from the global configuration
func NewRunner(opts ...Option) *Runner {
	config := deck.GetGlobalConfig()
	r := &Runner{
		concurrency: config.Renderer.Concurrency,
		workDir:     config.Paths.WorkDir,
		logger:      deck.GetLogger(),
		composerOpts: []deck.ComposerOption{
			deck.WithSections(config.Compose.Sections),
			deck.WithSizeHarmonization(config.Compose.HarmonizeSize),
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = deck.NewFragmentCache()
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	return r
}

// Result summarises a run
type Result struct {
	OutputPath string
	Fixed      int
	Dynamic    int
	Slides     int
	// Skipped names the optional pages left out
	Skipped []string
	// Errors collects the failures of skipped pages
	Errors error
}

// prepared is the outcome of the concurrent stage for one page
type prepared struct {
	image []byte
	// path of a downloaded dynamic presentation
	path string
	// set when a generated page produced no export
	empty bool
	err   error
}

// Run renders, substitutes and composes the plan's pages and writes the deck
// to plan.OutputPath. A failing optional page is skipped and reported in the
// result; any other failure aborts the run.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if plan.OutputPath == "" {
		return nil, errors.New("plan has no output path")
	}
	pages := plan.Ordered()

	prep, err := r.prepare(ctx, plan, pages)
	if err != nil {
		return nil, err
	}

	result := &Result{OutputPath: plan.OutputPath}
	skipped := deck.NewMultiError()
	substituter := deck.NewSubstituter(plan.Variables, deck.WithSubstituterLogger(r.logger))
	composer := deck.NewComposer(append(r.composerOpts, deck.WithComposerLogger(r.logger))...)

	for i, page := range pages {
		logger := r.logger.WithFields(deck.Fields{"page": page.Name, "priority": page.Priority})
		if err := prep[i].err; err != nil {
			if !page.Optional {
				return nil, err
			}
			logger.Warn("skipping optional page: %v", err)
			result.Skipped = append(result.Skipped, page.Name)
			skipped.Add(err)
			continue
		}
		if prep[i].empty {
			logger.Warn("generated page has no export, skipping")
			result.Skipped = append(result.Skipped, page.Name)
			continue
		}

		fragment, err := r.fragment(page, prep[i])
		if err == nil {
			err = substituter.Apply(fragment)
		}
		if err != nil {
			if !page.Optional {
				return nil, err
			}
			logger.Warn("skipping optional page: %v", err)
			result.Skipped = append(result.Skipped, page.Name)
			skipped.Add(err)
			continue
		}

		// the composer is shared state, so its errors always abort
		if err := composer.Append(fragment); err != nil {
			return nil, err
		}
		if page.Kind == KindDynamic {
			result.Dynamic++
		} else {
			result.Fixed++
		}
		logger.Debug("page composed")
	}

	if result.Fixed+result.Dynamic == 0 {
		return nil, fmt.Errorf("%w: no pages to compose", deck.ErrCompositionInvariantViolation)
	}
	if err := composer.WriteFile(plan.OutputPath); err != nil {
		return nil, err
	}
	result.Slides = composer.Pages()
	result.Errors = skipped.Err()

	r.logger.WithFields(deck.Fields{
		"output":  plan.OutputPath,
		"fixed":   result.Fixed,
		"dynamic": result.Dynamic,
		"slides":  result.Slides,
		"skipped": len(result.Skipped),
	}).Info("proposal written")
	return result, nil
}

// prepare renders visuals and generates dynamic pages concurrently. Failures
// of optional pages are recorded per page; a mandatory failure cancels the rest.
func (r *Runner) prepare(ctx context.Context, plan *Plan, pages []Page) ([]prepared, error) {
	prep := make([]prepared, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, page := range pages {
		if page.Kind == KindFixed && page.Visual == nil {
			continue
		}
		g.Go(func() error {
			var err error
			if page.Kind == KindDynamic {
				prep[i].path, err = r.generate(gctx, plan, page)
				prep[i].empty = err == nil && prep[i].path == ""
			} else {
				prep[i].image, err = r.renderVisual(gctx, page)
			}
			if err != nil {
				if page.Optional {
					prep[i].err = err
					return nil
				}
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prep, nil
}

func (r *Runner) renderVisual(ctx context.Context, page Page) ([]byte, error) {
	if r.renderer == nil {
		return nil, deck.NewFragmentError(page.Name, "render visual", page.Visual.Kind, deck.ErrRenderFailure,
			errors.New("no renderer configured"))
	}
	data, err := r.renderer.RenderKind(ctx, page.Visual.Kind, page.Visual.Data)
	if err != nil {
		return nil, deck.NewFragmentError(page.Name, "render visual", page.Visual.Kind, deck.ErrRenderFailure, err)
	}
	r.logger.WithFields(deck.Fields{"page": page.Name, "visual": page.Visual.Kind}).Debug("visual rendered")
	return data, nil
}

func (r *Runner) generate(ctx context.Context, plan *Plan, page Page) (string, error) {
	fail := func(err error) error {
		return deck.NewFragmentError(page.Name, "generate", page.Mode, deck.ErrExternalFragmentUnavailable, err)
	}
	if r.generator == nil {
		return "", fail(errors.New("no content generator configured"))
	}

	prompt := render.Substitute(page.Prompt, render.MapLookup(plan.Variables))
	var (
		status gamma.GenerationStatus
		err    error
	)
	if page.Mode == ModeTemplate {
		r.logger.WithFields(deck.Fields{"page": page.Name, "gammaId": page.GammaID}).Info("generating from template")
		status, err = r.generator.TemplateAndWait(ctx, gamma.TemplateRequest{
			GammaID:  page.GammaID,
			Prompt:   prompt,
			ExportAs: "pptx",
			ThemeID:  plan.ThemeID,
		})
	} else {
		r.logger.WithFields(deck.Fields{"page": page.Name, "cards": page.NumCards}).Info("generating")
		status, err = r.generator.GenerateAndWait(ctx, gamma.GenerateRequest{
			InputText: prompt,
			TextMode:  "generate",
			Format:    "presentation",
			NumCards:  page.NumCards,
			ExportAs:  "pptx",
			ThemeID:   plan.ThemeID,
		})
	}
	if err != nil {
		return "", fail(err)
	}
	if status.ExportURL == "" {
		return "", nil
	}

	dest := filepath.Join(r.workDir, fmt.Sprintf("%03d_%s.pptx", page.Priority, safeName(page.Name)))
	path, err := r.generator.Download(ctx, status.ExportURL, dest)
	if err != nil {
		return "", fail(err)
	}
	return path, nil
}

// fragment builds the page's fragment with its payloads attached
func (r *Runner) fragment(page Page, prep prepared) (*deck.Fragment, error) {
	var (
		f   *deck.Fragment
		err error
	)
	if page.Kind == KindDynamic {
		f, err = deck.LoadFragment(prep.path)
	} else {
		f, err = r.cache.Load(page.Template)
	}
	if err != nil {
		return nil, err
	}

	f.Name = page.Name
	f.Priority = page.Priority
	f.Optional = page.Optional
	f.Placeholders = page.Placeholders
	// a page with columns and no rows still clears the template's body rows
	if len(page.TableRows) > 0 || len(page.Columns) > 0 {
		f.Table = &deck.TablePayload{
			Rows:    page.TableRows,
			Columns: page.Columns,
			AutoFit: page.AutoFit,
		}
	}
	if prep.image != nil {
		f.Image = &deck.ImagePayload{Data: prep.image}
	}
	return f, nil
}

func safeName(name string) string {
	return strings.NewReplacer("/", "_", `\`, "_", " ", "_").Replace(name)
}
