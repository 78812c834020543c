// Package consolidate implements the export stage of a bundlesync run: once
// the bundle set is complete it emits one consolidated JSON bundle per
// language and one XLIFF document per target language, replacing the stale
// bundle files that were passed through.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/bundlesync/bundle"
	"github.com/minios-linux/bundlesync/item"
)

// ErrConversion is returned when a bundle set cannot be rendered to XLIFF.
var ErrConversion = errors.New("XLIFF conversion failed")

// Renderer converts the bundle set into an XLIFF document for one target
// language. Render must only read the set. A Render call that outlives its
// context is abandoned and the language fails with the context error.
type Renderer interface {
	Render(ctx context.Context, set bundle.Set, srcLang, dstLang string) ([]byte, error)
}

// Options configure the stage.
type Options struct {
	// SourceLang is the language of the default bundle (default "en").
	SourceLang string
	// Root is used for emitted items when no item was fed.
	Root string
	// MaxConcurrent bounds concurrent conversions (default 4).
	MaxConcurrent int
	// Timeout bounds each conversion. Zero means no deadline.
	Timeout time.Duration
	// Log receives progress messages. Nil disables logging.
	Log func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.Log != nil {
		o.Log(format, args...)
	}
}

func (o *Options) effectiveMaxConcurrent() int {
	if o.MaxConcurrent <= 0 {
		return 4
	}
	return o.MaxConcurrent
}

func (o *Options) effectiveSourceLang() string {
	if o.SourceLang == "" {
		return "en"
	}
	return o.SourceLang
}

// Stage buffers passthrough items until Finish.
type Stage struct {
	set      bundle.Set
	renderer Renderer
	opts     Options

	queue []*item.Item
}

// New creates a stage reading from set. The set must not be read before
// the producer has finished writing it; Finish is the only reader.
func New(set bundle.Set, renderer Renderer, opts Options) *Stage {
	return &Stage{set: set, renderer: renderer, opts: opts}
}

// Feed queues a passthrough item.
func (s *Stage) Feed(it *item.Item) {
	s.queue = append(s.queue, it)
}

// Finish emits the passthrough items (without stale bundle files), then a
// bundle item per language and an XLIFF item per target language.
//
// A failed conversion does not stop the other languages: every item that
// could be produced is returned together with an error wrapping
// ErrConversion for each failed language.
func (s *Stage) Finish(ctx context.Context) ([]*item.Item, error) {
	root := s.opts.Root
	if len(s.queue) > 0 {
		root = s.queue[0].Root
	}

	var out []*item.Item
	for _, it := range s.queue {
		if it.Class.IsBundleFile() {
			continue
		}
		out = append(out, it)
	}
	s.queue = nil

	langs := s.set.Languages()
	for _, lang := range langs {
		b := s.set[lang]
		b.Consolidated = true
		data, err := b.Marshal()
		if err != nil {
			return out, fmt.Errorf("bundle %q: %w", lang, err)
		}
		out = append(out, item.New(root, item.BundlePath(lang), data, ""))
	}

	var targets []string
	for _, lang := range langs {
		if lang != "" {
			targets = append(targets, lang)
		}
	}

	docs := make([][]byte, len(targets))
	errs := make([]error, len(targets))
	// No shared context: one failing language must not cancel the others.
	var g errgroup.Group
	g.SetLimit(s.opts.effectiveMaxConcurrent())
	for i, lang := range targets {
		i, lang := i, lang
		g.Go(func() error {
			cctx := ctx
			if s.opts.Timeout > 0 {
				var cancel context.CancelFunc
				cctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
				defer cancel()
			}
			doc, err := s.renderBounded(cctx, lang)
			if err != nil {
				errs[i] = fmt.Errorf("%w for %s: %w", ErrConversion, lang, err)
				return errs[i]
			}
			docs[i] = doc
			return nil
		})
	}
	failed := g.Wait() != nil

	for i, lang := range targets {
		if errs[i] != nil {
			continue
		}
		out = append(out, item.New(root, item.InterchangePath(lang), docs[i], ""))
	}
	s.opts.log("exported %d bundles and %d XLIFF documents", len(langs), len(targets))

	if !failed {
		return out, nil
	}
	return out, errors.Join(errs...)
}

type renderResult struct {
	doc []byte
	err error
}

// renderBounded runs the renderer and returns early when ctx ends, even if
// the renderer does not watch ctx itself.
func (s *Stage) renderBounded(ctx context.Context, lang string) ([]byte, error) {
	done := make(chan renderResult, 1)
	go func() {
		doc, err := s.renderer.Render(ctx, s.set, s.opts.effectiveSourceLang(), lang)
		done <- renderResult{doc, err}
	}()
	select {
	case r := <-done:
		return r.doc, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
