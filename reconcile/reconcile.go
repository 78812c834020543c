// Package reconcile implements the reconciliation stage of a bundlesync run:
// it rebuilds the previous run's bundles, applies translator edits from
// XLIFF documents on top of them, and restores the known translations into
// freshly regenerated component fragments.
//
// Usage:
//
//	st := reconcile.New(codec, reconcile.Options{})
//	for _, it := range items {
//	    st.Feed(it)
//	}
//	items, err := st.Finish(ctx)
//
// Finish processes the whole queue in passes (bundles, then XLIFF
// documents, then fragments), so the result does not depend on the order in
// which items were fed. Items are returned in arrival order; only their
// Content may have changed.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/bundlesync/bundle"
	"github.com/minios-linux/bundlesync/item"
)

// Parser parses an XLIFF document on top of a base bundle. Parse must not
// modify base. A Parse call that outlives its context is abandoned: the
// stage stops waiting for it and reports the context error.
type Parser interface {
	Parse(ctx context.Context, data []byte, base *bundle.Bundle) (*bundle.Bundle, error)
}

// Options configure the stage.
type Options struct {
	// MaxConcurrent bounds concurrent XLIFF parses (default 4).
	MaxConcurrent int
	// Timeout bounds each XLIFF parse. Zero means no deadline.
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

// Stage buffers items until Finish.
type Stage struct {
	parser Parser
	opts   Options

	queue []*item.Item
	prior bundle.Set
}

// New creates a stage with an empty prior bundle set.
func New(parser Parser, opts Options) *Stage {
	return &Stage{
		parser: parser,
		opts:   opts,
		prior:  bundle.Set{},
	}
}

// Feed queues an item.
func (s *Stage) Feed(it *item.Item) {
	s.queue = append(s.queue, it)
}

// Prior returns the reconciled bundles of the previous run. It is complete
// once Finish has returned.
func (s *Stage) Prior() bundle.Set {
	return s.prior
}

// Finish reconciles the queued items and returns them in arrival order.
// Malformed bundles, fragments or XLIFF documents abort the run.
func (s *Stage) Finish(ctx context.Context) ([]*item.Item, error) {
	bundleItems := make(map[string]*item.Item)

	// Previous bundles.
	for _, it := range s.queue {
		switch it.Class.Kind {
		case item.KindDefaultBundle, item.KindLangBundle:
			b, err := bundle.Parse(it.Content)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", it.Path, err)
			}
			s.prior[it.Class.Lang] = b
			bundleItems[it.Class.Lang] = it
		}
	}

	// Translator edits take precedence over the bundles.
	if err := s.importInterchange(ctx, bundleItems); err != nil {
		return nil, err
	}

	// Restore translations into regenerated fragments.
	rewritten := 0
	for _, it := range s.queue {
		if it.Class.Kind != item.KindFragment {
			continue
		}
		if _, err := bundle.ParseValue(it.Content); err != nil {
			return nil, fmt.Errorf("%s: %w", it.Path, err)
		}
		if it.Class.Lang == "" {
			continue
		}
		v, ok := s.prior[it.Class.Lang].Get(it.Class.Component)
		if !ok {
			continue
		}
		data, err := bundle.MarshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", it.Path, err)
		}
		it.Content = data
		rewritten++
	}
	if rewritten > 0 {
		s.opts.log("restored %d fragments from previous bundles", rewritten)
	}

	out := make([]*item.Item, len(s.queue))
	copy(out, s.queue)
	s.queue = nil
	return out, nil
}

// importInterchange parses every XLIFF document concurrently against the
// previous bundle of its language, then applies the results in arrival
// order: the merged bundle replaces the prior one and is serialized into the
// language's bundle item.
func (s *Stage) importInterchange(ctx context.Context, bundleItems map[string]*item.Item) error {
	var docs []*item.Item
	for _, it := range s.queue {
		if it.Class.Kind == item.KindInterchange {
			docs = append(docs, it)
		}
	}
	if len(docs) == 0 {
		return nil
	}

	results := make([]*bundle.Bundle, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.effectiveMaxConcurrent())
	for i, doc := range docs {
		i, doc := i, doc
		base := s.prior[doc.Class.Lang]
		g.Go(func() error {
			pctx := gctx
			if s.opts.Timeout > 0 {
				var cancel context.CancelFunc
				pctx, cancel = context.WithTimeout(gctx, s.opts.Timeout)
				defer cancel()
			}
			b, err := parseBounded(pctx, s.parser, doc.Content, base)
			if err != nil {
				return fmt.Errorf("%s: %w", doc.Path, err)
			}
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, doc := range docs {
		lang := doc.Class.Lang
		s.prior[lang] = results[i]
		if bi := bundleItems[lang]; bi != nil {
			data, err := results[i].Marshal()
			if err != nil {
				return fmt.Errorf("%s: %w", bi.Path, err)
			}
			bi.Content = data
		}
	}
	s.opts.log("imported %d XLIFF documents", len(docs))
	return nil
}

type parseResult struct {
	b   *bundle.Bundle
	err error
}

// parseBounded runs p.Parse and returns early when ctx ends, even if the
// parser does not watch ctx itself.
func parseBounded(ctx context.Context, p Parser, data []byte, base *bundle.Bundle) (*bundle.Bundle, error) {
	done := make(chan parseResult, 1)
	go func() {
		b, err := p.Parse(ctx, data, base)
		done <- parseResult{b, err}
	}()
	select {
	case r := <-done:
		return r.b, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
