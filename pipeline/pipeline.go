// Package pipeline runs one complete bundlesync pass over a set of items:
// reconciliation, leverage and consolidation. All state (previous bundles,
// the bundle set being built) is created per run and handed explicitly to
// each stage.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/minios-linux/bundlesync/bundle"
	"github.com/minios-linux/bundlesync/consolidate"
	"github.com/minios-linux/bundlesync/item"
	"github.com/minios-linux/bundlesync/leverage"
	"github.com/minios-linux/bundlesync/lockfile"
	"github.com/minios-linux/bundlesync/reconcile"
	"github.com/minios-linux/bundlesync/xliff"
)

// Config configures a run.
type Config struct {
	// SourceLang is the language of the default bundle (default "en").
	SourceLang string
	// Root is the owning directory of emitted items when none were given.
	Root string
	// MaxConcurrent bounds concurrent XLIFF parses and conversions.
	MaxConcurrent int
	// Timeout bounds each XLIFF parse or conversion.
	Timeout time.Duration
	// XLIFF is passed through to the codec.
	XLIFF xliff.Options
	// Lock tracks source strings between runs. Nil disables change detection.
	Lock *lockfile.LockFile
	// Log receives progress messages. Nil disables logging.
	Log func(format string, args ...any)
}

// LangStats describes one language of the resulting bundle set.
type LangStats struct {
	Lang         string
	Total        int
	Translated   int
	Untranslated int
}

// Result is the outcome of a run.
type Result struct {
	// Items are the items to persist, in emission order.
	Items []*item.Item
	// Bundles is the bundle set built during the run.
	Bundles bundle.Set
	// Leverage reports what leverage changed in the fragments.
	Leverage leverage.Report
}

// Stats returns per-language statistics, default language first.
func (r *Result) Stats() []LangStats {
	var out []LangStats
	for _, lang := range r.Bundles.Languages() {
		total, translated, untranslated := r.Bundles[lang].Stats()
		out = append(out, LangStats{
			Lang:         lang,
			Total:        total,
			Translated:   translated,
			Untranslated: untranslated,
		})
	}
	return out
}

// Run executes one pass. On error the returned result may hold the items
// produced so far; they must not be persisted.
func Run(ctx context.Context, items []*item.Item, cfg Config) (*Result, error) {
	codec := xliff.New(cfg.XLIFF)

	rec := reconcile.New(codec, reconcile.Options{
		MaxConcurrent: cfg.MaxConcurrent,
		Timeout:       cfg.Timeout,
		Log:           cfg.Log,
	})
	for _, it := range items {
		rec.Feed(it)
	}
	reconciled, err := rec.Finish(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconciling: %w", err)
	}

	set := bundle.Set{}
	lev := leverage.New(set, cfg.Lock, leverage.Options{Log: cfg.Log})
	cons := consolidate.New(set, codec, consolidate.Options{
		SourceLang:    cfg.SourceLang,
		Root:          cfg.Root,
		MaxConcurrent: cfg.MaxConcurrent,
		Timeout:       cfg.Timeout,
		Log:           cfg.Log,
	})
	for _, it := range reconciled {
		if err := lev.Observe(it); err != nil {
			return nil, fmt.Errorf("leveraging: %w", err)
		}
		cons.Feed(it)
	}

	rep, err := lev.Complete()
	if err != nil {
		return nil, fmt.Errorf("leveraging: %w", err)
	}

	out, err := cons.Finish(ctx)
	res := &Result{Items: out, Bundles: set, Leverage: rep}
	if err != nil {
		return res, fmt.Errorf("exporting: %w", err)
	}
	return res, nil
}
