// bundlesync — keeps component locale fragments, consolidated JSON bundles
// and XLIFF documents for translators in sync.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/minios-linux/bundlesync/bundle"
	"github.com/minios-linux/bundlesync/config"
	"github.com/minios-linux/bundlesync/fsio"
	"github.com/minios-linux/bundlesync/i18n"
	"github.com/minios-linux/bundlesync/item"
	"github.com/minios-linux/bundlesync/langmeta"
	"github.com/minios-linux/bundlesync/lockfile"
	"github.com/minios-linux/bundlesync/pipeline"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var (
	rootDir string
	uiLang  string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bundlesync",
		Short: "Synchronize locale fragments, JSON bundles and XLIFF files",
		Long: `bundlesync — keeps per-component locale fragments, consolidated
per-language JSON bundles and XLIFF documents for translators in sync.

Layout (relative to the source root):
  bundle.json                          default-language bundle
  locales/bundle.<lang>.json           per-language bundle
  xliff/bundle.<lang>.xlf              XLIFF document for translators
  <elements>/**/locales/<c>.<lang>.json  component fragments

Commands:
  sync        Reconcile fragments with bundles/XLIFF and write everything back
  export      Like sync, but only write bundles and XLIFF documents
  status      Show per-language translation statistics`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if uiLang != "" {
				i18n.Init(uiLang)
			}
		},
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&uiLang, "lang", "",
		"Language of bundlesync's own messages (available: "+strings.Join(i18n.Available(), ", ")+")")

	root.AddCommand(
		newSyncCmd(),
		newExportCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bundlesync version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// sync / export
// ---------------------------------------------------------------------------

type syncArgs struct {
	dryRun      bool
	dest        string
	sourceLang  string
	timeout     time.Duration
	bundlesOnly bool
}

func addSyncFlags(cmd *cobra.Command, a *syncArgs) {
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Show what would be written without writing")
	cmd.Flags().StringVar(&a.dest, "dest", "", "Output root (default: source root)")
	cmd.Flags().StringVar(&a.sourceLang, "source-lang", "", "Source language code (default from config, \"en\")")
	cmd.Flags().DurationVar(&a.timeout, "timeout", 0, "Deadline for each XLIFF parse/conversion")
}

func newSyncCmd() *cobra.Command {
	var a syncArgs
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile fragments with bundles and XLIFF, then write all results",
		Long: `Reads the previous bundles and XLIFF documents, restores known
translations into regenerated component fragments, rebuilds the bundles and
exports one XLIFF document per target language.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), a)
		},
	}
	addSyncFlags(cmd, &a)
	return cmd
}

func newExportCmd() *cobra.Command {
	a := syncArgs{bundlesOnly: true}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Rebuild bundles and XLIFF documents without touching fragments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), a)
		},
	}
	addSyncFlags(cmd, &a)
	return cmd
}

func loadConfig(a syncArgs) (*config.Config, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	if a.sourceLang != "" {
		cfg.SourceLang = a.sourceLang
	}
	if a.timeout > 0 {
		cfg.Timeout = a.timeout
	}
	if a.dest != "" {
		dest, err := filepath.Abs(a.dest)
		if err != nil {
			return nil, err
		}
		cfg.Dest = dest
	}
	return cfg, nil
}

func runSync(ctx context.Context, a syncArgs) error {
	cfg, err := loadConfig(a)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	items, err := fsio.Collect(cfg.SrcPath, cfg.ElementsFilter())
	if err != nil {
		return err
	}
	logInfo(i18n.N("Collected %d file from %s", "Collected %d files from %s", len(items)), len(items), cfg.SrcPath)

	lock := lockfile.New()
	if cfg.UseLock {
		if lock, err = lockfile.Load(cfg.Root); err != nil {
			return err
		}
	}

	res, err := pipeline.Run(ctx, items, pipeline.Config{
		SourceLang:    cfg.SourceLang,
		Root:          cfg.SrcPath,
		MaxConcurrent: cfg.MaxConcurrent,
		Timeout:       cfg.Timeout,
		XLIFF:         cfg.XLIFF,
		Lock:          lock,
		Log:           logInfo,
	})
	if err != nil {
		return err
	}

	for _, s := range res.Stats() {
		lang := s.Lang
		if lang == "" {
			lang = cfg.SourceLang
		}
		logInfo("%s: %d/%d translated", lang, s.Translated, s.Total)
	}

	out := res.Items
	if a.bundlesOnly {
		out = bundleItems(out)
	}

	if a.dryRun {
		for _, it := range out {
			fmt.Println(it.Path)
		}
		logInfo(i18n.N("Dry run: %d file not written", "Dry run: %d files not written", len(out)), len(out))
		return nil
	}

	n, err := fsio.Write(cfg.Dest, out)
	if err != nil {
		return err
	}
	logSuccess(i18n.N("Wrote %d file to %s", "Wrote %d files to %s", n), n, cfg.Dest)
	if cfg.UseLock {
		if err := lock.Save(); err != nil {
			return err
		}
		logInfo("Lock file %s: %s", lock.Path(), lock.Summary())
	}
	return nil
}

func bundleItems(items []*item.Item) []*item.Item {
	var out []*item.Item
	for _, it := range items {
		if it.Class.IsBundleFile() {
			out = append(out, it)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-language translation statistics",
		Long: `Reads the consolidated bundles and prints how many strings each
language has translated. Does not modify any files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

type langRow struct {
	lang         string
	total        int
	translated   int
	bundleExists bool
}

func runStatus() error {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}

	def, err := readBundle(filepath.Join(cfg.SrcPath, item.BundlePath("")))
	if err != nil {
		return err
	}
	if def == nil {
		logWarning("No %s found in %s; run 'bundlesync sync' first", item.BundlePath(""), cfg.SrcPath)
		return nil
	}

	if lock, err := lockfile.Load(cfg.Root); err == nil {
		if components, leaves := lock.Stats(); components > 0 {
			logInfo("Lock file tracks %d components, %d strings", components, leaves)
		}
	}

	srcTotal, _, _ := def.Stats()
	rows := []langRow{{lang: cfg.SourceLang, total: srcTotal, translated: srcTotal, bundleExists: true}}
	for _, lang := range config.DetectLanguages(cfg.SrcPath) {
		b, err := readBundle(filepath.Join(cfg.SrcPath, filepath.FromSlash(item.BundlePath(lang))))
		if err != nil {
			return err
		}
		row := langRow{lang: lang, total: srcTotal}
		if b != nil {
			_, row.translated, _ = b.Stats()
			row.bundleExists = true
		}
		rows = append(rows, row)
	}

	fmt.Fprintln(os.Stderr, renderStatus(rows))
	return nil
}

func readBundle(path string) (*bundle.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	b, err := bundle.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	codeStyle   = lipgloss.NewStyle().Width(8)
	nameStyle   = lipgloss.NewStyle().Width(22)
	countStyle  = lipgloss.NewStyle().Width(12).Align(lipgloss.Right)
	missStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func renderStatus(rows []langRow) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(i18n.T("Translations")))
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("─", 60))
	b.WriteByte('\n')

	for _, r := range rows {
		meta := langmeta.Resolve(r.lang)
		name := strings.TrimSpace(meta.Flag + " " + meta.Name)
		line := codeStyle.Render(r.lang) + nameStyle.Render(name) +
			countStyle.Render(fmt.Sprintf("%d/%d", r.translated, r.total)) + "  " +
			progressBar(percent(r.translated, r.total), 20)
		if !r.bundleExists {
			line += " " + missStyle.Render(i18n.T("(no bundle)"))
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func percent(n, total int) int {
	if total == 0 {
		return 100
	}
	return n * 100 / total
}

// progressBar renders a colored bar followed by a right-aligned percentage.
func progressBar(pct, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100

	color := colorRed
	switch {
	case pct >= 100:
		color = colorGreen
	case pct >= 50:
		color = colorYellow
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s%s%s %3d%%", color, bar, colorReset, pct)
}
