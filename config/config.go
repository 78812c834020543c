// Package config — .bundlesync.yaml configuration file support.
//
// The configuration is optional. Values are resolved in this order, later
// sources winning:
//
//  1. built-in defaults
//  2. .bundlesync.yaml in the project root
//  3. a .env file in the project root and the process environment
//     (BUNDLESYNC_SOURCE_LANG, BUNDLESYNC_TIMEOUT, BUNDLESYNC_MAX_CONCURRENT)
//  4. command-line flags (applied by the caller)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/bundlesync/xliff"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .bundlesync.yaml structure.
type File struct {
	// SourceLang is the language of the default bundle (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// SrcPath is the source tree root relative to the project root (default ".").
	SrcPath string `yaml:"src_path,omitempty"`
	// ElementsDir restricts where fragments are recognized, relative to
	// SrcPath (default "src"). Use "." to accept fragments anywhere.
	ElementsDir string `yaml:"elements_dir,omitempty"`
	// Dest is the output root relative to the project root (default SrcPath).
	Dest string `yaml:"dest,omitempty"`
	// MaxConcurrent bounds concurrent XLIFF parses/conversions (default 4).
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`
	// Timeout is the deadline of a single XLIFF parse/conversion (default "2m").
	Timeout string `yaml:"timeout,omitempty"`
	// Lock enables bundlesync.lock (default true).
	Lock *bool `yaml:"lock,omitempty"`
	// XLIFF is passed through to the XLIFF codec.
	XLIFF xliff.Options `yaml:"xliff,omitempty"`
}

// FileName is the default config file name.
const FileName = ".bundlesync.yaml"

// Environment variables that override the file.
const (
	EnvSourceLang    = "BUNDLESYNC_SOURCE_LANG"
	EnvTimeout       = "BUNDLESYNC_TIMEOUT"
	EnvMaxConcurrent = "BUNDLESYNC_MAX_CONCURRENT"
)

// Defaults.
const (
	DefaultSourceLang    = "en"
	DefaultElementsDir   = "src"
	DefaultMaxConcurrent = 4
	DefaultTimeout       = 2 * time.Minute
)

// Config is the resolved configuration with absolute paths.
type Config struct {
	SourceLang    string
	Root          string // absolute project root
	SrcPath       string // absolute source tree root
	ElementsDir   string // relative to SrcPath, slash-separated
	Dest          string // absolute output root
	MaxConcurrent int
	Timeout       time.Duration
	UseLock       bool
	XLIFF         xliff.Options
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads .bundlesync.yaml and .env from rootDir, applies environment
// overrides and defaults, and validates the result. A missing file yields
// the defaults.
func Load(rootDir string) (*Config, error) {
	var f File

	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	envPath := filepath.Join(rootDir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		// Load does not override variables that are already set.
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envPath, err)
		}
	}
	if v := os.Getenv(EnvSourceLang); v != "" {
		f.SourceLang = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		f.Timeout = v
	}
	if v := os.Getenv(EnvMaxConcurrent); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", EnvMaxConcurrent, v)
		}
		f.MaxConcurrent = n
	}

	return f.Resolve(rootDir)
}

// Resolve applies defaults, validates the file and converts paths to
// absolute ones.
func (f *File) Resolve(rootDir string) (*Config, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SourceLang:    f.SourceLang,
		Root:          absRoot,
		ElementsDir:   f.ElementsDir,
		MaxConcurrent: f.MaxConcurrent,
		Timeout:       DefaultTimeout,
		UseLock:       f.Lock == nil || *f.Lock,
		XLIFF:         f.XLIFF,
	}

	if cfg.SourceLang == "" {
		cfg.SourceLang = DefaultSourceLang
	}
	if cfg.ElementsDir == "" {
		cfg.ElementsDir = DefaultElementsDir
	}
	cfg.ElementsDir = filepath.ToSlash(filepath.Clean(cfg.ElementsDir))
	if filepath.IsAbs(cfg.ElementsDir) {
		return nil, fmt.Errorf("elements_dir must be relative, got %q", f.ElementsDir)
	}

	switch {
	case cfg.MaxConcurrent == 0:
		cfg.MaxConcurrent = DefaultMaxConcurrent
	case cfg.MaxConcurrent < 0:
		return nil, fmt.Errorf("max_concurrent must be positive, got %d", cfg.MaxConcurrent)
	}

	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", f.Timeout, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("timeout must not be negative, got %s", d)
		}
		cfg.Timeout = d
	}

	srcPath := f.SrcPath
	if srcPath == "" {
		srcPath = "."
	}
	cfg.SrcPath = filepath.Join(absRoot, srcPath)

	cfg.Dest = cfg.SrcPath
	if f.Dest != "" {
		cfg.Dest = filepath.Join(absRoot, f.Dest)
	}

	return cfg, nil
}

// ElementsFilter returns the fragment directory restriction as understood
// by item.Classify ("" when fragments are accepted anywhere).
func (c *Config) ElementsFilter() string {
	if c.ElementsDir == "." {
		return ""
	}
	return c.ElementsDir
}
