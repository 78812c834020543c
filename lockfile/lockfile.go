// Package lockfile implements bundlesync.lock — a lock file that tracks
// MD5 checksums of source-language strings per component. On the next run
// the leverage step compares the current source text with the recorded
// checksum: a translation whose source string changed is reset so that it
// shows up as untranslated again.
//
// The lock file is stored in the project root as bundlesync.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "bundlesync.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the bundlesync.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // component -> leaf id -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// New returns an empty lock file that is not backed by a path. Save fails
// on it; it is meant for dry runs and tests.
func New() *LockFile {
	return &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
	}
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := New()
	lf.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported lock file version %d", path, lf.Version)
	}
	lf.path = path

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// SourceChanged reports whether a source string differs from the one
// recorded on the previous run. Strings never recorded are not "changed":
// there is no earlier translation to invalidate.
func (lf *LockFile) SourceChanged(component, leaf, source string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	old, ok := lf.Checksums[component][leaf]
	return ok && old != Hash(source)
}

// Record replaces the checksums of a component with the given
// leaf -> source string entries.
func (lf *LockFile) Record(component string, entries map[string]string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	sums := make(map[string]string, len(entries))
	for leaf, source := range entries {
		sums[leaf] = Hash(source)
	}
	lf.Checksums[component] = sums
}

// Clean removes components that are no longer present. This prevents stale
// entries from accumulating.
func (lf *LockFile) Clean(current []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	valid := make(map[string]bool, len(current))
	for _, c := range current {
		valid[c] = true
	}
	for c := range lf.Checksums {
		if !valid[c] {
			delete(lf.Checksums, c)
		}
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of components and total leaves in the lock file.
func (lf *LockFile) Stats() (components, leaves int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	components = len(lf.Checksums)
	for _, m := range lf.Checksums {
		leaves += len(m)
	}
	return
}

// Components returns the sorted list of recorded components.
func (lf *LockFile) Components() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	out := make([]string, 0, len(lf.Checksums))
	for c := range lf.Checksums {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	components, leaves := lf.Stats()
	if components == 0 {
		return "empty"
	}

	var parts []string
	for _, c := range lf.Components() {
		lf.mu.Lock()
		n := len(lf.Checksums[c])
		lf.mu.Unlock()
		parts = append(parts, fmt.Sprintf("%s: %d strings", c, n))
	}
	return fmt.Sprintf("%d components, %d strings (%s)", components, leaves, strings.Join(parts, ", "))
}
