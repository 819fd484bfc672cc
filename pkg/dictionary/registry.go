package dictionary

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// Registry loads each dictionary at most once per process and shares the
// loaded instance. It exclusively owns all Dictionary instances it hands
// out; callers hold non-owning references and must treat them as read-only.
//
// Loading a word list and building its spell backend is the expensive part
// of reconfiguration, so reordering an engine's active languages must go
// through the same registry rather than reloading.
type Registry struct {
	mu       sync.Mutex
	dirs     []string
	keep     map[string]string
	loaded   map[string]*Dictionary
	failures map[string]error
}

// NewRegistry creates a registry searching the given directories for
// word-list files named <language>.dic.
func NewRegistry(dirs ...string) *Registry {
	return &Registry{
		dirs:     dirs,
		keep:     make(map[string]string),
		loaded:   make(map[string]*Dictionary),
		failures: make(map[string]error),
	}
}

// SetKeepOverride replaces the built-in accent keep set for a language.
// Must be called before the first Get for that language to take effect.
func (r *Registry) SetKeepOverride(lang, keep string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keep[lang] = keep
}

// Get returns the shared Dictionary for name, loading it on first use.
// A load failure is remembered so every session sees the same degraded
// state instead of retrying the filesystem on each keystroke.
func (r *Registry) Get(name string) (*Dictionary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.loaded[name]; ok {
		return d, nil
	}
	if err, ok := r.failures[name]; ok {
		return nil, err
	}

	path, err := r.findWordList(name)
	if err == nil {
		var keep string
		if override, ok := r.keep[name]; ok {
			keep = override
		} else {
			keep = KeepSet(name)
		}
		var d *Dictionary
		d, err = Load(name, path, keep)
		if err == nil {
			r.loaded[name] = d
			return d, nil
		}
	}
	log.Warnf("Dictionary %s unavailable: %v", name, err)
	r.failures[name] = err
	return nil, err
}

// Loaded reports whether name has already been loaded successfully.
func (r *Registry) Loaded(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loaded[name]
	return ok
}

func (r *Registry) findWordList(name string) (string, error) {
	for _, dir := range r.dirs {
		path := filepath.Join(dir, name+".dic")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no word list %s.dic in %v", name, r.dirs)
}
