package presets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// InvalidateCallback is called after a watcher-driven store change. kind is
// one of "created", "updated", "deleted".
type InvalidateCallback func(kind string, name string)

// DirStore serves preset fragments from *.yml / *.yaml files in a single
// directory. The preset name is the file stem ("teaching.yml" → "teaching").
// A caller that caches parsed fragments registers an InvalidateCallback and
// drops the stale entry when the callback fires.
type DirStore struct {
	dir string

	mu      sync.RWMutex
	sources map[string]string

	cbMu      sync.RWMutex
	callbacks []InvalidateCallback
}

// NewDirStore loads every preset file in dir. The directory must exist;
// unreadable files are skipped on load and reported by Watch when they
// change later.
func NewDirStore(dir string) (*DirStore, error) {
	s := &DirStore{dir: dir, sources: map[string]string{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := presetFileName(entry.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		s.sources[name] = string(data)
	}
	return s, nil
}

// Lookup implements Store.
func (s *DirStore) Lookup(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.sources[name]
	return raw, ok
}

// Names returns the loaded preset names.
func (s *DirStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sources))
	for name := range s.sources {
		out = append(out, name)
	}
	return out
}

// OnInvalidate registers cb to run after each watcher-driven change.
// Register callbacks before calling Watch.
func (s *DirStore) OnInvalidate(cb InvalidateCallback) {
	if cb == nil {
		return
	}
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// Watch starts an fsnotify watcher on the store directory and processes
// change events until ctx is cancelled. Create and write events reload the
// file; remove and rename events drop the preset.
func (s *DirStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(s.dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, valid := presetFileName(filepath.Base(ev.Name))
			if !valid {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := os.ReadFile(ev.Name)
				if readErr != nil {
					continue
				}
				kind := "updated"
				s.mu.Lock()
				if _, existed := s.sources[name]; !existed {
					kind = "created"
				}
				s.sources[name] = string(data)
				s.mu.Unlock()
				s.invalidate(kind, name)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				s.mu.Lock()
				_, existed := s.sources[name]
				delete(s.sources, name)
				s.mu.Unlock()
				if existed {
					s.invalidate("deleted", name)
				}
			}

		case _, ok := <-w.Errors:
			if !ok {
				return nil
			}
		}
	}
}

func (s *DirStore) invalidate(kind, name string) {
	s.cbMu.RLock()
	defer s.cbMu.RUnlock()
	for _, cb := range s.callbacks {
		cb(kind, name)
	}
}

func presetFileName(base string) (string, bool) {
	ext := filepath.Ext(base)
	if ext != ".yml" && ext != ".yaml" {
		return "", false
	}
	name := strings.TrimSuffix(base, ext)
	if name == "" {
		return "", false
	}
	return name, true
}
