package vision

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/uitap-dev/uitap/pkg/core"
	"github.com/uitap-dev/uitap/pkg/logger"
)

const metadataFile = "templates.yaml"

// templateMeta is the persisted sidecar entry for one template.
type templateMeta struct {
	Source    string  `yaml:"source,omitempty"`    // "[l,t][r,b]" capture region
	Threshold float64 `yaml:"threshold,omitempty"` // confidence override
}

// Store holds the named templates for one workspace directory. Reads are
// concurrent; Save and Delete are exclusive.
type Store struct {
	dir string

	mu        sync.RWMutex
	templates map[string]*Template
}

// LoadStore reads every PNG in dir plus the metadata sidecar. A missing
// directory yields an empty store, not an error.
func LoadStore(dir string) (*Store, error) {
	s := &Store{dir: dir, templates: make(map[string]*Template)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	meta := loadMetadata(dir)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".png")
		img, err := readPNG(filepath.Join(dir, entry.Name()))
		if err != nil {
			logger.Warn("vision").Str("template", name).Err(err).Msg("skipping unreadable template")
			continue
		}
		tpl := &Template{Name: name, Image: img}
		if m, ok := meta[name]; ok {
			tpl.Source = ParseRegion(m.Source)
			tpl.Threshold = m.Threshold
		}
		s.templates[name] = tpl
	}

	return s, nil
}

// Get returns the named template.
func (s *Store) Get(name string) (*Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[name]
	return tpl, ok
}

// Names returns the stored template names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored templates.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}

// Save persists the template image and metadata and adds it to the store.
func (s *Store) Save(tpl *Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(s.dir, tpl.Name+".png"))
	if err != nil {
		return err
	}
	if err := png.Encode(f, tpl.Image); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	s.templates[tpl.Name] = tpl
	return s.writeMetadataLocked()
}

// Delete removes the template from disk and the store.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[name]; !ok {
		return core.ErrNotFound.WithMessage(fmt.Sprintf("template %q not in store", name))
	}

	if err := os.Remove(filepath.Join(s.dir, name+".png")); err != nil && !os.IsNotExist(err) {
		return err
	}
	delete(s.templates, name)
	return s.writeMetadataLocked()
}

// Reload re-reads the directory, replacing the in-memory set.
func (s *Store) Reload() error {
	fresh, err := LoadStore(s.dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.templates = fresh.templates
	s.mu.Unlock()
	return nil
}

// Watch reloads the store whenever the directory changes on disk, so
// templates captured by another process become visible without a restart.
// Blocks until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				logger.Warn("vision").Err(err).Msg("template store reload failed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("vision").Err(err).Msg("template store watch error")
		}
	}
}

func (s *Store) writeMetadataLocked() error {
	meta := make(map[string]templateMeta)
	for name, tpl := range s.templates {
		m := templateMeta{Threshold: tpl.Threshold}
		if !tpl.Source.Empty() {
			m.Source = tpl.Source.String()
		}
		if m.Source == "" && m.Threshold == 0 {
			continue
		}
		meta[name] = m
	}

	if len(meta) == 0 {
		err := os.Remove(filepath.Join(s.dir, metadataFile))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	data, err := yaml.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, metadataFile), data, 0644)
}

func loadMetadata(dir string) map[string]templateMeta {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile)) //#nosec G304 -- store-owned path
	if err != nil {
		return nil
	}
	var meta map[string]templateMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		logger.Warn("vision").Err(err).Msg("ignoring malformed template metadata")
		return nil
	}
	return meta
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path) //#nosec G304 -- store-owned path
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

// ParseRegion parses "[l,t][r,b]" into bounds; malformed input yields
// zero bounds.
func ParseRegion(s string) core.Bounds {
	if s == "" {
		return core.Bounds{}
	}
	var l, t, r, b int
	if _, err := fmt.Sscanf(s, "[%d,%d][%d,%d]", &l, &t, &r, &b); err != nil {
		return core.Bounds{}
	}
	return core.Bounds{X: l, Y: t, Width: r - l, Height: b - t}
}
