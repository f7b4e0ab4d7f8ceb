package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	yaml "github.com/goccy/go-yaml"
)

// ModelMapper resolves a client-supplied model name to the name the target
// endpoint expects. It wraps an atomic pointer to its mapping table so
// lookups never block on a concurrent reload.
type ModelMapper struct {
	families []string // checked in order, first substring match wins
	table    atomic.Pointer[mapping]
}

type mapping struct {
	exact map[string]string
	globs []globEntry
}

type globEntry struct {
	pattern glob.Glob
	target  string
}

// modelMappingOverlay is the optional on-disk overlay format:
//
//	model_mapping:
//	  "claude-3-opus-*": gpt-4-turbo
//	  claude-3-haiku: gpt-4o-mini
type modelMappingOverlay struct {
	ModelMapping map[string]string `yaml:"model_mapping"`
}

// NewModelMapper builds a mapper from the env-var mapping plus, if present,
// an on-disk YAML overlay. Overlay entries take precedence over env entries
// with the same key.
func NewModelMapper(envMapping map[string]string, overlayFile string) (*ModelMapper, error) {
	m := &ModelMapper{
		families: []string{"haiku", "opus", "sonnet"},
	}

	merged := make(map[string]string, len(envMapping))
	for k, v := range envMapping {
		merged[k] = v
	}

	if overlayFile != "" {
		overlay, err := loadOverlay(overlayFile)
		if err != nil {
			return nil, err
		}
		for k, v := range overlay {
			merged[k] = v
		}
	}

	m.table.Store(buildMapping(merged))
	return m, nil
}

func buildMapping(raw map[string]string) *mapping {
	m := &mapping{exact: make(map[string]string, len(raw))}
	for key, target := range raw {
		if strings.ContainsAny(key, "*?[") {
			g, err := glob.Compile(key)
			if err != nil {
				log.Printf("model mapping: skipping invalid glob %q: %v", key, err)
				continue
			}
			m.globs = append(m.globs, globEntry{pattern: g, target: target})
			continue
		}
		m.exact[key] = target
	}
	return m
}

func loadOverlay(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read model mapping overlay: %w", err)
	}
	var overlay modelMappingOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse model mapping overlay: %w", err)
	}
	return overlay.ModelMapping, nil
}

// Map resolves modelName per the documented precedence: verbatim key, glob
// key, normalized substring, family fallback (haiku, opus, sonnet in that
// order), then passthrough.
func (m *ModelMapper) Map(modelName string) (mapped string, matched bool) {
	tbl := m.table.Load()

	if target, ok := tbl.exact[modelName]; ok {
		return target, true
	}

	for _, g := range tbl.globs {
		if g.pattern.Match(modelName) {
			return g.target, true
		}
	}

	normalized := strings.ToLower(strings.ReplaceAll(modelName, ".", "-"))
	for key, target := range tbl.exact {
		normKey := strings.ToLower(strings.ReplaceAll(key, ".", "-"))
		if strings.Contains(normalized, normKey) || strings.Contains(normKey, normalized) {
			return target, true
		}
	}

	for _, family := range m.families {
		if strings.Contains(normalized, family) {
			for key, target := range tbl.exact {
				if strings.Contains(strings.ToLower(key), family) {
					return target, true
				}
			}
		}
	}

	return modelName, false
}

// Reload re-reads the overlay file (if any was configured) and atomically
// swaps in the new table. Intended to be called from a file watcher.
func (m *ModelMapper) Reload(envMapping map[string]string, overlayFile string) error {
	merged := make(map[string]string, len(envMapping))
	for k, v := range envMapping {
		merged[k] = v
	}
	if overlayFile != "" {
		overlay, err := loadOverlay(overlayFile)
		if err != nil {
			return err
		}
		for k, v := range overlay {
			merged[k] = v
		}
	}
	m.table.Store(buildMapping(merged))
	return nil
}

// MappingWatcher debounces fsnotify events on the overlay file and triggers
// ModelMapper.Reload 500ms after the last write or create event.
type MappingWatcher struct {
	mapper      *ModelMapper
	envMapping  map[string]string
	overlayFile string
	watcher     *fsnotify.Watcher
	stopCh      chan struct{}
	mu          sync.Mutex
	running     bool
}

// NewMappingWatcher creates a watcher for overlayFile. overlayFile must be a
// real, existing path; callers should skip creating a watcher otherwise.
func NewMappingWatcher(mapper *ModelMapper, envMapping map[string]string, overlayFile string) (*MappingWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &MappingWatcher{
		mapper:      mapper,
		envMapping:  envMapping,
		overlayFile: overlayFile,
		watcher:     watcher,
		stopCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the overlay file's directory for changes.
func (w *MappingWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("mapping watcher already running")
	}
	dir := filepath.Dir(w.overlayFile)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch model mapping directory: %w", err)
	}
	w.running = true
	go w.loop()
	return nil
}

// Stop shuts the watcher down.
func (w *MappingWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)
	return w.watcher.Close()
}

func (w *MappingWatcher) loop() {
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.overlayFile) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, func() {
				if err := w.mapper.Reload(w.envMapping, w.overlayFile); err != nil {
					log.Printf("model mapping reload failed: %v", err)
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("model mapping watcher error: %v", err)
		case <-w.stopCh:
			return
		}
	}
}
