package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sardine-ai/dmx-artnet-checker/model"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultRoot is the settings directory used when none is given.
	DefaultRoot = "settings"
	// RegistryFile is the registry document name inside the settings root.
	RegistryFile = "settings.yaml"
	// ConfigDir is the directory, relative to the root, holding configurations.
	ConfigDir = "config"
)

// Registry tracks which configuration file is active and which
// configurations are known. It never depends on Store.
type Registry struct {
	sync.Mutex
	root     string          // Absolute settings root
	path     string          // Absolute path of the registry file
	settings *model.Settings // Cached registry state, nil until loaded
}

// NewRegistry creates a Registry rooted at root, made absolute.
func NewRegistry(root string) (*Registry, error) {
	if root == "" {
		root = DefaultRoot
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		logrus.WithError(err).Error("error getting absolute path")
		return nil, err
	}
	return &Registry{root: absRoot, path: filepath.Join(absRoot, RegistryFile)}, nil
}

// Root returns the absolute settings root.
func (r *Registry) Root() string {
	return r.root
}

// Path returns the absolute path of the registry file.
func (r *Registry) Path() string {
	return r.path
}

// ConfigDir returns the absolute directory holding configuration files.
func (r *Registry) ConfigDir() string {
	return filepath.Join(r.root, ConfigDir)
}

// Load reads the registry file and caches the result. When the file does not
// exist the default registry is written and returned. When it cannot be
// parsed the defaults are returned; keys that do parse replace their default.
func (r *Registry) Load() model.Settings {
	r.Lock()
	defer r.Unlock()
	return r.load()
}

func (r *Registry) load() model.Settings {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.WithField("path", r.path).Info("settings file not found, creating default")
		settings := model.DefaultSettings()
		// On failure the defaults are served uncached so the next access
		// retries the write.
		_ = r.save(settings)
		return settings.Clone()
	}
	if err != nil {
		logrus.WithError(err).WithField("path", r.path).Error("error reading settings")
		settings := model.DefaultSettings()
		r.settings = &settings
		return settings.Clone()
	}

	settings := parseSettings(data, r.path)
	r.settings = &settings
	return settings.Clone()
}

// parseSettings overlays the top-level keys of data that decode cleanly onto
// the default settings.
func parseSettings(data []byte, path string) model.Settings {
	settings := model.DefaultSettings()

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		logrus.WithError(err).WithField("path", path).Error("error parsing settings, using defaults")
		return settings
	}

	if node, ok := raw["config"]; ok {
		var pointer model.ActivePointer
		if err := node.Decode(&pointer); err != nil {
			logrus.WithError(err).WithField("path", path).Warn("ignoring malformed config section")
		} else if err := checkLocal(pointer.DefaultFile); err != nil {
			if pointer.DefaultFile != "" {
				logrus.WithError(err).WithField("path", path).Warn("ignoring config pointer outside the settings root")
			}
		} else {
			settings.Config = pointer
		}
	}
	if node, ok := raw["available_configs"]; ok {
		var entries []model.ConfigEntry
		if err := node.Decode(&entries); err != nil {
			logrus.WithError(err).WithField("path", path).Warn("ignoring malformed available_configs section")
		} else {
			settings.AvailableConfigs = entries
		}
	}
	return settings
}

// Get returns the cached registry, loading it first if needed.
func (r *Registry) Get() model.Settings {
	r.Lock()
	defer r.Unlock()
	if r.settings == nil {
		return r.load()
	}
	return r.settings.Clone()
}

// Save writes settings to the registry file and caches them.
func (r *Registry) Save(settings model.Settings) error {
	r.Lock()
	defer r.Unlock()
	return r.save(settings.Clone())
}

func (r *Registry) save(settings model.Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		logrus.WithError(err).Error("error encoding settings")
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := writeFileAtomic(r.path, data); err != nil {
		logrus.WithError(err).WithField("path", r.path).Error("error saving settings")
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	r.settings = &settings
	return nil
}

// SetActiveFile points the registry at file and persists it.
func (r *Registry) SetActiveFile(file string) error {
	r.Lock()
	defer r.Unlock()
	settings := r.current()
	settings.Config.DefaultFile = file
	return r.save(settings)
}

// AddEntry appends entry to the known configurations and persists it.
// Duplicate files are not rejected.
func (r *Registry) AddEntry(entry model.ConfigEntry) error {
	r.Lock()
	defer r.Unlock()
	settings := r.current()
	settings.AvailableConfigs = append(settings.AvailableConfigs, entry)
	return r.save(settings)
}

func (r *Registry) current() model.Settings {
	if r.settings == nil {
		return r.load()
	}
	return r.settings.Clone()
}

// Invalidate drops the cached registry so the next access reads the file.
func (r *Registry) Invalidate() {
	r.Lock()
	defer r.Unlock()
	r.settings = nil
}

// ListConfigFiles returns the configuration files in the config directory,
// relative to the settings root and sorted. A missing directory yields an
// empty list.
func (r *Registry) ListConfigFiles() []string {
	entries, err := os.ReadDir(r.ConfigDir())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logrus.WithError(err).Error("error reading config directory")
		}
		return []string{}
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsConfigFile(entry.Name()) {
			continue
		}
		files = append(files, ConfigDir+"/"+entry.Name())
	}
	sort.Strings(files)
	return files
}

// ResolveActivePath returns the absolute path of the active configuration.
func (r *Registry) ResolveActivePath() string {
	return r.Resolve(r.Get().ActiveFile())
}

// Resolve joins a root-relative file reference onto the settings root.
func (r *Registry) Resolve(file string) string {
	return filepath.Join(r.root, filepath.FromSlash(file))
}

// ResolveLocal resolves file like Resolve after checking that it stays inside
// the settings root.
func (r *Registry) ResolveLocal(file string) (string, error) {
	if err := checkLocal(file); err != nil {
		return "", err
	}
	return r.Resolve(file), nil
}

// checkLocal rejects references that are absolute or leave the settings root.
func checkLocal(file string) error {
	if file == "" || !filepath.IsLocal(filepath.FromSlash(file)) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, file)
	}
	return nil
}
