package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/sardine-ai/dmx-artnet-checker/model"
	"github.com/sardine-ai/dmx-artnet-checker/source"
	"github.com/sirupsen/logrus"
)

var invalidNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeName strips every character outside [A-Za-z0-9_-].
func SanitizeName(name string) string {
	return invalidNameChars.ReplaceAllString(name, "")
}

// Store serves the active configuration document, merged over the defaults,
// and persists edits to it. Storage failures never escape as panics: load
// paths fall back to defaults and save paths return an error wrapping ErrWrite.
type Store struct {
	sync.Mutex
	registry *Registry
	defaults model.Document
	config   model.Document // Cached active document, nil until loaded
}

// NewStore creates a Store resolving its file through registry.
func NewStore(registry *Registry) *Store {
	return &Store{
		registry: registry,
		defaults: model.DefaultConfig().Document(),
	}
}

// Registry returns the registry the store resolves paths through.
func (s *Store) Registry() *Registry {
	return s.registry
}

// Defaults returns a copy of the default document.
func (s *Store) Defaults() model.Document {
	return s.defaults.Clone()
}

// Load reads the active configuration file, merges it over the defaults and
// caches the result. A missing or unreadable file yields the defaults; no
// file is created.
func (s *Store) Load() model.Document {
	s.Lock()
	defer s.Unlock()
	return s.load().Clone()
}

func (s *Store) load() model.Document {
	s.config = s.read(s.registry.ResolveActivePath())
	return s.config
}

func (s *Store) read(path string) model.Document {
	log := logrus.WithField("path", path)

	repo := &source.FileRepository{Name: filepath.Base(path), Path: path}
	if err := repo.Refresh(context.Background()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("config file not found, using defaults")
		} else {
			log.WithError(err).Error("error reading config, using defaults")
		}
		return s.defaults.Clone()
	}

	parsed, err := CodecFor(path).Decode(repo.GetRawData())
	if err != nil {
		log.WithError(err).Error("error parsing config, using defaults")
		return s.defaults.Clone()
	}

	merged, conflicts := Merge(s.defaults, parsed)
	for _, c := range conflicts {
		log.WithField("key", c.Path).Warnf("ignoring value of wrong type, expected %s, got %s", c.Expected, c.Got)
	}
	merged = s.repair(merged, log)
	log.Info("configuration loaded")
	return merged
}

// repair resets every section whose values break a constraint back to its
// default, so a bad file still yields a usable document.
func (s *Store) repair(doc model.Document, log *logrus.Entry) model.Document {
	for range model.Sections {
		cfg, err := doc.Config()
		if err != nil {
			log.WithError(err).Error("error decoding config, using defaults")
			return s.defaults.Clone()
		}
		err = cfg.Validate()
		var verr *model.ValidationError
		if !errors.As(err, &verr) {
			return doc
		}
		log.WithError(err).Warnf("resetting %s section to defaults", verr.Section)
		doc[verr.Section] = model.CloneValue(s.defaults[verr.Section])
	}
	return doc
}

// Get returns a copy of the cached document, loading it first if needed.
func (s *Store) Get() model.Document {
	s.Lock()
	defer s.Unlock()
	return s.get().Clone()
}

func (s *Store) get() model.Document {
	if s.config == nil {
		return s.load()
	}
	return s.config
}

// Config returns the typed view of the cached document.
func (s *Store) Config() model.Config {
	cfg, err := s.Get().Config()
	if err != nil {
		logrus.WithError(err).Error("error decoding config, using defaults")
		return model.DefaultConfig()
	}
	return cfg
}

// ActiveFile returns the active file relative to the settings root.
func (s *Store) ActiveFile() string {
	return s.registry.Get().ActiveFile()
}

// ChannelCount returns end - start + 1 of the channel display range.
func (s *Store) ChannelCount() int {
	return s.Config().ChannelCount()
}

// Save merges doc over the defaults, validates it and writes it to the active
// file. Nothing is written when validation fails.
func (s *Store) Save(doc model.Document) error {
	s.Lock()
	defer s.Unlock()
	return s.save(doc)
}

func (s *Store) save(doc model.Document) error {
	merged, err := s.prepare(doc)
	if err != nil {
		return err
	}
	if err := s.write(s.registry.ResolveActivePath(), merged); err != nil {
		return err
	}
	s.config = merged
	return nil
}

// prepare merges doc over the defaults and rejects it when a value has the
// wrong type or breaks a constraint.
func (s *Store) prepare(doc model.Document) (model.Document, error) {
	normalized, _ := Normalize(doc).(map[string]interface{})
	merged, conflicts := Merge(s.defaults, normalized)
	if len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}
	cfg, err := merged.Config()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *Store) write(path string, doc model.Document) error {
	log := logrus.WithField("path", path)
	data, err := CodecFor(path).Encode(doc)
	if err != nil {
		log.WithError(err).Error("error encoding config")
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		log.WithError(err).Error("error saving config")
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	log.Info("configuration saved")
	return nil
}

// UpdateSection merges data into the named top-level section, key by key,
// and saves the result. A section that does not exist yet is created.
func (s *Store) UpdateSection(section string, data map[string]interface{}) error {
	if section == "" {
		return fmt.Errorf("%w: section name is required", ErrValidation)
	}
	s.Lock()
	defer s.Unlock()

	updated := s.get().Clone()
	sec, ok := updated.Section(section)
	if !ok {
		sec = map[string]interface{}{}
	}
	normalized, _ := Normalize(data).(map[string]interface{})
	for k, v := range normalized {
		sec[k] = v
	}
	updated[section] = sec
	return s.save(updated)
}

// Reload drops the cached registry and document and reads both from disk.
func (s *Store) Reload() model.Document {
	s.Lock()
	defer s.Unlock()
	s.registry.Invalidate()
	s.config = nil
	return s.load().Clone()
}

// SwitchActiveFile points the registry at file, persists it and reloads.
// file is relative to the settings root and must exist.
func (s *Store) SwitchActiveFile(file string) (model.Document, error) {
	file = filepath.ToSlash(filepath.Clean(filepath.FromSlash(file)))
	if err := checkLocal(file); err != nil {
		return nil, err
	}
	if !IsConfigFile(file) {
		return nil, fmt.Errorf("%w: unsupported extension %q", ErrInvalidPath, filepath.Ext(file))
	}

	s.Lock()
	defer s.Unlock()
	if !fileExists(s.registry.Resolve(file)) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, file)
	}
	if err := s.registry.SetActiveFile(file); err != nil {
		return nil, err
	}
	s.registry.Invalidate()
	s.config = nil
	logrus.WithField("file", file).Info("switched active configuration")
	return s.load().Clone(), nil
}

// SaveAs writes the current document to config/<name>.yaml and registers it.
// name is sanitized first. The active file is left unchanged.
func (s *Store) SaveAs(name, displayName, description string) (string, model.Document, error) {
	sanitized := SanitizeName(name)
	if sanitized == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	s.Lock()
	defer s.Unlock()
	doc := s.get().Clone()
	file, err := s.create(sanitized, displayName, description, doc)
	if err != nil {
		return "", nil, err
	}
	return file, doc, nil
}

// create writes doc to a new file under the config directory and appends a
// registry entry for it. Callers hold the lock.
func (s *Store) create(name, displayName, description string, doc model.Document) (string, error) {
	file := ConfigDir + "/" + name + ".yaml"
	path := s.registry.Resolve(file)
	if fileExists(path) {
		return "", fmt.Errorf("%w: %s", ErrAlreadyExists, file)
	}
	if err := s.write(path, doc); err != nil {
		return "", err
	}
	if displayName == "" {
		displayName = name
	}
	entry := model.ConfigEntry{Name: displayName, File: file, Description: description}
	if err := s.registry.AddEntry(entry); err != nil {
		// Leave no unregistered file behind.
		if rmErr := os.Remove(path); rmErr != nil {
			logrus.WithError(rmErr).WithField("path", path).Error("error removing unregistered config")
		}
		return "", err
	}
	logrus.WithField("file", file).Info("configuration saved as new file")
	return file, nil
}

// OverwriteActive writes the cached document back to the active file.
func (s *Store) OverwriteActive() error {
	s.Lock()
	defer s.Unlock()
	return s.write(s.registry.ResolveActivePath(), s.get())
}

// Import fetches a document from repo, decodes it by the extension of the
// repository name, and stores it like SaveAs. Documents whose values have
// the wrong type are rejected with ErrParse.
func (s *Store) Import(ctx context.Context, repo source.Repository, name, displayName, description string) (string, model.Document, error) {
	sanitized := SanitizeName(name)
	if sanitized == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	log := logrus.WithField("source", repo.GetName())
	if err := repo.Refresh(ctx); err != nil {
		log.WithError(err).Error("error fetching config")
		return "", nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	parsed, err := CodecFor(repo.GetName()).Decode(repo.GetRawData())
	if err != nil {
		log.WithError(err).Error("error parsing imported config")
		return "", nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	merged, conflicts := Merge(s.defaults, parsed)
	if len(conflicts) > 0 {
		err := &ConflictError{Conflicts: conflicts}
		log.WithError(err).Error("imported config does not match the schema")
		return "", nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	cfg, err := merged.Config()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return "", nil, err
	}
	if description == "" {
		description = "Imported from " + repo.GetName()
	}

	s.Lock()
	defer s.Unlock()
	file, err := s.create(sanitized, displayName, description, merged)
	if err != nil {
		return "", nil, err
	}
	return file, merged.Clone(), nil
}
