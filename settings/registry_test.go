package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sardine-ai/dmx-artnet-checker/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry(filepath.Join(t.TempDir(), "settings"))
	require.NoError(t, err)
	return registry
}

func TestRegistryLoadCreatesDefault(t *testing.T) {
	registry := newTestRegistry(t)
	_, err := os.Stat(registry.Path())
	require.True(t, os.IsNotExist(err))

	settings := registry.Load()
	assert.Equal(t, model.DefaultSettings(), settings)
	require.Len(t, settings.AvailableConfigs, 1)
	assert.Equal(t, "Default Configuration", settings.AvailableConfigs[0].Name)
	assert.Equal(t, "config/config.yaml", settings.AvailableConfigs[0].File)
	assert.Equal(t, "Standard DMX Art-Net configuration", settings.AvailableConfigs[0].Description)

	data, err := os.ReadFile(registry.Path())
	require.NoError(t, err)
	var onDisk model.Settings
	require.NoError(t, yaml.Unmarshal(data, &onDisk))
	assert.Equal(t, settings, onDisk)
	assert.Contains(t, string(data), "default_file: config/config.yaml")
}

func TestRegistryMalformedFile(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		expected func() model.Settings
	}{
		{
			name:     "unparsable",
			content:  "config: [\n",
			expected: model.DefaultSettings,
		},
		{
			name:    "only pointer",
			content: "config:\n  default_file: config/stage.yaml\n",
			expected: func() model.Settings {
				s := model.DefaultSettings()
				s.Config.DefaultFile = "config/stage.yaml"
				return s
			},
		},
		{
			name:    "malformed entries keep default entries",
			content: "config:\n  default_file: config/stage.yaml\navailable_configs: nope\n",
			expected: func() model.Settings {
				s := model.DefaultSettings()
				s.Config.DefaultFile = "config/stage.yaml"
				return s
			},
		},
		{
			name:    "malformed pointer keeps default pointer",
			content: "config: 3\navailable_configs:\n  - name: Stage\n    file: config/stage.yaml\n    description: stage\n",
			expected: func() model.Settings {
				s := model.DefaultSettings()
				s.AvailableConfigs = []model.ConfigEntry{{Name: "Stage", File: "config/stage.yaml", Description: "stage"}}
				return s
			},
		},
		{
			name:     "pointer outside root keeps default pointer",
			content:  "config:\n  default_file: ../../outside.yaml\n",
			expected: model.DefaultSettings,
		},
		{
			name:     "absolute pointer keeps default pointer",
			content:  "config:\n  default_file: /etc/outside.yaml\n",
			expected: model.DefaultSettings,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			registry := newTestRegistry(t)
			require.NoError(t, os.MkdirAll(registry.Root(), 0o755))
			require.NoError(t, os.WriteFile(registry.Path(), []byte(tc.content), 0o644))

			assert.Equal(t, tc.expected(), registry.Load())
			assert.Equal(t, tc.expected(), registry.Get())

			// a malformed file is not rewritten
			data, err := os.ReadFile(registry.Path())
			require.NoError(t, err)
			assert.Equal(t, tc.content, string(data))
		})
	}
}

func TestRegistryGetCachesAndInvalidate(t *testing.T) {
	registry := newTestRegistry(t)
	registry.Load()

	s := model.DefaultSettings()
	s.Config.DefaultFile = "config/other.yaml"
	data, err := yaml.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(registry.Path(), data, 0o644))

	assert.Equal(t, "config/config.yaml", registry.Get().ActiveFile())
	registry.Invalidate()
	assert.Equal(t, "config/other.yaml", registry.Get().ActiveFile())
}

func TestRegistrySaveCreatesDirectories(t *testing.T) {
	registry := newTestRegistry(t)
	s := model.DefaultSettings()
	s.AvailableConfigs = append(s.AvailableConfigs, model.ConfigEntry{Name: "Stage", File: "config/stage.yaml"})
	require.NoError(t, registry.Save(s))

	registry.Invalidate()
	assert.Equal(t, s, registry.Get())
}

func TestRegistrySaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// the settings root sits below a regular file, so it cannot be created
	registry, err := NewRegistry(filepath.Join(blocker, "settings"))
	require.NoError(t, err)
	err = registry.Save(model.DefaultSettings())
	assert.ErrorIs(t, err, ErrWrite)

	// loading still serves defaults
	assert.Equal(t, model.DefaultSettings(), registry.Get())
}

func TestRegistryAddEntryAndSetActive(t *testing.T) {
	registry := newTestRegistry(t)
	entry := model.ConfigEntry{Name: "Stage", File: "config/stage.yaml", Description: "stage rig"}
	require.NoError(t, registry.AddEntry(entry))
	require.NoError(t, registry.AddEntry(entry))
	require.NoError(t, registry.SetActiveFile("config/stage.yaml"))

	registry.Invalidate()
	s := registry.Get()
	assert.Equal(t, "config/stage.yaml", s.ActiveFile())
	require.Len(t, s.AvailableConfigs, 3)
	assert.Equal(t, entry, s.AvailableConfigs[1])
	assert.Equal(t, entry, s.AvailableConfigs[2])
	assert.Equal(t, filepath.Join(registry.Root(), "config", "stage.yaml"), registry.ResolveActivePath())
}

func TestRegistryListConfigFiles(t *testing.T) {
	registry := newTestRegistry(t)
	assert.Equal(t, []string{}, registry.ListConfigFiles())

	require.NoError(t, os.MkdirAll(filepath.Join(registry.ConfigDir(), "nested"), 0o755))
	for _, name := range []string{"stage.yaml", "club.yml", "theatre.toml", "arena.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(registry.ConfigDir(), name), nil, 0o644))
	}
	assert.Equal(t, []string{
		"config/arena.json",
		"config/club.yml",
		"config/stage.yaml",
		"config/theatre.toml",
	}, registry.ListConfigFiles())
}

func TestCheckLocal(t *testing.T) {
	assert.NoError(t, checkLocal("config/stage.yaml"))
	assert.ErrorIs(t, checkLocal(""), ErrInvalidPath)
	assert.ErrorIs(t, checkLocal("../stage.yaml"), ErrInvalidPath)
	assert.ErrorIs(t, checkLocal("/etc/passwd"), ErrInvalidPath)
}
