package model

// DefaultConfigFile is the configuration file used on first run, relative to
// the settings root.
const DefaultConfigFile = "config/config.yaml"

// ConfigEntry describes one named configuration file known to the registry.
type ConfigEntry struct {
	Name        string `yaml:"name" json:"name"`               // Display name
	File        string `yaml:"file" json:"file"`               // Path relative to the settings root
	Description string `yaml:"description" json:"description"` // Free-form description
}

// ActivePointer selects the configuration file served by the store.
type ActivePointer struct {
	DefaultFile string `yaml:"default_file" json:"default_file"`
}

// Settings is the registry document: the active file pointer and the ordered
// list of known configurations.
type Settings struct {
	Config           ActivePointer `yaml:"config" json:"config"`
	AvailableConfigs []ConfigEntry `yaml:"available_configs" json:"available_configs"`
}

// ActiveFile returns the active configuration file relative to the settings root.
func (s Settings) ActiveFile() string {
	return s.Config.DefaultFile
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	out := s
	out.AvailableConfigs = append([]ConfigEntry(nil), s.AvailableConfigs...)
	return out
}

// DefaultSettings returns the registry written on first run.
func DefaultSettings() Settings {
	return Settings{
		Config: ActivePointer{DefaultFile: DefaultConfigFile},
		AvailableConfigs: []ConfigEntry{
			{
				Name:        "Default Configuration",
				File:        DefaultConfigFile,
				Description: "Standard DMX Art-Net configuration",
			},
		},
	}
}
