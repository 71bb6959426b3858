package model

import (
	"gopkg.in/yaml.v3"
)

// MaxChannels is the number of slots in one DMX512 universe.
const MaxChannels = 512

// MaxUniverse is the highest 15-bit Art-Net port address.
const MaxUniverse = 32767

// Section keys of the configuration document, in display order.
const (
	SectionApp      = "app"
	SectionWindow   = "window"
	SectionNetwork  = "network"
	SectionChannels = "channels"
	SectionLogging  = "logging"
)

// Sections lists the top-level keys every configuration document carries.
var Sections = []string{SectionApp, SectionWindow, SectionNetwork, SectionChannels, SectionLogging}

// Config is the typed view of a configuration document. It holds the
// application, window, network, channel display and logging settings.
type Config struct {
	App      AppConfig      `yaml:"app" json:"app" toml:"app"`                // Application identity
	Window   WindowConfig   `yaml:"window" json:"window" toml:"window"`       // UI sizing hints
	Network  NetworkConfig  `yaml:"network" json:"network" toml:"network"`    // Default Art-Net endpoint
	Channels ChannelsConfig `yaml:"channels" json:"channels" toml:"channels"` // Channel display settings
	Logging  LoggingConfig  `yaml:"logging" json:"logging" toml:"logging"`    // Operational logging settings
}

type AppConfig struct {
	Name string `yaml:"name" json:"name" toml:"name"`
}

type WindowConfig struct {
	Width  int `yaml:"width" json:"width" toml:"width"`
	Height int `yaml:"height" json:"height" toml:"height"`
}

// NetworkConfig is the default endpoint handed to the Art-Net transport.
type NetworkConfig struct {
	DefaultAddress  string `yaml:"default_address" json:"default_address" toml:"default_address"`    // Hostname or IPv4, usually a broadcast address
	DefaultPort     int    `yaml:"default_port" json:"default_port" toml:"default_port"`             // UDP port, 6454 for Art-Net
	DefaultUniverse int    `yaml:"default_universe" json:"default_universe" toml:"default_universe"` // 15-bit port address
}

type ChannelsConfig struct {
	DisplayRange ChannelRange `yaml:"display_range" json:"display_range" toml:"display_range"`
}

// ChannelRange is an inclusive, 1-based range of DMX channels.
type ChannelRange struct {
	Start int `yaml:"start" json:"start" toml:"start"`
	End   int `yaml:"end" json:"end" toml:"end"`
}

// Count returns the number of channels covered by the range.
func (r ChannelRange) Count() int {
	return r.End - r.Start + 1
}

// LoggingConfig is passed through to the logging setup without interpretation
// by the configuration store.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level" toml:"level"`
	FileLogging bool   `yaml:"file_logging" json:"file_logging" toml:"file_logging"`
	LogFile     string `yaml:"log_file" json:"log_file" toml:"log_file"`
	MaxFileSize string `yaml:"max_file_size" json:"max_file_size" toml:"max_file_size"`
	MaxFiles    int    `yaml:"max_files" json:"max_files" toml:"max_files"`
}

// DefaultConfig returns the configuration served when no file is present.
func DefaultConfig() Config {
	return Config{
		App: AppConfig{
			Name: "DMX Art-Net Checker",
		},
		Window: WindowConfig{
			Width:  1200,
			Height: 800,
		},
		Network: NetworkConfig{
			DefaultAddress:  "192.168.1.255",
			DefaultPort:     6454,
			DefaultUniverse: 0,
		},
		Channels: ChannelsConfig{
			DisplayRange: ChannelRange{Start: 1, End: 16},
		},
		Logging: LoggingConfig{
			Level:       "info",
			FileLogging: true,
			LogFile:     "dmx-artnet.log",
			MaxFileSize: "10MB",
			MaxFiles:    5,
		},
	}
}

// ChannelCount returns the number of channels shown by default.
func (c Config) ChannelCount() int {
	return c.Channels.DisplayRange.Count()
}

// Document converts the typed configuration into its tree form.
func (c Config) Document() Document {
	doc, err := ToDocument(c)
	if err != nil {
		// Config only holds scalars, so the round trip cannot fail.
		panic(err)
	}
	return doc
}

// ToDocument converts any YAML-serializable value into a Document.
func ToDocument(v interface{}) (Document, error) {
	marshal, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	// Decoding into a plain map keeps nested sections as
	// map[string]interface{} rather than Document.
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(marshal, &raw); err != nil {
		return nil, err
	}
	return Document(CloneMap(raw)), nil
}
