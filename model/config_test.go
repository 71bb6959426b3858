package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigChannelCount(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 16, cfg.ChannelCount())
	assert.NoError(t, cfg.Validate())
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := DefaultConfig().Document()

	app, ok := doc.Section(SectionApp)
	require.True(t, ok)
	assert.Equal(t, "DMX Art-Net Checker", app["name"])

	channels, ok := doc.Section(SectionChannels)
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"start": 1, "end": 16}, channels["display_range"])

	cfg, err := doc.Config()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestDocumentCloneIsDeep(t *testing.T) {
	doc := DefaultConfig().Document()
	clone := doc.Clone()

	window, _ := clone.Section(SectionWindow)
	window["width"] = 10

	original, _ := doc.Section(SectionWindow)
	assert.Equal(t, 1200, original["width"])
}

func TestChannelRangeValidate(t *testing.T) {
	testCases := []struct {
		name  string
		r     ChannelRange
		valid bool
	}{
		{name: "default", r: ChannelRange{Start: 1, End: 16}, valid: true},
		{name: "single channel", r: ChannelRange{Start: 512, End: 512}, valid: true},
		{name: "full universe", r: ChannelRange{Start: 1, End: 512}, valid: true},
		{name: "zero start", r: ChannelRange{Start: 0, End: 16}},
		{name: "end past universe", r: ChannelRange{Start: 1, End: 513}},
		{name: "start after end", r: ChannelRange{Start: 20, End: 5}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.r.Validate()
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, SectionChannels, verr.Section)
		})
	}
}

func TestConfigValidateNetworkAndWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Network.DefaultUniverse = MaxUniverse + 1
	assert.ErrorIs(t, cfg.Validate(), ErrValidation)

	cfg = DefaultConfig()
	cfg.Window.Height = 0
	err := cfg.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, SectionWindow, verr.Section)
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, "config/config.yaml", s.ActiveFile())
	require.Len(t, s.AvailableConfigs, 1)
	assert.Equal(t, ConfigEntry{
		Name:        "Default Configuration",
		File:        "config/config.yaml",
		Description: "Standard DMX Art-Net configuration",
	}, s.AvailableConfigs[0])

	clone := s.Clone()
	clone.AvailableConfigs[0].Name = "changed"
	assert.Equal(t, "Default Configuration", s.AvailableConfigs[0].Name)
}
