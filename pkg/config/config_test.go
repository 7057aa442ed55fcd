package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalJSON = `{
  "connection": {"remote_host": "desk.local"},
  "application": {"executable": "/usr/bin/xterm"}
}`

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalJSON))
	require.NoError(t, err)

	assert.Equal(t, 22, cfg.Connection.RemotePort)
	assert.Equal(t, "root", cfg.Connection.SSHUser)
	assert.Equal(t, "lz4", cfg.Connection.Compression)
	assert.Equal(t, "h264", cfg.Connection.VideoCodec)
	assert.Equal(t, ProfileBalanced, cfg.Performance.Profile)
	assert.Equal(t, 50, cfg.Performance.TargetLatencyMS)
	assert.Equal(t, 60, cfg.Performance.FrameRate)
	assert.True(t, cfg.Performance.EnablePrediction)
	assert.Equal(t, 16, cfg.Performance.PredictionWindowMS)
	assert.True(t, cfg.Performance.EnableScrollSmoothing)
	assert.Equal(t, LensAuto, cfg.Lens.Type)
}

func TestParse_MissingRequiredField(t *testing.T) {
	_, err := Parse([]byte(`{"application": {"executable": "/bin/true"}}`))
	assert.Error(t, err)
}

func TestParse_RejectsUnknownCompression(t *testing.T) {
	_, err := Parse([]byte(`{
      "connection": {"remote_host": "h", "compression": "brotli"},
      "application": {"executable": "/bin/true"}
    }`))
	assert.Error(t, err)
}

func TestApplyProfile_LowLatency(t *testing.T) {
	cfg, err := Parse([]byte(minimalJSON))
	require.NoError(t, err)

	ApplyProfile(cfg, ProfileLowLatency)
	assert.Equal(t, 16, cfg.Performance.TargetLatencyMS)
	assert.Equal(t, 120, cfg.Performance.FrameRate)
	assert.Equal(t, "lz4", cfg.Connection.Compression)
	assert.Equal(t, "h264", cfg.Connection.VideoCodec)
	assert.Equal(t, 0, cfg.Connection.BandwidthLimit)
}

func TestApplyProfile_HighQuality_DisablesPrediction(t *testing.T) {
	cfg, err := Parse([]byte(minimalJSON))
	require.NoError(t, err)

	ApplyProfile(cfg, ProfileHighQuality)
	assert.False(t, cfg.Performance.EnablePrediction)
	assert.False(t, cfg.Performance.EnableScrollSmoothing)
	assert.Equal(t, "zstd", cfg.Connection.Compression)
	assert.Equal(t, "h265", cfg.Connection.VideoCodec)
}

func TestApplyProfile_BandwidthConstrained(t *testing.T) {
	cfg, err := Parse([]byte(minimalJSON))
	require.NoError(t, err)

	ApplyProfile(cfg, ProfileBandwidthConstrained)
	assert.Equal(t, 30, cfg.Performance.FrameRate)
	assert.Equal(t, 10, cfg.Connection.BandwidthLimit)
}

func TestSelectLens_ExplicitWins(t *testing.T) {
	cfg, err := Parse([]byte(minimalJSON))
	require.NoError(t, err)
	cfg.Lens.Type = LensMoonlight
	assert.Equal(t, LensMoonlight, SelectLens(cfg))
}

func TestSelectLens_AutoHeuristicPicksSunshineForVideo(t *testing.T) {
	cfg, err := Parse([]byte(minimalJSON))
	require.NoError(t, err)
	cfg.Application.Executable = "/usr/bin/steam"
	assert.Equal(t, LensSunshine, SelectLens(cfg))
}

func TestSelectLens_AutoHeuristicDefaultsToWaypipe(t *testing.T) {
	cfg, err := Parse([]byte(minimalJSON))
	require.NoError(t, err)
	assert.Equal(t, LensWaypipe, SelectLens(cfg))
}
