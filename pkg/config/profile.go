package config

import "strings"

// ApplyProfile overwrites the performance and connection fields that a
// named profile governs, leaving application/observability/lens untouched.
// The exact per-profile values are drawn from
// _examples/original_source/core/profiles.c.
func ApplyProfile(c *Config, profile Profile) {
	c.Performance.Profile = profile

	switch profile {
	case ProfileLowLatency:
		c.Performance.TargetLatencyMS = 16
		c.Performance.FrameRate = 120
		c.Performance.EnablePrediction = true
		c.Performance.PredictionWindowMS = 16
		c.Performance.EnableScrollSmoothing = true
		c.Connection.Compression = "lz4"
		c.Connection.VideoCodec = "h264"
		c.Connection.BandwidthLimit = 0

	case ProfileBalanced:
		c.Performance.TargetLatencyMS = 50
		c.Performance.FrameRate = 60
		c.Performance.EnablePrediction = true
		c.Performance.PredictionWindowMS = 16
		c.Performance.EnableScrollSmoothing = true
		c.Connection.Compression = "lz4"
		c.Connection.VideoCodec = "h264"
		c.Connection.BandwidthLimit = 0

	case ProfileHighQuality:
		c.Performance.TargetLatencyMS = 100
		c.Performance.FrameRate = 60
		c.Performance.EnablePrediction = false
		c.Performance.PredictionWindowMS = 0
		c.Performance.EnableScrollSmoothing = false
		c.Connection.Compression = "zstd"
		c.Connection.VideoCodec = "h265"
		c.Connection.BandwidthLimit = 0

	case ProfileBandwidthConstrained:
		c.Performance.TargetLatencyMS = 100
		c.Performance.FrameRate = 30
		c.Performance.EnablePrediction = true
		c.Performance.PredictionWindowMS = 33
		c.Performance.EnableScrollSmoothing = true
		c.Connection.Compression = "zstd"
		c.Connection.VideoCodec = "h265"
		c.Connection.BandwidthLimit = 10
	}
}

// videoHeavyMarkers are executable-name substrings that favor a
// video-oriented lens over protocol forwarding (profiles.c's
// telescope_select_lens heuristic).
var videoHeavyMarkers = []string{"mpv", "vlc", "ffmpeg", "game", "steam"}

// SelectLens resolves c.Lens.Type to a concrete lens, applying the
// executable-name heuristic when the configured type is "auto".
func SelectLens(c *Config) LensType {
	if c.Lens.Type != LensAuto {
		return c.Lens.Type
	}
	exe := c.Application.Executable
	if exe == "" {
		return LensWaypipe
	}
	for _, marker := range videoHeavyMarkers {
		if strings.Contains(exe, marker) {
			return LensSunshine
		}
	}
	return LensWaypipe
}
