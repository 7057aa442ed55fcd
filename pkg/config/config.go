// Package config loads and validates the JSON configuration document
// described in spec.md §6, applies field defaults, and applies named
// performance profiles to a live configuration (spec.md §4.9).
//
// Grounded on _examples/original_source/core/schema.c (required-field
// validation and defaulting) and core/profiles.c (the profile presets).
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Profile names a performance preset (spec.md §3, §6).
type Profile string

const (
	ProfileLowLatency           Profile = "low-latency"
	ProfileBalanced             Profile = "balanced"
	ProfileHighQuality          Profile = "high-quality"
	ProfileBandwidthConstrained Profile = "bandwidth-constrained"
)

// LensType names a transport lens (spec.md §6).
type LensType string

const (
	LensWaypipe   LensType = "waypipe"
	LensSunshine  LensType = "sunshine"
	LensMoonlight LensType = "moonlight"
	LensAuto      LensType = "auto"
)

// Connection holds connection.* fields.
type Connection struct {
	RemoteHost      string   `json:"remote_host"`
	RemotePort      int      `json:"remote_port"`
	SSHUser         string   `json:"ssh_user"`
	SSHKeyPath      *string  `json:"ssh_key_path"`
	Compression     string   `json:"compression"`
	VideoCodec      string   `json:"video_codec"`
	BandwidthLimit  int      `json:"bandwidth_limit"`
}

// Application holds application.* fields.
type Application struct {
	Executable       string            `json:"executable"`
	Args             []string          `json:"args"`
	Env              map[string]string `json:"env"`
	WorkingDirectory string            `json:"working_directory"`
}

// Performance holds performance.* fields.
type Performance struct {
	Profile               Profile `json:"profile"`
	TargetLatencyMS       int     `json:"target_latency_ms"`
	FrameRate             int     `json:"frame_rate"`
	EnablePrediction      bool    `json:"enable_prediction"`
	PredictionWindowMS    int     `json:"prediction_window_ms"`
	EnableScrollSmoothing bool    `json:"enable_scroll_smoothing"`
}

// Observability holds observability.* fields.
type Observability struct {
	EnableMetrics     bool   `json:"enable_metrics"`
	MetricsIntervalMS int    `json:"metrics_interval_ms"`
	MetricsFile       string `json:"metrics_file"`
	LogLevel          string `json:"log_level"`
}

// Lens holds lens.* fields.
type Lens struct {
	Type     LensType   `json:"type"`
	Fallback []LensType `json:"fallback"`
}

// Config is the full configuration document (spec.md §3 "Configuration").
type Config struct {
	Connection    Connection    `json:"connection"`
	Application   Application   `json:"application"`
	Performance   Performance   `json:"performance"`
	Observability Observability `json:"observability"`
	Lens          Lens          `json:"lens"`
}

// ArgvEnv flattens Application.Env into "KEY=VAL" strings (spec.md §6).
func (a Application) ArgvEnv() []string {
	out := make([]string, 0, len(a.Env))
	for k, v := range a.Env {
		out = append(out, k+"="+v)
	}
	return out
}

// applyDefaults fills in every default documented in spec.md §6.
func applyDefaults(c *Config) {
	if c.Connection.RemotePort == 0 {
		c.Connection.RemotePort = 22
	}
	if c.Connection.SSHUser == "" {
		c.Connection.SSHUser = "root"
	}
	if c.Connection.Compression == "" {
		c.Connection.Compression = "lz4"
	}
	if c.Connection.VideoCodec == "" {
		c.Connection.VideoCodec = "h264"
	}

	if c.Performance.Profile == "" {
		c.Performance.Profile = ProfileBalanced
	}
	if c.Performance.TargetLatencyMS == 0 {
		c.Performance.TargetLatencyMS = 50
	}
	if c.Performance.FrameRate == 0 {
		c.Performance.FrameRate = 60
	}
	if c.Performance.PredictionWindowMS == 0 {
		c.Performance.PredictionWindowMS = 16
	}
	// EnablePrediction / EnableScrollSmoothing default true; JSON can't
	// distinguish "absent" from "false" on a plain bool, so Load sets these
	// before unmarshal and the schema.c-style validation below leaves an
	// explicit false alone.

	if c.Observability.MetricsIntervalMS == 0 {
		c.Observability.MetricsIntervalMS = 1000
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}

	if c.Lens.Type == "" {
		c.Lens.Type = LensAuto
	}
}

// defaultsBeforeUnmarshal returns a Config with every bool/nested default
// pre-set, so unmarshalling a document that omits an optional field leaves
// the documented default rather than Go's zero value.
func defaultsBeforeUnmarshal() Config {
	return Config{
		Connection: Connection{
			RemotePort:  22,
			SSHUser:     "root",
			Compression: "lz4",
			VideoCodec:  "h264",
		},
		Performance: Performance{
			Profile:               ProfileBalanced,
			TargetLatencyMS:       50,
			FrameRate:             60,
			EnablePrediction:      true,
			PredictionWindowMS:    16,
			EnableScrollSmoothing: true,
		},
		Observability: Observability{
			EnableMetrics:     true,
			MetricsIntervalMS: 1000,
			LogLevel:          "info",
		},
		Lens: Lens{Type: LensAuto},
	}
}

// Load reads, decodes and validates the JSON configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a JSON configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := defaultsBeforeUnmarshal()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: invalid JSON: %w", err)
	}
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate enforces the required-field rules in spec.md §6 (the
// "Invalid argument" taxonomy entry in §7).
func validate(c *Config) error {
	if c.Connection.RemoteHost == "" {
		return fmt.Errorf("config: connection.remote_host is required")
	}
	if c.Application.Executable == "" {
		return fmt.Errorf("config: application.executable is required")
	}
	switch c.Connection.Compression {
	case "none", "lz4", "zstd":
	default:
		return fmt.Errorf("config: connection.compression %q is not one of none|lz4|zstd", c.Connection.Compression)
	}
	switch c.Connection.VideoCodec {
	case "h264", "h265", "vp8", "vp9", "av1":
	default:
		return fmt.Errorf("config: connection.video_codec %q is not recognised", c.Connection.VideoCodec)
	}
	switch c.Performance.Profile {
	case ProfileLowLatency, ProfileBalanced, ProfileHighQuality, ProfileBandwidthConstrained:
	default:
		return fmt.Errorf("config: performance.profile %q is not recognised", c.Performance.Profile)
	}
	switch c.Lens.Type {
	case LensWaypipe, LensSunshine, LensMoonlight, LensAuto:
	default:
		return fmt.Errorf("config: lens.type %q is not recognised", c.Lens.Type)
	}
	return nil
}
