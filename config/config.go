// Package config loads the YAML configuration of the posemotion host.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/swdee/go-posemotion/motion"
	"github.com/swdee/go-posemotion/pose"
)

// Estimator kinds
const (
	EstimatorWorker = "worker"
	EstimatorReplay = "replay"
)

// Config represents the complete host configuration
type Config struct {
	// SessionID names the stream, a random id is used when empty
	SessionID string `yaml:"session_id"`
	// CPUAffinity restricts the host to a CPU list such as "4-7"
	CPUAffinity string          `yaml:"cpu_affinity"`
	Source      SourceConfig    `yaml:"source"`
	Estimator   EstimatorConfig `yaml:"estimator"`
	Motion      MotionConfig    `yaml:"motion"`
	Render      RenderConfig    `yaml:"render"`
	HTTP        HTTPConfig      `yaml:"http"`
	MQTT        MQTTConfig      `yaml:"mqtt"`
	Record      RecordConfig    `yaml:"record"`
	Log         LogConfig       `yaml:"log"`
}

// SourceConfig contains video capture settings
type SourceConfig struct {
	Device int     `yaml:"device"`
	Path   string  `yaml:"path"` // video file or stream url, overrides device
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FPS    float64 `yaml:"fps"`
	Loop   bool    `yaml:"loop"`
}

// EstimatorConfig contains pose estimator settings
type EstimatorConfig struct {
	Kind     string   `yaml:"kind"` // worker, replay
	Command  string   `yaml:"command"`
	Args     []string `yaml:"args"`
	Env      []string `yaml:"env"`
	Replay   string   `yaml:"replay"` // recording played back by the replay kind
	Topology string   `yaml:"topology"`
	PoolSize int      `yaml:"pool_size"`
	Timeout  Duration `yaml:"timeout"`
	// InputWidth and InputHeight are the letterboxed frame size sent to the
	// estimator, zero sends frames at source size
	InputWidth  int `yaml:"input_width"`
	InputHeight int `yaml:"input_height"`
}

// MotionConfig contains motion classifier settings
type MotionConfig struct {
	PointThreshold  float64  `yaml:"point_threshold"`
	RegionThreshold float64  `yaml:"region_threshold"`
	Policy          string   `yaml:"policy"` // 2d, 3d
	Hold            Duration `yaml:"hold"`
	EmptyLabel      string   `yaml:"empty_label"`
	Separator       string   `yaml:"separator"`
	// Regions override the topology default regions when set
	Regions []pose.Region `yaml:"regions,omitempty"`
}

// RenderConfig contains annotation settings of the video stream
type RenderConfig struct {
	Skeleton    bool    `yaml:"skeleton"`
	Halo        bool    `yaml:"halo"`
	HaloPadding int     `yaml:"halo_padding"`
	Label       bool    `yaml:"label"`
	Panel       bool    `yaml:"panel"`
	PanelWidth  int     `yaml:"panel_width"`
	Font        string  `yaml:"font"` // TTF file for the panel, basic font when empty
	FontSize    float64 `yaml:"font_size"`
	JPEGQuality int     `yaml:"jpeg_quality"`
}

// HTTPConfig contains the stream server settings
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
	PublishAll  bool   `yaml:"publish_all"`
}

// RecordConfig contains landmark recording settings
type RecordConfig struct {
	Path string `yaml:"path"` // JSON lines file, recording disabled when empty
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Duration is a time.Duration read from YAML as a string such as "1.5s"
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {

	var s string

	if err := value.Decode(&s); err != nil {
		return err
	}

	s = strings.TrimSpace(s)

	if s == "" {
		d.Duration = 0
		return nil
	}

	v, err := time.ParseDuration(s)

	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	d.Duration = v
	return nil
}

// MarshalYAML writes the duration as a string
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Default returns the default configuration.  Its motion section matches
// motion.DefaultConfig.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Device: 0,
		},
		Estimator: EstimatorConfig{
			Kind:        EstimatorWorker,
			Topology:    pose.MediaPipePose.Name,
			PoolSize:    1,
			Timeout:     Duration{2 * time.Second},
			InputWidth:  640,
			InputHeight: 480,
		},
		Motion: MotionConfig{
			PointThreshold:  motion.DefaultPointThreshold,
			RegionThreshold: motion.DefaultRegionThreshold,
			Policy:          motion.Distance2D.String(),
			EmptyLabel:      motion.DefaultEmptyLabel,
			Separator:       motion.DefaultSeparator,
		},
		Render: RenderConfig{
			Skeleton:    true,
			Halo:        true,
			HaloPadding: 12,
			Label:       true,
			Panel:       false,
			PanelWidth:  220,
			FontSize:    14,
			JPEGQuality: 80,
		},
		HTTP: HTTPConfig{
			Addr: "localhost:8080",
		},
		MQTT: MQTTConfig{
			ClientID:    "posemotion",
			TopicPrefix: "posemotion",
			QoS:         1,
			Retain:      true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML configuration file.  Settings missing from the file keep
// their default values.
func Load(path string) (*Config, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration data over the defaults and validates it
func Parse(data []byte) (*Config, error) {

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Topology returns the estimator topology
func (c *Config) Topology() (pose.Topology, error) {
	return pose.TopologyByName(c.Estimator.Topology)
}

// MotionConfig builds the classifier configuration, using the topology
// default regions unless regions are configured
func (c *Config) MotionConfig() (motion.Config, error) {

	topology, err := c.Topology()

	if err != nil {
		return motion.Config{}, err
	}

	policy, err := motion.ParseDistancePolicy(c.Motion.Policy)

	if err != nil {
		return motion.Config{}, err
	}

	mc := motion.DefaultConfig(topology)
	mc.PointThreshold = c.Motion.PointThreshold
	mc.RegionThreshold = c.Motion.RegionThreshold
	mc.Policy = policy
	mc.Hold = c.Motion.Hold.Duration

	if c.Motion.EmptyLabel != "" {
		mc.EmptyLabel = c.Motion.EmptyLabel
	}

	if c.Motion.Separator != "" {
		mc.Separator = c.Motion.Separator
	}

	if len(c.Motion.Regions) > 0 {
		mc.Regions = pose.CloneRegions(c.Motion.Regions)
	}

	return mc, nil
}

// Logger returns a slog logger writing to w with the configured level and
// format
func (l LogConfig) Logger(w io.Writer) *slog.Logger {

	opts := &slog.HandlerOptions{
		Level: l.level(),
	}

	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// level converts the configured level name
func (l LogConfig) level() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
