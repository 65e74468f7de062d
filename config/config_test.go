package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-posemotion/motion"
	"github.com/swdee/go-posemotion/pose"
)

const sampleYAML = `
session_id: hallway
cpu_affinity: 4-7
source:
  path: clip.mp4
  loop: true
  fps: 15
estimator:
  kind: worker
  command: python3
  args: ["pose_worker.py", "--model", "full"]
  topology: mediapipe
  pool_size: 2
  timeout: 750ms
motion:
  point_threshold: 0.01
  region_threshold: 0.015
  policy: 3d
  hold: 1.5s
mqtt:
  enabled: true
  broker: localhost:1883
log:
  level: debug
  format: json
`

func TestParse(t *testing.T) {

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "hallway", cfg.SessionID)
	assert.Equal(t, "4-7", cfg.CPUAffinity)
	assert.Equal(t, "clip.mp4", cfg.Source.Path)
	assert.True(t, cfg.Source.Loop)
	assert.Equal(t, 15.0, cfg.Source.FPS)
	assert.Equal(t, []string{"pose_worker.py", "--model", "full"}, cfg.Estimator.Args)
	assert.Equal(t, 2, cfg.Estimator.PoolSize)
	assert.Equal(t, 750*time.Millisecond, cfg.Estimator.Timeout.Duration)
	assert.Equal(t, 1500*time.Millisecond, cfg.Motion.Hold.Duration)
	assert.True(t, cfg.MQTT.Enabled)

	// unset values keep their defaults
	assert.Equal(t, "localhost:8080", cfg.HTTP.Addr)
	assert.Equal(t, 640, cfg.Estimator.InputWidth)
	assert.Equal(t, "posemotion", cfg.MQTT.TopicPrefix)
}

func TestMotionConfig(t *testing.T) {

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	mc, err := cfg.MotionConfig()
	require.NoError(t, err)

	assert.Equal(t, motion.Distance3D, mc.Policy)
	assert.Equal(t, 1500*time.Millisecond, mc.Hold)
	assert.Equal(t, pose.MediaPipePose.Regions, mc.Regions)
	assert.Equal(t, motion.DefaultEmptyLabel, mc.EmptyLabel)
	assert.NoError(t, mc.Validate())
}

func TestDefaultMatchesClassifierDefault(t *testing.T) {

	cfg := Default()

	mc, err := cfg.MotionConfig()
	require.NoError(t, err)

	assert.Equal(t, motion.DefaultConfig(pose.MediaPipePose), mc)
}

func TestRegionOverride(t *testing.T) {

	data := `
estimator:
  command: python3
  topology: coco17
motion:
  regions:
    - name: Hands
      indices: [9, 10]
    - name: Feet
      indices: [15, 16]
`

	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	mc, err := cfg.MotionConfig()
	require.NoError(t, err)

	assert.Equal(t, []motion.Region{
		{Name: "Hands", Indices: []int{9, 10}},
		{Name: "Feet", Indices: []int{15, 16}},
	}, mc.Regions)
}

func TestValidate(t *testing.T) {

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"no command", func(c *Config) { c.Estimator.Command = "" }, "estimator.command"},
		{"replay without file", func(c *Config) {
			c.Estimator.Kind = EstimatorReplay
		}, "estimator.replay"},
		{"unknown kind", func(c *Config) { c.Estimator.Kind = "npu" }, "estimator.kind"},
		{"pool size", func(c *Config) { c.Estimator.PoolSize = 0 }, "pool_size"},
		{"input size", func(c *Config) { c.Estimator.InputHeight = 0 }, "input_width"},
		{"unknown topology", func(c *Config) { c.Estimator.Topology = "hand21" }, "hand21"},
		{"policy", func(c *Config) { c.Motion.Policy = "4d" }, "distance policy"},
		{"threshold", func(c *Config) { c.Motion.PointThreshold = 0 }, "threshold"},
		{"negative hold", func(c *Config) { c.Motion.Hold.Duration = -time.Second }, "hold"},
		{"panel width", func(c *Config) {
			c.Render.Panel = true
			c.Render.PanelWidth = 0
		}, "panel_width"},
		{"jpeg quality", func(c *Config) { c.Render.JPEGQuality = 0 }, "jpeg_quality"},
		{"http addr", func(c *Config) { c.HTTP.Addr = "" }, "http.addr"},
		{"mqtt broker", func(c *Config) { c.MQTT.Enabled = true }, "mqtt.broker"},
		{"mqtt qos", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.Broker = "localhost:1883"
			c.MQTT.QoS = 3
		}, "mqtt.qos"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"cpu affinity", func(c *Config) { c.CPUAffinity = "7-4" }, "cpu_affinity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Estimator.Command = "python3"
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {

	cfg := Default()
	cfg.Estimator.PoolSize = 0
	cfg.HTTP.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)

	assert.Contains(t, err.Error(), "estimator.command")
	assert.Contains(t, err.Error(), "pool_size")
	assert.Contains(t, err.Error(), "http.addr")
}

func TestInvalidDuration(t *testing.T) {
	_, err := Parse([]byte("motion:\n  hold: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad(t *testing.T) {

	path := filepath.Join(t.TempDir(), "posemotion.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hallway", cfg.SessionID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {

	var buf bytes.Buffer

	logger := LogConfig{Level: "warn", Format: "json"}.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "region", "LeftArm")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"region":"LeftArm"`)
}
