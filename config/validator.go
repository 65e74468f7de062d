package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/swdee/go-posemotion"
)

// Validate checks the configuration and reports every problem found
func (c *Config) Validate() error {

	var errs []error

	switch c.Estimator.Kind {
	case EstimatorWorker:
		if c.Estimator.Command == "" {
			errs = append(errs, fmt.Errorf("estimator.command is required for the worker estimator"))
		}
	case EstimatorReplay:
		if c.Estimator.Replay == "" {
			errs = append(errs, fmt.Errorf("estimator.replay is required for the replay estimator"))
		}
	default:
		errs = append(errs, fmt.Errorf("estimator.kind must be %q or %q, got %q",
			EstimatorWorker, EstimatorReplay, c.Estimator.Kind))
	}

	if c.Estimator.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("estimator.pool_size must be > 0"))
	}

	if c.Estimator.Timeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("estimator.timeout must not be negative"))
	}

	if (c.Estimator.InputWidth > 0) != (c.Estimator.InputHeight > 0) ||
		c.Estimator.InputWidth < 0 || c.Estimator.InputHeight < 0 {
		errs = append(errs, fmt.Errorf("estimator.input_width and input_height must both be set or both be zero"))
	}

	if c.Source.FPS < 0 {
		errs = append(errs, fmt.Errorf("source.fps must not be negative"))
	}

	if c.Source.Width < 0 || c.Source.Height < 0 {
		errs = append(errs, fmt.Errorf("source.width and source.height must not be negative"))
	}

	// motion settings are checked by the classifier's own validation
	mc, err := c.MotionConfig()

	if err != nil {
		errs = append(errs, err)
	} else if err := mc.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Render.Panel && c.Render.PanelWidth <= 0 {
		errs = append(errs, fmt.Errorf("render.panel_width must be > 0"))
	}

	if c.Render.JPEGQuality < 1 || c.Render.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("render.jpeg_quality must be between 1 and 100"))
	}

	if c.HTTP.Addr == "" {
		errs = append(errs, fmt.Errorf("http.addr is required"))
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, fmt.Errorf("mqtt.broker is required when mqtt is enabled"))
		}
		if c.MQTT.QoS > 2 {
			errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2"))
		}
	}

	if c.CPUAffinity != "" {
		if _, err := posemotion.ParseCPUList(c.CPUAffinity); err != nil {
			errs = append(errs, fmt.Errorf("cpu_affinity: %w", err))
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json"))
	}

	return errors.Join(errs...)
}
