package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/sonar/pkg/ranger"
)

// ErrTimeoutExceedsPeriod is returned when the echo watchdog would outlive
// the trigger period, which turns every slow cycle into a TriggerError.
var ErrTimeoutExceedsPeriod = errors.New("timeout must be shorter than period")

// Config represents the application configuration.
type Config struct {
	Ranger RangerConfig `yaml:"ranger"`
	Serial SerialConfig `yaml:"serial"`
	Sim    SimConfig    `yaml:"sim"`
	Log    LogConfig    `yaml:"log"`
}

// RangerConfig contains the measurement parameters of the driver.
type RangerConfig struct {
	MaxDistanceCm       uint16        `yaml:"max_distance_cm"`
	ApproachThresholdCm uint16        `yaml:"approach_threshold_cm"`
	DepartThresholdCm   uint16        `yaml:"depart_threshold_cm"`
	FilterSamples       uint8         `yaml:"filter_samples"`      // 0 = disabled
	FilterToleranceCm   uint16        `yaml:"filter_tolerance_cm"` // Maximum spread inside the filter window
	InstantaneousEvents bool          `yaml:"instantaneous_events"`
	ErrorEvents         bool          `yaml:"error_events"`
	Period              time.Duration `yaml:"period"`  // Trigger period, 0 = single measurement
	Timeout             time.Duration `yaml:"timeout"` // Echo watchdog, shorter than period; 0 = derived from period
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port       string `yaml:"port"`
	BaudRate   int    `yaml:"baud_rate"`
	BufferSize int    `yaml:"buffer_size"`
}

// SimConfig describes the simulated target used instead of a device.
type SimConfig struct {
	DistanceCm   float32       `yaml:"distance_cm"`   // Centre of the target motion
	AmplitudeCm  float32       `yaml:"amplitude_cm"`  // Peak deviation of the target
	MotionPeriod time.Duration `yaml:"motion_period"` // Period of the sinusoidal motion
	NoiseCm      float32       `yaml:"noise_cm"`      // Uniform noise added to each reading
	GlitchRate   float32       `yaml:"glitch_rate"`   // Probability of a random reading
	MissRate     float32       `yaml:"miss_rate"`     // Probability of a missing echo
	Step         time.Duration `yaml:"step"`          // Simulation step
}

// LogConfig contains logging options.
type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Ranger: RangerConfig{
			MaxDistanceCm:       ranger.MaxRangeCm,
			ApproachThresholdCm: 10,
			DepartThresholdCm:   10,
			FilterSamples:       3,
			FilterToleranceCm:   5,
			InstantaneousEvents: false,
			ErrorEvents:         true,
			Period:              100 * time.Millisecond,
			Timeout:             ranger.DefaultTimeout,
		},
		Serial: SerialConfig{
			Port:       "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate:   115200,
			BufferSize: 100,
		},
		Sim: SimConfig{
			DistanceCm:   120,
			AmplitudeCm:  80,
			MotionPeriod: 10 * time.Second,
			NoiseCm:      1,
			GlitchRate:   0.05,
			MissRate:     0.01,
			Step:         time.Millisecond,
		},
		Log: LogConfig{
			Debug: false,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// An absent timeout is derived from the period read from the file.
	cfg.Ranger.Timeout = 0
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks relations between fields that defaults cannot repair.
func (c *Config) Validate() error {
	r := c.Ranger
	if r.Period > 0 && r.Timeout >= r.Period {
		return fmt.Errorf("ranger timeout %v, period %v: %w", r.Timeout, r.Period, ErrTimeoutExceedsPeriod)
	}
	if c.Sim.GlitchRate < 0 || c.Sim.GlitchRate > 1 {
		return fmt.Errorf("sim glitch_rate %v not within [0, 1]", c.Sim.GlitchRate)
	}
	if c.Sim.MissRate < 0 || c.Sim.MissRate > 1 {
		return fmt.Errorf("sim miss_rate %v not within [0, 1]", c.Sim.MissRate)
	}
	return nil
}

// Driver converts the ranger section into the driver configuration.
func (r RangerConfig) Driver() ranger.Config {
	return ranger.Config{
		MaxDistanceCm:       r.MaxDistanceCm,
		ApproachThresholdCm: r.ApproachThresholdCm,
		DepartThresholdCm:   r.DepartThresholdCm,
		FilterSamples:       r.FilterSamples,
		FilterToleranceCm:   r.FilterToleranceCm,
		InstantaneousEvents: r.InstantaneousEvents,
		ErrorEvents:         r.ErrorEvents,
	}
}

// ensureDefaults fills fields for which zero is never a usable value.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Ranger.MaxDistanceCm == 0 {
		c.Ranger.MaxDistanceCm = def.Ranger.MaxDistanceCm
	}
	if c.Ranger.FilterSamples > 0 && c.Ranger.FilterToleranceCm == 0 {
		c.Ranger.FilterToleranceCm = def.Ranger.FilterToleranceCm
	}
	if c.Ranger.Timeout == 0 {
		c.Ranger.Timeout = defaultTimeout(c.Ranger.Period)
	}

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.BufferSize == 0 {
		c.Serial.BufferSize = def.Serial.BufferSize
	}

	if c.Sim.MotionPeriod == 0 {
		c.Sim.MotionPeriod = def.Sim.MotionPeriod
	}
	if c.Sim.Step == 0 {
		c.Sim.Step = def.Sim.Step
	}
}

// defaultTimeout is ranger.DefaultTimeout, shortened to three quarters of
// period when the period would not leave room for it.
func defaultTimeout(period time.Duration) time.Duration {
	if period > 0 {
		return min(ranger.DefaultTimeout, period*3/4)
	}
	return ranger.DefaultTimeout
}
