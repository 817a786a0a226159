package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/sonar/pkg/ranger"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	_, err = tmpfile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	return tmpfile.Name()
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, uint16(400), cfg.Ranger.MaxDistanceCm)
	assert.Equal(t, uint16(10), cfg.Ranger.ApproachThresholdCm)
	assert.Equal(t, uint16(10), cfg.Ranger.DepartThresholdCm)
	assert.Equal(t, uint8(3), cfg.Ranger.FilterSamples)
	assert.Equal(t, uint16(5), cfg.Ranger.FilterToleranceCm)
	assert.True(t, cfg.Ranger.ErrorEvents)
	assert.Equal(t, 100*time.Millisecond, cfg.Ranger.Period)
	assert.Equal(t, ranger.DefaultTimeout, cfg.Ranger.Timeout)
	assert.Equal(t, "COM3", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 10*time.Second, cfg.Sim.MotionPeriod)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	name := writeTemp(t, `
ranger:
  max_distance_cm: 50
  approach_threshold_cm: 5
  depart_threshold_cm: 7
  filter_samples: 4
  filter_tolerance_cm: 3
  instantaneous_events: true
  error_events: false
  period: 200ms
  timeout: 50ms

serial:
  port: "/dev/ttyACM0"
  baud_rate: 9600

sim:
  distance_cm: 30
  amplitude_cm: 10
  motion_period: 5s
  noise_cm: 0.5
  glitch_rate: 0.1
  miss_rate: 0
  step: 2ms

log:
  debug: true
`)

	cfg, err := Load(name)
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, ranger.Config{
		MaxDistanceCm:       50,
		ApproachThresholdCm: 5,
		DepartThresholdCm:   7,
		FilterSamples:       4,
		FilterToleranceCm:   3,
		InstantaneousEvents: true,
		ErrorEvents:         false,
	}, cfg.Ranger.Driver())
	assert.Equal(t, 200*time.Millisecond, cfg.Ranger.Period)
	assert.Equal(t, 50*time.Millisecond, cfg.Ranger.Timeout)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, 100, cfg.Serial.BufferSize) // default

	assert.Equal(t, float32(30), cfg.Sim.DistanceCm)
	assert.Equal(t, float32(0.5), cfg.Sim.NoiseCm)
	assert.Equal(t, 5*time.Second, cfg.Sim.MotionPeriod)
	assert.Equal(t, 2*time.Millisecond, cfg.Sim.Step)
	assert.True(t, cfg.Log.Debug)
}

func TestLoad_InvalidYAML(t *testing.T) {
	name := writeTemp(t, "invalid: yaml: content: [")

	cfg, err := Load(name)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	name := writeTemp(t, `
serial:
  port: "/dev/ttyACM0"
ranger:
  max_distance_cm: 0
  filter_tolerance_cm: 0
  timeout: 0s
`)

	cfg, err := Load(name)
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, uint16(400), cfg.Ranger.MaxDistanceCm)   // default
	assert.Equal(t, uint16(5), cfg.Ranger.FilterToleranceCm) // default, filter enabled
	assert.Equal(t, ranger.DefaultTimeout, cfg.Ranger.Timeout)
	assert.Equal(t, uint16(10), cfg.Ranger.ApproachThresholdCm)
}

func TestLoad_ZeroThresholdKept(t *testing.T) {
	name := writeTemp(t, `
ranger:
  approach_threshold_cm: 0
  filter_samples: 0
  filter_tolerance_cm: 0
`)

	cfg, err := Load(name)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), cfg.Ranger.ApproachThresholdCm)
	assert.Equal(t, uint16(0), cfg.Ranger.FilterToleranceCm, "unused when filtering is disabled")
}

func TestLoad_TimeoutDerivedFromShortPeriod(t *testing.T) {
	name := writeTemp(t, `
ranger:
  period: 50ms
`)

	cfg, err := Load(name)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.Ranger.Period)
	assert.Equal(t, 37500*time.Microsecond, cfg.Ranger.Timeout)
}

func TestDefaultTimeout(t *testing.T) {
	tests := []struct {
		period time.Duration
		want   time.Duration
	}{
		{0, ranger.DefaultTimeout},
		{time.Second, ranger.DefaultTimeout},
		{80 * time.Millisecond, ranger.DefaultTimeout},
		{40 * time.Millisecond, 30 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.period.String(), func(t *testing.T) {
			got := defaultTimeout(tt.period)
			assert.Equal(t, tt.want, got)
			if tt.period > 0 {
				assert.Less(t, got, tt.period)
			}
		})
	}
}

func TestLoad_TimeoutExceedsPeriod(t *testing.T) {
	name := writeTemp(t, `
ranger:
  period: 50ms
  timeout: 50ms
`)

	cfg, err := Load(name)
	assert.ErrorIs(t, err, ErrTimeoutExceedsPeriod)
	assert.Nil(t, cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"single shot ignores timeout", func(c *Config) { c.Ranger.Period = 0; c.Ranger.Timeout = time.Second }, false},
		{"timeout longer than period", func(c *Config) { c.Ranger.Timeout = time.Second }, true},
		{"negative glitch rate", func(c *Config) { c.Sim.GlitchRate = -0.1 }, true},
		{"miss rate above one", func(c *Config) { c.Sim.MissRate = 1.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Ranger.Period = 250 * time.Millisecond
	cfg.Ranger.FilterSamples = 7

	name := writeTemp(t, "")

	err := cfg.Save(name)
	require.NoError(t, err)

	// Load it back and verify
	loaded, err := Load(name)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, 250*time.Millisecond, loaded.Ranger.Period)
	assert.Equal(t, uint8(7), loaded.Ranger.FilterSamples)
}
