package ranger

import "time"

const (
	// MaxRangeCm is the ceiling of the configurable measuring range.
	MaxRangeCm = 400
	// AbsoluteMaxCm corresponds to the 38ms echo the sensor emits when
	// nothing is in front of it. Readings at or above it are discarded.
	AbsoluteMaxCm = 38000 / MicrosPerCm
	// MicrosPerCm is the round trip flight time of sound per centimetre.
	MicrosPerCm = 58
	// MaxFilterSamples caps the glitch filter window.
	MaxFilterSamples = 16

	// DefaultThresholdCm is the default approach and depart delta.
	DefaultThresholdCm = 50
	// DefaultTimeout bounds a trigger to echo end cycle.
	DefaultTimeout = 60 * time.Millisecond
	// TriggerPulse is the width of the trigger pulse.
	TriggerPulse = 10 * time.Microsecond
)

// Config holds the measurement parameters of a Ranger.
type Config struct {
	MaxDistanceCm       uint16 // Readings beyond are clamped or dropped
	ApproachThresholdCm uint16 // Minimum decrease for an Approaching event
	DepartThresholdCm   uint16 // Minimum increase for a MovingAway event
	FilterSamples       uint8  // Glitch filter window, 0 disables filtering
	FilterToleranceCm   uint16 // Maximum spread inside the window for a stable reading
	InstantaneousEvents bool   // Report unstable readings as NoEvents
	ErrorEvents         bool   // Report errors as MeasureError
}

// DefaultConfig returns the configuration a new Ranger starts with.
func DefaultConfig() Config {
	return Config{
		MaxDistanceCm:       MaxRangeCm,
		ApproachThresholdCm: DefaultThresholdCm,
		DepartThresholdCm:   DefaultThresholdCm,
		FilterSamples:       0,
		FilterToleranceCm:   MaxRangeCm,
	}
}

// normalized clamps out of range values. Callers see the result through
// Ranger.Config.
func (c Config) normalized() Config {
	if c.MaxDistanceCm > MaxRangeCm {
		c.MaxDistanceCm = MaxRangeCm
	}
	if c.FilterSamples > MaxFilterSamples {
		c.FilterSamples = MaxFilterSamples
	}
	return c
}

// distanceFromFlight converts an echo width into centimetres.
func distanceFromFlight(us uint32) int {
	return int(us / MicrosPerCm)
}

// clampDistance maps readings between the configured maximum and the
// absolute sensor limit onto the configured maximum.
func clampDistance(cm int, maxCm uint16) int {
	if cm >= int(maxCm) && cm < AbsoluteMaxCm {
		return int(maxCm)
	}
	return cm
}
