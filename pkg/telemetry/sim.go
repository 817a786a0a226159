package telemetry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/sonar/pkg/config"
	"github.com/itohio/sonar/pkg/hal/sim"
	"github.com/itohio/sonar/pkg/ranger"
	"github.com/itohio/sonar/pkg/report"
)

// Sim runs a real Ranger against a simulated sensor in wall clock time.
// The target oscillates around a centre distance; readings get noise,
// random glitches and missing echoes as configured.
type Sim struct {
	cfg    *config.Config
	logger ranger.Logger

	rng     *rand.Rand
	reports chan report.Report
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	clock     *sim.Clock
	ranger    *ranger.Ranger
	started   time.Time
	connected bool
}

// NewSim creates a simulated source. seed makes the noise reproducible.
func NewSim(cfg *config.Config, bufSize int, seed uint64, logger ranger.Logger) *Sim {
	if cfg == nil {
		cfg = config.Default()
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	if logger == nil {
		logger = &ranger.NullLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Sim{
		cfg:     cfg,
		logger:  logger,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		reports: make(chan report.Report, bufSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Connect wires the simulated hardware, starts the ranger and the clock.
func (s *Sim) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return errAlreadyConnected
	}

	s.clock = sim.NewClock()
	trig, echo := sim.NewPin(), sim.NewPin()
	sim.NewSensor(s.clock, trig, echo, s.distance)

	r, err := ranger.New(ranger.Peripherals{
		Trigger:   trig,
		Echo:      echo,
		EchoTimer: s.clock.NewTimer(),
		Ticker:    s.clock.NewCallback(),
		Watchdog:  s.clock.NewCallback(),
		Delay:     s.clock.Sleep,
	}, ranger.WithConfig(s.cfg.Ranger.Driver()), ranger.WithLogger(s.logger))
	if err != nil {
		return fmt.Errorf("failed to create simulated ranger: %w", err)
	}

	s.ranger = r
	s.started = time.Now()
	s.connected = true
	s.done = make(chan struct{})

	r.Start(ranger.ListenerFunc(s.publish), s.cfg.Ranger.Period, s.cfg.Ranger.Timeout)

	go func() {
		defer close(s.done)
		s.run(s.cfg.Sim.Step)
	}()

	return nil
}

// Close stops the simulation and closes the reports channel.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	s.cancel()
	<-s.done
	s.ranger.Stop()
	s.connected = false
	close(s.reports)

	return nil
}

// Reports returns the channel for reading reports.
func (s *Sim) Reports() <-chan report.Report {
	return s.reports
}

// IsConnected returns whether the simulation is running.
func (s *Sim) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// run advances the virtual clock by the wall time elapsed at every step.
func (s *Sim) run(step time.Duration) {
	if step <= 0 {
		step = time.Millisecond
	}
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.clock.Advance(now.Sub(last))
			last = now
		}
	}
}

func (s *Sim) publish(event ranger.Event, value int16) {
	rep := report.Report{
		Timestamp: s.started.Add(s.clock.Now()),
		Event:     event,
		Value:     value,
	}

	select {
	case s.reports <- rep:
	case <-s.ctx.Done():
	default:
		s.logger.Warn("reports channel full, dropping report")
	}
}

// distance is the sensor's DistanceFunc. It runs on the simulation
// goroutine only.
func (s *Sim) distance() float32 {
	return targetDistance(&s.cfg.Sim, s.clock.Now(), s.rng)
}

// targetDistance samples the simulated target at virtual time t.
func targetDistance(cfg *config.SimConfig, t time.Duration, rng *rand.Rand) float32 {
	if cfg.MissRate > 0 && rng.Float32() < cfg.MissRate {
		return -1
	}
	if cfg.GlitchRate > 0 && rng.Float32() < cfg.GlitchRate {
		return rng.Float32() * ranger.MaxRangeCm
	}

	d := cfg.DistanceCm
	if cfg.MotionPeriod > 0 {
		phase := float32(t%cfg.MotionPeriod) / float32(cfg.MotionPeriod)
		d += cfg.AmplitudeCm * math32.Sin(2*math32.Pi*phase)
	}
	if cfg.NoiseCm > 0 {
		d += cfg.NoiseCm * (2*rng.Float32() - 1)
	}
	return math32.Max(d, 0)
}
