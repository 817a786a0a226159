package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/itohio/sonar/pkg/config"
	"github.com/itohio/sonar/pkg/logging"
	"github.com/itohio/sonar/pkg/ranger"
	"github.com/itohio/sonar/pkg/report"
	"github.com/itohio/sonar/pkg/telemetry"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use simulated sensor instead of serial port")
		listFlag   = flag.Bool("list", false, "List serial ports and exit")
		debugFlag  = flag.Bool("debug", false, "Enable debug logging (overrides config)")
		seedFlag   = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Simulation seed")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *debugFlag {
		cfg.Log.Debug = true
	}

	log, err := logging.New(cfg.Log.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if *listFlag {
		ports, err := telemetry.Ports()
		if err != nil {
			log.Fatalf("%v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	var source telemetry.Source
	if *mockFlag {
		log.Infow("starting simulated sensor",
			"period", cfg.Ranger.Period,
			"timeout", cfg.Ranger.Timeout,
			"distance_cm", cfg.Sim.DistanceCm,
		)
		source = telemetry.NewSim(cfg, cfg.Serial.BufferSize, *seedFlag, log)
	} else {
		log.Infow("connecting", "port", cfg.Serial.Port, "baud_rate", cfg.Serial.BaudRate)
		source = telemetry.NewSerial(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.BufferSize, log)
	}

	if err := source.Connect(); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		if err := source.Close(); err != nil {
			log.Errorf("Error closing source: %v", err)
		}
	}()

	var stats counters
	for rep := range source.Reports() {
		stats.add(rep)
		logReport(log, rep)
	}

	log.Infow("stopped",
		"approaching", stats.approaching,
		"moving_away", stats.movingAway,
		"instantaneous", stats.instantaneous,
		"errors", stats.errors,
	)
}

type counters struct {
	approaching   int
	movingAway    int
	instantaneous int
	errors        int
}

func (c *counters) add(rep report.Report) {
	switch rep.Event {
	case ranger.Approaching:
		c.approaching++
	case ranger.MovingAway:
		c.movingAway++
	case ranger.NoEvents:
		c.instantaneous++
	case ranger.MeasureError:
		c.errors++
	}
}

func logReport(log *zap.SugaredLogger, rep report.Report) {
	ts := rep.Timestamp.Format(time.StampMicro)
	if rep.Event == ranger.MeasureError {
		log.Warnw("measure error", "time", ts, "error", rep.Err())
		return
	}
	if rep.Event == ranger.NoEvents {
		log.Debugw("unstable reading", "time", ts, "distance_cm", rep.Value)
		return
	}
	log.Infow(rep.Event.String(), "time", ts, "distance_cm", rep.Value)
}
