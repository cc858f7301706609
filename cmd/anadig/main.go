package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/itohio/anadig/pkg/config"
	"github.com/itohio/anadig/pkg/meter"
	"github.com/itohio/anadig/pkg/sample"
)

func main() {
	var (
		portFlag           = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag         = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag           = flag.Bool("mock", false, "Use the simulated bus instead of the configured one")
		busFlag            = flag.String("bus", "", "Bus kind override: mock, linux or serial")
		guiFlag            = flag.Bool("gui", false, "Show the scope window instead of printing samples")
		averageSamplesFlag = flag.Int("average-samples", -1, "Number of samples to average (0 = disabled, overrides config)")
		averageRawFlag     = flag.Bool("average-raw", false, "Average converter codes before calibration")
		singleShotFlag     = flag.Bool("single", false, "Measure in single conversion mode")
		verbosityFlag      = flag.Int("v", 0, "Log verbosity")
	)
	flag.Parse()

	stdr.SetVerbosity(*verbosityFlag)
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("anadig")

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Bus.Port = *portFlag
		cfg.Bus.Kind = config.BusSerial
	}
	if *busFlag != "" {
		cfg.Bus.Kind = *busFlag
	}
	if *mockFlag {
		cfg.Bus.Kind = config.BusMock
	}
	if *averageSamplesFlag >= 0 {
		cfg.Measurement.AverageSamples = *averageSamplesFlag
	}
	if *averageRawFlag {
		cfg.Measurement.AverageRaw = true
	}
	if *singleShotFlag {
		cfg.ADC.SingleShot = true
	}

	if *guiFlag {
		runGUI(cfg, *configFlag, logger)
		return
	}

	if err := runHeadless(cfg, logger, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// runHeadless prints every sample until interrupted.
func runHeadless(cfg *config.Config, logger logr.Logger, w io.Writer) error {
	device, bus, err := openSource(cfg, logger)
	if err != nil {
		return err
	}
	if _, err := openOutput(cfg, bus, logger); err != nil {
		return fmt.Errorf("failed to set up DAC: %w", err)
	}

	m := meter.New(cfg)
	m.OnUpdate(printer(w))

	chain, err := startChain(cfg, device, m)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	logger.Info("measuring", "bus", cfg.Bus.Kind, "chip", cfg.ADC.Chip, "singleShot", cfg.ADC.SingleShot)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	closeMeasurementChain(chain)
	st := m.Stats()
	logger.Info("stopped", "samples", st.Count, "mean", st.Mean, "min", st.Min, "max", st.Max)
	return nil
}

// printer writes the newest sample of each update in teleplot format.
func printer(w io.Writer) func([]sample.Sample, []float64, meter.Stats) {
	var last time.Time
	return func(samples []sample.Sample, derivatives []float64, stats meter.Stats) {
		if len(samples) == 0 {
			return
		}
		s := samples[len(samples)-1]
		if !s.Timestamp.After(last) {
			return
		}
		last = s.Timestamp
		fmt.Fprintf(w, ">Raw:%d\n", s.Raw)
		fmt.Fprintf(w, ">Voltage(mV):%.2f\n", s.Voltage)
		if len(derivatives) > 0 {
			fmt.Fprintf(w, ">dV/dt(mV/s):%.2f\n", derivatives[len(derivatives)-1])
		}
	}
}
