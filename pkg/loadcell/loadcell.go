// Package loadcell assembles a calibrated HX711 from a [config.Config].
package loadcell

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yunginnanet/ftdi-hx711/pkg/config"
	"github.com/yunginnanet/ftdi-hx711/pkg/ft232h"
	"github.com/yunginnanet/ftdi-hx711/pkg/hx711"
	"github.com/yunginnanet/ftdi-hx711/pkg/metrics"
	"github.com/yunginnanet/ftdi-hx711/pkg/periph"
	"github.com/yunginnanet/ftdi-hx711/pkg/raspi"
	"github.com/yunginnanet/ftdi-hx711/pkg/sim"
)

// periph pins are looked up by name, so the driver sees these fixed numbers.
const (
	periphDataPin  uint = 0
	periphClockPin uint = 1
)

// LoadCell is an initialized, calibrated converter plus the backend it owns.
type LoadCell struct {
	*hx711.HX711

	// Metrics is nil unless enabled in the configuration.
	Metrics *metrics.Collector
	// Sim is the simulated converter when the sim backend is configured.
	Sim *sim.Device

	samples int
	closers []func() error
	log     zerolog.Logger
}

type backend struct {
	pins     hx711.PinInterface
	dataPin  uint
	clockPin uint
	sim      *sim.Device
	close    func() error
}

func openBackend(cfg *config.Config, log zerolog.Logger) (*backend, error) {
	b := &backend{dataPin: cfg.Pins.Data, clockPin: cfg.Pins.Clock}

	switch cfg.Backend {
	case config.BackendFT232H:
		ft, err := ft232h.ConnectFT232h(cfg.FT232H)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to FT232H: %w", err)
		}
		ft.SetLogger(log)
		log.Info().Bool("high_speed", ft.IsHiSpeed()).Msgf("connected to %s", ft)
		b.pins, b.close = ft, ft.Close

	case config.BackendRaspi:
		g, err := raspi.Open(log)
		if err != nil {
			return nil, err
		}
		b.pins, b.close = g, g.Close

	case config.BackendPeriph:
		opts := []periph.Option{periph.WithLogger(log)}
		if cfg.Converter.EdgeWait {
			opts = append(opts, periph.WithEdgeDetection())
		}
		p, err := periph.ByName(map[uint]string{
			periphDataPin:  cfg.Periph.Data,
			periphClockPin: cfg.Periph.Clock,
		}, opts...)
		if err != nil {
			return nil, err
		}
		b.pins, b.dataPin, b.clockPin = p, periphDataPin, periphClockPin

	case config.BackendSim:
		dev := sim.New(cfg.Pins.Data, cfg.Pins.Clock, cfg.Sim.Raw...)
		dev.SetReadyDelay(cfg.Sim.ReadyDelay)
		b.pins, b.sim = dev, dev

	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid, cfg.Backend)
	}

	return b, nil
}

// Open validates cfg, opens its backend, runs Begin, applies gain, timeout and
// scale, and tares (or restores the configured tare offset).
func Open(cfg *config.Config, log zerolog.Logger) (*LoadCell, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = log.Level(cfg.Level()).With().Str("backend", cfg.Backend).Logger()

	b, err := openBackend(cfg, log)
	if err != nil {
		return nil, err
	}

	lc := &LoadCell{
		Sim:     b.sim,
		samples: cfg.Calibration.AverageSamples,
		log:     log,
	}
	if b.close != nil {
		lc.closers = append(lc.closers, b.close)
	}

	opts := []hx711.Option{hx711.WithLogger(log)}
	if cfg.Converter.EdgeWait {
		opts = append(opts, hx711.WithEdgeWait())
	}
	if cfg.Metrics.Enabled {
		lc.Metrics = metrics.New(cfg.Metrics.Namespace, cfg.Metrics.Cell)
		opts = append(opts, hx711.WithObserver(lc.Metrics))
	}

	lc.HX711 = hx711.NewHX711(b.pins, b.dataPin, b.clockPin, opts...)

	gain, _ := cfg.Gain()
	lc.SetGain(gain)
	lc.SetTimeout(cfg.TimeoutMs())
	lc.SetScale(cfg.Calibration.Scale)

	if err = lc.Begin(); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize HX711: %w", err), lc.closeBackend())
	}

	switch {
	case cfg.Calibration.TareOffset != nil:
		lc.SetTareOffset(*cfg.Calibration.TareOffset)
	case cfg.Calibration.TareOnStart:
		// the first conversion after Begin still carries the power-on gain
		if _, err = lc.Sample(); err != nil {
			return nil, errors.Join(fmt.Errorf("converter not responding: %w", err), lc.closeBackend())
		}
		lc.Tare(cfg.Calibration.TareSamples)
	}

	log.Info().Str("hx711", lc.HX711.String()).Int32("tare", lc.TareOffset()).Float32("scale", lc.Scale()).Msg("load cell ready")
	return lc, nil
}

// Weigh returns the weight in grams averaged over the configured sample count.
func (lc *LoadCell) Weigh() (float32, error) {
	return lc.Weight(lc.samples)
}

func (lc *LoadCell) closeBackend() error {
	var err error
	for _, c := range lc.closers {
		err = errors.Join(err, c())
	}
	lc.closers = nil
	return err
}

// Close powers the converter down and releases the backend.
func (lc *LoadCell) Close() error {
	err := lc.PowerDown()
	return errors.Join(err, lc.closeBackend())
}
