// Package periph binds the HX711 driver to any periph.io GPIO pin. Register
// host drivers (periph.io/x/host) before calling ByName.
package periph

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/yunginnanet/ftdi-hx711/pkg/hx711"
)

var (
	// ErrUnknownPin is returned for a pin number that was not mapped.
	ErrUnknownPin = errors.New("periph: pin not mapped")
	// ErrNotFound is returned by ByName when gpioreg has no pin of that name.
	ErrNotFound = errors.New("periph: no such GPIO")
)

// Pins maps the driver's pin numbers onto periph.io pins and implements
// [hx711.PinInterface] and [hx711.EdgeWaiter].
type Pins struct {
	hx711.HostClock

	mu    sync.Mutex
	pins  map[uint]gpio.PinIO
	input gpio.PinIO
	edges bool
	log   zerolog.Logger
}

// Option configures [Pins].
type Option func(*Pins)

// WithEdgeDetection requests falling edge detection on input pins so the
// driver can block in WaitForFallingEdge instead of polling.
func WithEdgeDetection() Option {
	return func(p *Pins) {
		p.edges = true
	}
}

// WithLogger sets the logger for pin configuration messages.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pins) {
		p.log = log
	}
}

// New wraps already resolved pins.
func New(pins map[uint]gpio.PinIO, opts ...Option) *Pins {
	p := &Pins{
		HostClock: hx711.NewHostClock(),
		pins:      make(map[uint]gpio.PinIO, len(pins)),
		log:       zerolog.Nop(),
	}
	for n, pin := range pins {
		p.pins[n] = pin
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ByName initializes the registered periph drivers and resolves each pin name
// (e.g. "GPIO5") through gpioreg.
func ByName(names map[uint]string, opts ...Option) (*Pins, error) {
	if _, err := driverreg.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph drivers: %w", err)
	}
	pins := make(map[uint]gpio.PinIO, len(names))
	for n, name := range names {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		pins[n] = pin
	}
	return New(pins, opts...), nil
}

func (p *Pins) pin(n uint) (gpio.PinIO, error) {
	p.mu.Lock()
	pin, ok := p.pins[n]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPin, n)
	}
	return pin, nil
}

// ConfigInput configures pin n as a floating input, with falling edge detection
// if requested and supported.
func (p *Pins) ConfigInput(n uint) error {
	pin, err := p.pin(n)
	if err != nil {
		return err
	}

	edge := gpio.NoEdge
	if p.edges {
		edge = gpio.FallingEdge
	}
	if err = pin.In(gpio.Float, edge); err != nil && edge != gpio.NoEdge {
		p.log.Debug().Err(err).Str("pin", pin.Name()).Msg("edge detection unavailable, polling")
		edge = gpio.NoEdge
		err = pin.In(gpio.Float, edge)
	}
	if err != nil {
		return fmt.Errorf("failed to configure %s as input: %w", pin, err)
	}

	p.mu.Lock()
	if edge != gpio.NoEdge {
		p.input = pin
	} else {
		p.input = nil
	}
	p.mu.Unlock()

	p.log.Debug().Str("pin", pin.Name()).Bool("edges", edge != gpio.NoEdge).Msg("configured input")
	return nil
}

func (p *Pins) ConfigOutput(n uint) error {
	pin, err := p.pin(n)
	if err != nil {
		return err
	}
	if err = pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to configure %s as output: %w", pin, err)
	}
	p.log.Debug().Str("pin", pin.Name()).Msg("configured output")
	return nil
}

func (p *Pins) DigitalWrite(n uint, high bool) error {
	pin, err := p.pin(n)
	if err != nil {
		return err
	}
	return pin.Out(gpio.Level(high))
}

func (p *Pins) DigitalRead(n uint) (bool, error) {
	pin, err := p.pin(n)
	if err != nil {
		return false, err
	}
	return bool(pin.Read()), nil
}

// WaitForFallingEdge blocks on the edge-detecting input pin. Without one it
// returns false immediately and the driver keeps polling.
func (p *Pins) WaitForFallingEdge(timeout time.Duration) bool {
	p.mu.Lock()
	pin := p.input
	p.mu.Unlock()
	if pin == nil {
		return false
	}
	return pin.WaitForEdge(timeout)
}
