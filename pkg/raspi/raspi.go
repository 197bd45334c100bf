// Package raspi binds the HX711 driver to Raspberry Pi GPIO through
// memory-mapped registers. Pins are BCM numbers.
package raspi

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stianeikeland/go-rpio/v4"

	"github.com/yunginnanet/ftdi-hx711/pkg/hx711"
)

// MaxPin is the highest BCM GPIO number on the 40-pin header.
const MaxPin = 27

// ErrInvalidPin is returned for a BCM number outside 0..MaxPin.
var ErrInvalidPin = errors.New("BCM GPIO pin out of range")

// GPIO implements [hx711.PinInterface] on the Raspberry Pi GPIO block.
type GPIO struct {
	hx711.HostClock
	log zerolog.Logger
}

// Open maps the GPIO registers. Close must be called to release them.
func Open(log zerolog.Logger) (*GPIO, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO memory: %w", err)
	}
	return &GPIO{HostClock: hx711.NewHostClock(), log: log}, nil
}

// Close unmaps the GPIO registers.
func (g *GPIO) Close() error {
	return rpio.Close()
}

func pin(n uint) (rpio.Pin, error) {
	if n > MaxPin {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPin, n)
	}
	return rpio.Pin(n), nil
}

// ConfigInput configures BCM pin n as a floating input. The HX711 drives DOUT
// push-pull, so no pull resistor is enabled.
func (g *GPIO) ConfigInput(n uint) error {
	p, err := pin(n)
	if err != nil {
		return err
	}
	p.Input()
	p.PullOff()
	g.log.Debug().Uint("bcm", n).Msg("configured GPIO input")
	return nil
}

func (g *GPIO) ConfigOutput(n uint) error {
	p, err := pin(n)
	if err != nil {
		return err
	}
	p.Output()
	p.Low()
	g.log.Debug().Uint("bcm", n).Msg("configured GPIO output")
	return nil
}

func (g *GPIO) DigitalWrite(n uint, high bool) error {
	p, err := pin(n)
	if err != nil {
		return err
	}
	if high {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (g *GPIO) DigitalRead(n uint) (bool, error) {
	p, err := pin(n)
	if err != nil {
		return false, err
	}
	return p.Read() == rpio.High, nil
}
