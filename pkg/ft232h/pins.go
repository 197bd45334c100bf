package ft232h

import (
	"errors"
	"fmt"

	"github.com/yunginnanet/ft232h"
)

// NumCPins is the number of C-bus GPIO pins.
const NumCPins = 8

// ErrInvalidPin is returned for a pin outside C0 through C7.
var ErrInvalidPin = errors.New("FT232H GPIO pin must be in C0..C7")

func cPin(pin uint) (ft232h.CPin, error) {
	if pin >= NumCPins {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPin, pin)
	}
	return ft232h.CPin(1 << pin), nil
}

func (ft *FT232H) configPin(pin uint, dir ft232h.Dir) error {
	p, err := cPin(pin)
	if err != nil {
		return err
	}
	ft.log.Debug().Str("pin", p.String()).Uint("pos", uint(p.Pos())).Bool("output", dir == ft232h.Output).Msg("configuring GPIO")
	if err = ft.GPIO.ConfigPin(p, dir, false); err != nil {
		return fmt.Errorf("failed to configure %s: %w", p, err)
	}
	return nil
}

// ConfigInput configures C-bus pin as an input, for HX711 DOUT.
func (ft *FT232H) ConfigInput(pin uint) error {
	return ft.configPin(pin, ft232h.Input)
}

// ConfigOutput configures C-bus pin as an output driven low, for HX711 SCK.
func (ft *FT232H) ConfigOutput(pin uint) error {
	return ft.configPin(pin, ft232h.Output)
}

func (ft *FT232H) DigitalWrite(pin uint, high bool) error {
	p, err := cPin(pin)
	if err != nil {
		return err
	}
	return ft.GPIO.Set(p, high)
}

func (ft *FT232H) DigitalRead(pin uint) (bool, error) {
	p, err := cPin(pin)
	if err != nil {
		return false, err
	}
	return ft.GPIO.Get(p)
}
