// Package ft232h binds the HX711 driver to the C-bus GPIO pins of an FTDI
// FT232H USB bridge.
//
// Every pin operation is a USB transaction. On a full-speed host or a busy
// bus the clock-high phase of a transfer can exceed the 60µs after which the
// HX711 powers down; prefer a high-speed port with nothing else on it.
package ft232h

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yunginnanet/ft232h"

	"github.com/yunginnanet/ftdi-hx711/pkg/config"
	"github.com/yunginnanet/ftdi-hx711/pkg/hx711"
)

// FT232H is an open FT232H. It implements [hx711.PinInterface] on the C-bus
// pins C0 through C7.
type FT232H struct {
	*ft232h.FT232H
	hx711.HostClock

	log zerolog.Logger
}

func (ft *FT232H) String() string {
	return fmt.Sprintf("FT232H[%04x:%04x] %s (serial %q)", ft.VID(), ft.PID(), ft.Desc(), ft.Serial())
}

// SetLogger sets the logger used for pin configuration messages.
func (ft *FT232H) SetLogger(log zerolog.Logger) {
	ft.log = log
}

// ConnectFT232h opens the FT232H chosen by sel.
func ConnectFT232h(sel config.FT232HConfig) (*FT232H, error) {
	m, err := mask(sel)
	if err != nil {
		return nil, err
	}
	dev, err := ft232h.OpenMask(m)
	if err != nil {
		return nil, fmt.Errorf("failed to open FT232H %+v: %w", *m, err)
	}
	return &FT232H{
		FT232H:    dev,
		HostClock: hx711.NewHostClock(),
		log:       zerolog.Nop(),
	}, nil
}
