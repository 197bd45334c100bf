package ft232h

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/yunginnanet/ft232h"

	"github.com/yunginnanet/ftdi-hx711/pkg/config"
)

// ErrNoDevice is returned when a selector names neither a serial number nor an index.
var ErrNoDevice = errors.New("FT232H selector names no device")

// mask builds the device match mask for sel. A serial number takes precedence
// over the index.
func mask(sel config.FT232HConfig) (*ft232h.Mask, error) {
	switch {
	case sel.Serial != "":
		return &ft232h.Mask{Serial: sel.Serial}, nil
	case sel.Index >= 0:
		return &ft232h.Mask{Index: strconv.Itoa(sel.Index)}, nil
	default:
		return nil, fmt.Errorf("%w: index %d", ErrNoDevice, sel.Index)
	}
}
