package periph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func newPins(edges bool) (*Pins, *gpiotest.Pin, *gpiotest.Pin) {
	dout := &gpiotest.Pin{N: "GPIO5", Num: 5, L: gpio.High, EdgesChan: make(chan gpio.Level, 1)}
	sck := &gpiotest.Pin{N: "GPIO6", Num: 6, L: gpio.High}
	var opts []Option
	if edges {
		opts = append(opts, WithEdgeDetection())
	}
	return New(map[uint]gpio.PinIO{5: dout, 6: sck}, opts...), dout, sck
}

func TestPins(t *testing.T) {
	p, dout, sck := newPins(false)

	require.NoError(t, p.ConfigInput(5))
	require.NoError(t, p.ConfigOutput(6))
	assert.Equal(t, gpio.Low, sck.Read(), "output starts low")

	require.NoError(t, p.DigitalWrite(6, true))
	assert.Equal(t, gpio.High, sck.Read())
	require.NoError(t, p.DigitalWrite(6, false))
	assert.Equal(t, gpio.Low, sck.Read())

	high, err := p.DigitalRead(5)
	require.NoError(t, err)
	assert.True(t, high)

	require.NoError(t, dout.Out(gpio.Low))
	high, err = p.DigitalRead(5)
	require.NoError(t, err)
	assert.False(t, high)

	assert.False(t, p.WaitForFallingEdge(time.Millisecond), "no edge pin configured")
}

func TestUnknownPin(t *testing.T) {
	p, _, _ := newPins(false)
	assert.ErrorIs(t, p.ConfigInput(1), ErrUnknownPin)
	assert.ErrorIs(t, p.ConfigOutput(1), ErrUnknownPin)
	assert.ErrorIs(t, p.DigitalWrite(1, true), ErrUnknownPin)
	_, err := p.DigitalRead(1)
	assert.ErrorIs(t, err, ErrUnknownPin)
}

func TestWaitForFallingEdge(t *testing.T) {
	p, dout, _ := newPins(true)
	require.NoError(t, p.ConfigInput(5))

	assert.False(t, p.WaitForFallingEdge(time.Millisecond))

	dout.EdgesChan <- gpio.Low
	assert.True(t, p.WaitForFallingEdge(time.Second))
}
