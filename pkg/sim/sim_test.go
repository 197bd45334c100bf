package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clockIn reads a full 24-bit value the way the driver does.
func clockIn(t *testing.T, d *Device, pulses int) uint32 {
	t.Helper()
	var v uint32
	for i := 0; i < 24; i++ {
		require.NoError(t, d.DigitalWrite(3, true))
		bit, err := d.DigitalRead(2)
		require.NoError(t, err)
		v <<= 1
		if bit {
			v |= 1
		}
		require.NoError(t, d.DigitalWrite(3, false))
	}
	for i := 0; i < pulses; i++ {
		require.NoError(t, d.DigitalWrite(3, true))
		require.NoError(t, d.DigitalWrite(3, false))
	}
	return v
}

func newDevice(t *testing.T, values ...uint32) *Device {
	t.Helper()
	d := New(2, 3, values...)
	require.NoError(t, d.ConfigInput(2))
	require.NoError(t, d.ConfigOutput(3))
	return d
}

func TestDeviceShiftsValues(t *testing.T) {
	d := newDevice(t, 0xABCDEF, 0x123456)

	high, err := d.DigitalRead(2)
	require.NoError(t, err)
	require.False(t, high, "device should be ready")
	assert.Equal(t, uint32(0xABCDEF), clockIn(t, d, 2))

	high, err = d.DigitalRead(2)
	require.NoError(t, err)
	require.False(t, high)
	assert.Equal(t, uint32(0x123456), clockIn(t, d, 3))

	high, err = d.DigitalRead(2)
	require.NoError(t, err)
	require.False(t, high)
	assert.Equal(t, uint32(0x123456), clockIn(t, d, 1), "last value repeats")

	assert.Equal(t, []uint32{0xABCDEF, 0x123456, 0x123456}, d.Transfers())
	assert.Equal(t, []int{2, 3, 1}, d.GainPulses())
}

func TestDevicePush(t *testing.T) {
	d := newDevice(t, 1)
	_, _ = d.DigitalRead(2)
	assert.Equal(t, uint32(1), clockIn(t, d, 1))

	d.Push(0x1000000 | 7)
	_, _ = d.DigitalRead(2)
	assert.Equal(t, uint32(7), clockIn(t, d, 1), "only 24 bits are kept")
}

func TestDeviceUnarmedPulsesAreWake(t *testing.T) {
	d := newDevice(t, 5)
	require.NoError(t, d.DigitalWrite(3, true))
	require.NoError(t, d.DigitalWrite(3, false))
	assert.Equal(t, 1, d.WakePulses())
	assert.Empty(t, d.Transfers())
}

func TestDeviceReadyDelay(t *testing.T) {
	d := newDevice(t)
	d.SetReadCost(time.Millisecond)
	d.SetReadyDelay(3 * time.Millisecond)

	var reads int
	for {
		high, err := d.DigitalRead(2)
		require.NoError(t, err)
		reads++
		if !high {
			break
		}
	}
	assert.Equal(t, 3, reads)
	assert.Equal(t, uint32(3), d.Millis())
}

func TestDevicePowerDown(t *testing.T) {
	d := newDevice(t, 9)
	require.NoError(t, d.DigitalWrite(3, true))
	d.DelayMicroseconds(61)
	assert.True(t, d.PoweredDown())

	high, err := d.DigitalRead(2)
	require.NoError(t, err)
	assert.True(t, high, "powered down device is never ready")

	d.SetWakeDelay(400 * time.Microsecond)
	require.NoError(t, d.DigitalWrite(3, false))
	assert.False(t, d.PoweredDown())

	assert.False(t, d.WaitForFallingEdge(100*time.Microsecond))
	assert.True(t, d.WaitForFallingEdge(-1))
	high, err = d.DigitalRead(2)
	require.NoError(t, err)
	assert.False(t, high)
}

func TestDevicePins(t *testing.T) {
	d := New(2, 3)
	assert.ErrorIs(t, d.ConfigInput(9), ErrUnknownPin)
	_, err := d.DigitalRead(2)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, d.DigitalWrite(3, true), ErrNotConfigured)

	require.NoError(t, d.ConfigInput(2))
	require.NoError(t, d.ConfigOutput(3))
	assert.ErrorIs(t, d.DigitalWrite(2, true), ErrUnknownPin)
	_, err = d.DigitalRead(3)
	assert.ErrorIs(t, err, ErrUnknownPin)
	assert.Equal(t, Input, d.Mode(2))
	assert.Equal(t, Output, d.Mode(3))
}
