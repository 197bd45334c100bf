// Package sim provides a simulated HX711 that satisfies hx711.PinInterface on
// a virtual clock, for tests and for running without hardware.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// powerDownUs is the clock-high duration after which the device powers down.
const powerDownUs = 60

// DefaultReadCost is the virtual time consumed by each DOUT read.
const DefaultReadCost = 10 * time.Microsecond

var (
	ErrUnknownPin    = errors.New("sim: unknown pin")
	ErrNotConfigured = errors.New("sim: pin direction not configured")
)

// Mode is the configured direction of a pin.
type Mode uint8

const (
	Unconfigured Mode = iota
	Input
	Output
)

// Device simulates one HX711 wired to a data and a clock pin.
//
// A conversion becomes ready after the configured ready delay, at which point
// DOUT reads low. Once a read has observed DOUT low, rising clock edges shift
// the queued value out MSB first; edges after the 24th are counted as gain
// pulses. Holding the clock high for more than 60µs powers the device down.
type Device struct {
	mu sync.Mutex

	dataPin  uint
	clockPin uint
	modes    map[uint]Mode

	nowUs        uint64
	millisBase   uint32
	readCostUs   uint64
	readyDelay   uint64
	wakeDelay    uint64
	readyAtUs    uint64
	neverReady   bool
	readErr      error
	writeErr     error
	values       []uint32
	repeat       bool
	current      uint32
	transfers    []uint32
	gainPulses   []int
	acknowledged bool

	clockHigh        bool
	clockHighSinceUs uint64
	edges            int
	poweredDown      bool
	wakePulses       int
}

// New returns a Device on the given pins that will shift out values in order,
// repeating the last one. With no values it shifts out 0.
func New(dataPin, clockPin uint, values ...uint32) *Device {
	d := &Device{
		dataPin:    dataPin,
		clockPin:   clockPin,
		modes:      make(map[uint]Mode, 2),
		readCostUs: uint64(DefaultReadCost / time.Microsecond),
	}
	d.Push(values...)
	return d
}

func (d *Device) String() string {
	return fmt.Sprintf("sim.Device{DOUT:%d, SCK:%d, now:%s}", d.dataPin, d.clockPin, d.Now())
}

// Push queues conversion results. Only the low 24 bits are shifted out.
func (d *Device) Push(values ...uint32) {
	d.mu.Lock()
	if d.repeat && len(values) > 0 {
		d.values = d.values[:0]
		d.repeat = false
	}
	for _, v := range values {
		d.values = append(d.values, v&0x00FFFFFF)
	}
	d.mu.Unlock()
}

// SetReadyDelay sets how long after power-on and after each transfer the
// next conversion takes to become ready.
func (d *Device) SetReadyDelay(delay time.Duration) {
	d.mu.Lock()
	d.readyDelay = uint64(delay / time.Microsecond)
	d.readyAtUs = d.nowUs + d.readyDelay
	d.mu.Unlock()
}

// SetWakeDelay sets the settling time after leaving power-down.
func (d *Device) SetWakeDelay(delay time.Duration) {
	d.mu.Lock()
	d.wakeDelay = uint64(delay / time.Microsecond)
	d.mu.Unlock()
}

// SetReadCost sets the virtual time consumed by each DOUT read.
func (d *Device) SetReadCost(cost time.Duration) {
	d.mu.Lock()
	d.readCostUs = uint64(cost / time.Microsecond)
	d.mu.Unlock()
}

// SetNeverReady keeps DOUT high forever when true.
func (d *Device) SetNeverReady(never bool) {
	d.mu.Lock()
	d.neverReady = never
	d.mu.Unlock()
}

// SetMillisBase offsets the millisecond counter, e.g. to test wraparound.
func (d *Device) SetMillisBase(base uint32) {
	d.mu.Lock()
	d.millisBase = base
	d.mu.Unlock()
}

// FailReads makes every DigitalRead return err. A nil err clears the failure.
func (d *Device) FailReads(err error) {
	d.mu.Lock()
	d.readErr = err
	d.mu.Unlock()
}

// FailWrites makes every DigitalWrite return err. A nil err clears the failure.
func (d *Device) FailWrites(err error) {
	d.mu.Lock()
	d.writeErr = err
	d.mu.Unlock()
}

// Now returns the virtual time elapsed since the device was created.
func (d *Device) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return time.Duration(d.nowUs) * time.Microsecond
}

// Mode returns the configured direction of pin.
func (d *Device) Mode(pin uint) Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.modes[pin]
}

// ClockHigh reports the current level of the clock line.
func (d *Device) ClockHigh() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clockHigh
}

// PoweredDown reports whether the device is in its low-power state.
func (d *Device) PoweredDown() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkPowerDown()
	return d.poweredDown
}

// Transfers returns every value shifted out so far.
func (d *Device) Transfers() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finishTransfer()
	return append([]uint32(nil), d.transfers...)
}

// GainPulses returns the number of trailing clock pulses seen after each transfer.
func (d *Device) GainPulses() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finishTransfer()
	return append([]int(nil), d.gainPulses...)
}

// WakePulses returns the number of clock pulses seen while no transfer was armed.
func (d *Device) WakePulses() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wakePulses
}

func (d *Device) ConfigInput(pin uint) error {
	return d.configure(pin, Input)
}

func (d *Device) ConfigOutput(pin uint) error {
	return d.configure(pin, Output)
}

func (d *Device) configure(pin uint, m Mode) error {
	if pin != d.dataPin && pin != d.clockPin {
		return fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	d.mu.Lock()
	d.modes[pin] = m
	d.mu.Unlock()
	return nil
}

func (d *Device) DigitalWrite(pin uint, high bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.writeErr != nil {
		return d.writeErr
	}
	if pin != d.clockPin {
		return fmt.Errorf("%w: %d is not the clock pin", ErrUnknownPin, pin)
	}
	if d.modes[pin] != Output {
		return fmt.Errorf("%w: %d", ErrNotConfigured, pin)
	}

	switch {
	case high && !d.clockHigh:
		d.clockHigh = true
		d.clockHighSinceUs = d.nowUs
		d.risingEdge()
	case !high && d.clockHigh:
		d.checkPowerDown()
		d.clockHigh = false
		if d.poweredDown {
			d.poweredDown = false
			d.edges = 0
			d.acknowledged = false
			d.readyAtUs = d.nowUs + d.wakeDelay
		}
	}
	return nil
}

func (d *Device) DigitalRead(pin uint) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.readErr != nil {
		return false, d.readErr
	}
	if pin != d.dataPin {
		return false, fmt.Errorf("%w: %d is not the data pin", ErrUnknownPin, pin)
	}
	if d.modes[pin] != Input {
		return false, fmt.Errorf("%w: %d", ErrNotConfigured, pin)
	}

	d.nowUs += d.readCostUs
	d.checkPowerDown()

	if d.edges > 0 && d.edges <= 24 && !d.poweredDown {
		return d.current&(1<<(24-d.edges)) != 0, nil
	}

	if !d.clockHigh {
		d.finishTransfer()
	}
	if d.ready() {
		if !d.acknowledged {
			d.acknowledged = true
			d.next()
		}
		return false, nil
	}
	return true, nil
}

func (d *Device) DelayMicroseconds(us uint32) {
	d.mu.Lock()
	d.nowUs += uint64(us)
	d.mu.Unlock()
}

func (d *Device) Millis() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.millisBase + uint32(d.nowUs/1000)
}

// WaitForFallingEdge advances virtual time to the next ready transition, or by
// timeout if that comes first. A negative timeout waits forever.
func (d *Device) WaitForFallingEdge(timeout time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.neverReady || d.poweredDown {
		if timeout > 0 {
			d.nowUs += uint64(timeout / time.Microsecond)
		}
		return false
	}
	if d.nowUs >= d.readyAtUs {
		return true
	}
	wait := d.readyAtUs - d.nowUs
	if timeout >= 0 && uint64(timeout/time.Microsecond) < wait {
		d.nowUs += uint64(timeout / time.Microsecond)
		return false
	}
	d.nowUs = d.readyAtUs
	return true
}

func (d *Device) ready() bool {
	return !d.neverReady && !d.poweredDown && d.edges == 0 && d.nowUs >= d.readyAtUs
}

func (d *Device) risingEdge() {
	if d.poweredDown {
		return
	}
	if d.edges == 0 && !d.acknowledged {
		d.wakePulses++
		return
	}
	d.edges++
}

func (d *Device) checkPowerDown() {
	if d.clockHigh && !d.poweredDown && d.nowUs-d.clockHighSinceUs > powerDownUs {
		// the edge that started the hold is not a gain pulse
		if d.edges > 24 {
			d.record(d.edges - 25)
		}
		d.poweredDown = true
		d.edges = 0
		d.acknowledged = false
	}
}

// finishTransfer records a completed transfer and arms the next conversion.
func (d *Device) finishTransfer() {
	if d.edges < 24 || d.clockHigh {
		return
	}
	d.record(d.edges - 24)
	d.edges = 0
	d.acknowledged = false
	d.readyAtUs = d.nowUs + d.readyDelay
}

func (d *Device) record(pulses int) {
	d.transfers = append(d.transfers, d.current)
	d.gainPulses = append(d.gainPulses, pulses)
}

// next loads the value for the conversion just armed. The last queued value
// repeats until more are pushed.
func (d *Device) next() {
	switch len(d.values) {
	case 0:
		d.current = 0
	case 1:
		d.current = d.values[0]
		d.repeat = true
	default:
		d.current = d.values[0]
		d.values = d.values[1:]
	}
}
