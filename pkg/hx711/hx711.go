package hx711

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PinInterface is the platform capability set the driver performs all I/O through.
type PinInterface interface {
	// ConfigInput configures pin as a digital input.
	ConfigInput(pin uint) error
	// ConfigOutput configures pin as a digital output.
	ConfigOutput(pin uint) error

	DigitalWrite(pin uint, high bool) error
	DigitalRead(pin uint) (bool, error)

	// DelayMicroseconds blocks for at least us microseconds.
	DelayMicroseconds(us uint32)

	// Millis returns a monotonically increasing millisecond counter. It may wrap.
	Millis() uint32
}

// Observer receives every sample and weight the driver produces.
type Observer interface {
	ObserveSample(raw int32, err error)
	ObserveWeight(grams float32)
}

var (
	// ErrNotReady is returned when the device did not signal ready within the timeout.
	ErrNotReady = errors.New("hx711: timed out waiting for data ready")
	// ErrNotInitialized is returned by reads issued before Begin.
	ErrNotInitialized = errors.New("hx711: Begin has not been called")
	// ErrPoweredDown is returned by reads issued while the device is powered down.
	ErrPoweredDown = errors.New("hx711: device is powered down")
	// ErrInvalidGain is returned for an amplifier gain other than 128, 64 or 32.
	ErrInvalidGain = errors.New("hx711: invalid gain")
	// ErrBadReference is returned by Calibrate when no scale can be derived.
	ErrBadReference = errors.New("hx711: calibration reference produced no usable scale")
)

// State is the lifecycle state of the driver.
type State uint8

const (
	StateUninitialized State = iota
	StateReady
	StatePoweredDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StatePoweredDown:
		return "powered down"
	default:
		return "(invalid state)"
	}
}

// HX711 drives an HX711 load cell converter over a bit-banged data/clock pin pair.
//
// All operations block the caller for their full duration. Public methods are
// serialised so pin sequences never interleave.
type HX711 struct {
	mu   sync.Mutex
	pins PinInterface

	dataPin  uint
	clockPin uint

	tareOffset  int32
	scaleFactor float32
	gain        Gain
	timeoutMs   uint32

	state    State
	edgeWait bool

	log      zerolog.Logger
	observer Observer
}

// Option configures an [HX711] at construction.
type Option func(*HX711)

// WithLogger sets the logger used for timeouts, power transitions and calibration.
func WithLogger(log zerolog.Logger) Option {
	return func(hx *HX711) {
		hx.log = log
	}
}

// WithObserver registers an [Observer].
func WithObserver(o Observer) Option {
	return func(hx *HX711) {
		hx.observer = o
	}
}

// WithEdgeWait makes WaitForReady block on falling edge notifications when the
// [PinInterface] implements [EdgeWaiter]. Busy polling is used otherwise.
func WithEdgeWait() Option {
	return func(hx *HX711) {
		hx.edgeWait = true
	}
}

// NewHX711 constructs a driver for the given data (DOUT) and clock (SCK) pins.
// No I/O is performed; call Begin before reading.
func NewHX711(pins PinInterface, dataPin, clockPin uint, opts ...Option) *HX711 {
	hx := &HX711{
		pins:        pins,
		dataPin:     dataPin,
		clockPin:    clockPin,
		scaleFactor: 1.0,
		gain:        Gain128,
		timeoutMs:   DefaultTimeoutMs,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(hx)
	}
	return hx
}

func (hx *HX711) String() string {
	return fmt.Sprintf("HX711{DOUT:%d, SCK:%d, %s, state:%s}", hx.dataPin, hx.clockPin, hx.Gain(), hx.State())
}

// DataPin returns the DOUT pin identifier.
func (hx *HX711) DataPin() uint {
	return hx.dataPin
}

// ClockPin returns the SCK pin identifier.
func (hx *HX711) ClockPin() uint {
	return hx.clockPin
}

// Begin configures DOUT as input and SCK as output, drives SCK low and emits a
// short wake pulse. Call it once before any read.
func (hx *HX711) Begin() error {
	hx.mu.Lock()
	defer hx.mu.Unlock()

	if err := hx.pins.ConfigInput(hx.dataPin); err != nil {
		return fmt.Errorf("failed to configure DOUT pin %d: %w", hx.dataPin, err)
	}
	if err := hx.pins.ConfigOutput(hx.clockPin); err != nil {
		return fmt.Errorf("failed to configure SCK pin %d: %w", hx.clockPin, err)
	}

	if err := hx.setClock(false); err != nil {
		return err
	}
	hx.pins.DelayMicroseconds(clockPhaseUs)

	if err := hx.pulse(); err != nil {
		return err
	}

	hx.state = StateReady
	hx.log.Debug().Uint("dout", hx.dataPin).Uint("sck", hx.clockPin).Msg("hx711 initialized")
	return nil
}

// State returns the lifecycle state.
func (hx *HX711) State() State {
	hx.mu.Lock()
	s := hx.state
	hx.mu.Unlock()
	return s
}

// SetGain stores the gain mode. It takes effect on the conversion that follows the next read.
func (hx *HX711) SetGain(g Gain) {
	hx.mu.Lock()
	hx.gain = g
	hx.mu.Unlock()
}

// Gain returns the configured gain mode.
func (hx *HX711) Gain() Gain {
	hx.mu.Lock()
	g := hx.gain
	hx.mu.Unlock()
	return g
}

// SetTimeout sets the ready-wait bound in milliseconds. 0 waits forever.
func (hx *HX711) SetTimeout(timeoutMs uint32) {
	hx.mu.Lock()
	hx.timeoutMs = timeoutMs
	hx.mu.Unlock()
}

// Timeout returns the ready-wait bound in milliseconds.
func (hx *HX711) Timeout() uint32 {
	hx.mu.Lock()
	t := hx.timeoutMs
	hx.mu.Unlock()
	return t
}

func (hx *HX711) setClock(high bool) error {
	if err := hx.pins.DigitalWrite(hx.clockPin, high); err != nil {
		return fmt.Errorf("failed to drive SCK pin %d: %w", hx.clockPin, err)
	}
	return nil
}

// pulse drives SCK high then low, holding each phase.
func (hx *HX711) pulse() error {
	if err := hx.setClock(true); err != nil {
		return err
	}
	hx.pins.DelayMicroseconds(clockPhaseUs)
	if err := hx.setClock(false); err != nil {
		return err
	}
	hx.pins.DelayMicroseconds(clockPhaseUs)
	return nil
}

// PowerDown drives SCK low, then high, and holds it high past the device's 60µs
// power-down threshold.
func (hx *HX711) PowerDown() error {
	hx.mu.Lock()
	defer hx.mu.Unlock()

	if err := hx.setClock(false); err != nil {
		return err
	}
	hx.pins.DelayMicroseconds(clockPhaseUs)

	if err := hx.setClock(true); err != nil {
		return err
	}
	hx.pins.DelayMicroseconds(powerDownHoldUs)

	if hx.state == StateReady {
		hx.state = StatePoweredDown
	}
	hx.log.Debug().Msg("hx711 powered down")
	return nil
}

// PowerUp drives SCK low, waking the device. The device resets to Gain128 on
// wake and needs its settling time before the next valid conversion.
func (hx *HX711) PowerUp() error {
	hx.mu.Lock()
	defer hx.mu.Unlock()

	if err := hx.setClock(false); err != nil {
		return err
	}
	hx.pins.DelayMicroseconds(clockPhaseUs)

	if hx.state == StatePoweredDown {
		hx.state = StateReady
	}
	hx.log.Debug().Msg("hx711 powered up")
	return nil
}

var processEpoch = time.Now()

// HostClock implements the timing half of [PinInterface] on the host's
// monotonic clock. Bindings embed it.
type HostClock struct {
	epoch time.Time
}

// NewHostClock returns a HostClock whose millisecond counter starts at zero.
func NewHostClock() HostClock {
	return HostClock{epoch: time.Now()}
}

// DelayMicroseconds spins for us microseconds. The scheduler cannot sleep for
// single microseconds, and an overslept clock-high phase longer than 60µs
// powers the device down mid-transfer.
func (c HostClock) DelayMicroseconds(us uint32) {
	d := time.Duration(us) * time.Microsecond
	if d >= time.Millisecond {
		time.Sleep(d)
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

// Millis returns milliseconds since the clock was created, wrapping at 2^32.
func (c HostClock) Millis() uint32 {
	epoch := c.epoch
	if epoch.IsZero() {
		epoch = processEpoch
	}
	return uint32(time.Since(epoch).Milliseconds())
}
