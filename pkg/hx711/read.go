package hx711

import (
	"fmt"
	"time"
)

// EdgeWaiter is implemented by a [PinInterface] that can block until the DOUT
// line falls instead of being polled.
type EdgeWaiter interface {
	// WaitForFallingEdge blocks until DOUT falls or timeout elapses. It reports
	// whether an edge was seen; a negative timeout waits forever.
	WaitForFallingEdge(timeout time.Duration) bool
}

// WaitForReady waits for DOUT to go low, which the device does once a conversion
// is available. It returns false if timeoutMs milliseconds elapse first. A
// timeoutMs of 0 waits without bound.
func (hx *HX711) WaitForReady(timeoutMs uint32) bool {
	hx.mu.Lock()
	ready, err := hx.waitForReady(timeoutMs)
	hx.mu.Unlock()
	if err != nil {
		hx.log.Debug().Err(err).Msg("ready wait failed")
	}
	return ready
}

func (hx *HX711) waitForReady(timeoutMs uint32) (bool, error) {
	var ew EdgeWaiter
	if hx.edgeWait {
		ew, _ = hx.pins.(EdgeWaiter)
	}

	start := hx.pins.Millis()
	for {
		high, err := hx.pins.DigitalRead(hx.dataPin)
		if err != nil {
			return false, fmt.Errorf("failed to read DOUT pin %d: %w", hx.dataPin, err)
		}
		if !high {
			return true, nil
		}

		elapsed := elapsedMs(start, hx.pins.Millis())
		if timeoutMs > 0 && elapsed >= timeoutMs {
			return false, nil
		}

		if ew != nil {
			wait := edgePollInterval
			if remaining := time.Duration(timeoutMs-elapsed) * time.Millisecond; timeoutMs > 0 && remaining < wait {
				wait = remaining
			}
			ew.WaitForFallingEdge(wait)
		}
	}
}

// Sample reads one conversion result like ReadRaw, but reports failures instead
// of returning the 0 sentinel. A ready-wait timeout yields [ErrNotReady].
func (hx *HX711) Sample() (int32, error) {
	hx.mu.Lock()
	v, err := hx.sample()
	hx.mu.Unlock()
	return v, err
}

// ReadRaw reads one sign-extended 24-bit conversion result. It returns 0 if
// the device does not become ready within the configured timeout, or on any
// other failure; use [HX711.Sample] to tell those cases apart.
func (hx *HX711) ReadRaw() int32 {
	v, err := hx.Sample()
	if err != nil {
		hx.log.Debug().Err(err).Msg("raw read failed, returning 0")
		return 0
	}
	return v
}

// ReadAverage returns the truncated mean of samples raw reads, with samples
// clamped to [MinSamples, MaxSamples]. Failed reads contribute 0.
func (hx *HX711) ReadAverage(samples int) int32 {
	hx.mu.Lock()
	avg, _ := hx.average(samples, false)
	hx.mu.Unlock()
	return avg
}

// Average is ReadAverage, but stops at and returns the first failed read.
func (hx *HX711) Average(samples int) (int32, error) {
	hx.mu.Lock()
	avg, err := hx.average(samples, true)
	hx.mu.Unlock()
	return avg, err
}

func (hx *HX711) average(samples int, strict bool) (int32, error) {
	n := ClampSamples(samples)

	// 50 reads near ±2^23 overflow int32
	var sum int64
	for i := 0; i < n; i++ {
		v, err := hx.sample()
		if err != nil {
			if strict {
				return 0, err
			}
			hx.log.Debug().Err(err).Int("sample", i).Msg("raw read failed, counting as 0")
			v = 0
		}
		sum += int64(v)
	}

	return int32(sum / int64(n)), nil
}

func (hx *HX711) sample() (int32, error) {
	v, err := hx.readDataBits()
	if hx.observer != nil {
		hx.observer.ObserveSample(v, err)
	}
	return v, err
}

// readDataBits waits for ready, shifts in 24 bits MSB first and then clocks the
// gain pulses that select the next conversion. Once the first bit is clocked the
// transfer runs to completion.
func (hx *HX711) readDataBits() (int32, error) {
	switch hx.state {
	case StateUninitialized:
		return 0, ErrNotInitialized
	case StatePoweredDown:
		return 0, ErrPoweredDown
	}

	ready, err := hx.waitForReady(hx.timeoutMs)
	if err != nil {
		return 0, err
	}
	if !ready {
		return 0, fmt.Errorf("%w after %dms", ErrNotReady, hx.timeoutMs)
	}

	var value uint32
	for i := 0; i < dataBits; i++ {
		if err = hx.setClock(true); err != nil {
			return 0, err
		}
		hx.pins.DelayMicroseconds(clockPhaseUs)

		bit, err := hx.pins.DigitalRead(hx.dataPin)
		if err != nil {
			return 0, fmt.Errorf("failed to read DOUT pin %d at bit %d: %w", hx.dataPin, dataBits-1-i, err)
		}
		value <<= 1
		if bit {
			value |= 0x01
		}

		if err = hx.setClock(false); err != nil {
			return 0, err
		}
		hx.pins.DelayMicroseconds(clockPhaseUs)
	}

	for i := uint8(0); i < hx.gain.Pulses(); i++ {
		if err = hx.pulse(); err != nil {
			return 0, err
		}
	}

	return Convert24To32(value), nil
}

// Convert24To32 interprets the low 24 bits of raw as a two's complement
// value and sign extends it to 32 bits.
func Convert24To32(raw uint32) int32 {
	raw &= 0x00FFFFFF
	// sign extension
	if (raw & signBit24) != 0 {
		raw |= 0xFF000000
	}
	return int32(raw)
}

// ClampSamples limits n to [MinSamples, MaxSamples].
func ClampSamples(n int) int {
	if n < MinSamples {
		return MinSamples
	}
	if n > MaxSamples {
		return MaxSamples
	}
	return n
}

// elapsedMs returns now-start on a wrapping millisecond counter.
func elapsedMs(start, now uint32) uint32 {
	return now - start
}
