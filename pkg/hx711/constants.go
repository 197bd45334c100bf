package hx711

import "time"

// Gain selects the input channel and amplifier gain of the next conversion.
// The value is the number of clock pulses appended after the 24 data bits.
type Gain uint8

const (
	// Gain128 selects channel A with a gain of 128. 25 clock pulses total.
	Gain128 Gain = 1
	// Gain32 selects channel B with a gain of 32. 26 clock pulses total.
	Gain32 Gain = 2
	// Gain64 selects channel A with a gain of 64. 27 clock pulses total.
	Gain64 Gain = 3
)

// Pulses returns the number of trailing clock pulses for the gain mode.
func (g Gain) Pulses() uint8 {
	return uint8(g)
}

// Factor returns the amplifier gain, e.g. 128 for Gain128.
func (g Gain) Factor() int {
	switch g {
	case Gain128:
		return 128
	case Gain32:
		return 32
	case Gain64:
		return 64
	default:
		return 0
	}
}

func (g Gain) String() string {
	switch g {
	case Gain128:
		return "GAIN_128"
	case Gain32:
		return "GAIN_32"
	case Gain64:
		return "GAIN_64"
	default:
		return "(invalid gain)"
	}
}

// ParseGain maps an amplifier factor (128, 64 or 32) to its [Gain].
func ParseGain(factor int) (Gain, error) {
	switch factor {
	case 128:
		return Gain128, nil
	case 64:
		return Gain64, nil
	case 32:
		return Gain32, nil
	default:
		return 0, ErrInvalidGain
	}
}

// Sample counts
const (
	// MinSamples is the lower clamp for averaged reads.
	MinSamples = 1
	// MaxSamples is the upper clamp for averaged reads.
	MaxSamples = 50
	// DefaultAverageSamples is the sample count used by ReadAverage and GetWeight callers
	// that have no better number.
	DefaultAverageSamples = 5
	// DefaultTareSamples is the sample count used for taring.
	DefaultTareSamples = 10
)

// DefaultTimeoutMs is the ready-wait bound applied by NewHX711.
const DefaultTimeoutMs uint32 = 1000

// Timing, in microseconds
const (
	// clockPhaseUs is the hold time of each clock phase during a transfer.
	clockPhaseUs = 1
	// powerDownHoldUs exceeds the 60µs clock-high threshold of the device.
	powerDownHoldUs = 70
)

// bit 23 of a conversion result
const signBit24 = 0x800000

// dataBits is the width of one conversion result.
const dataBits = 24

// edgePollInterval bounds a single edge wait so the millisecond clock is re-checked.
const edgePollInterval = 10 * time.Millisecond
