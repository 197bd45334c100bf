package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/yunginnanet/ftdi-hx711/pkg/hx711"
)

// Backends
const (
	BackendFT232H = "ft232h"
	BackendRaspi  = "raspi"
	BackendPeriph = "periph"
	BackendSim    = "sim"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config describes one load cell and the GPIO backend it is wired to.
type Config struct {
	Backend     string            `yaml:"backend"`
	Pins        PinsConfig        `yaml:"pins"`
	Converter   ConverterConfig   `yaml:"converter"`
	Calibration CalibrationConfig `yaml:"calibration"`
	FT232H      FT232HConfig      `yaml:"ft232h"`
	Periph      PeriphConfig      `yaml:"periph"`
	Sim         SimConfig         `yaml:"sim"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	LogLevel    string            `yaml:"log_level"`
}

// PinsConfig holds the backend pin numbers: C-bus index on FT232H, BCM number
// on a Raspberry Pi, map keys for periph.
type PinsConfig struct {
	Data  uint `yaml:"data"`
	Clock uint `yaml:"clock"`
}

// ConverterConfig configures the HX711 itself.
type ConverterConfig struct {
	Gain     int           `yaml:"gain"`      // 128, 64 or 32
	Timeout  time.Duration `yaml:"timeout"`   // ready-wait bound, 0 waits forever
	EdgeWait bool          `yaml:"edge_wait"` // block on DOUT edges where the backend supports it
}

// CalibrationConfig holds the calibration applied at start-up.
type CalibrationConfig struct {
	Scale          float32 `yaml:"scale"`       // raw units per gram
	TareOffset     *int32  `yaml:"tare_offset"` // used instead of taring when set
	TareOnStart    bool    `yaml:"tare_on_start"`
	TareSamples    int     `yaml:"tare_samples"`
	AverageSamples int     `yaml:"average_samples"`
}

// FT232HConfig selects the FT232H. Serial wins over Index when set; Index 0
// is the first device found.
type FT232HConfig struct {
	Index  int    `yaml:"index"`
	Serial string `yaml:"serial"`
}

// PeriphConfig names the periph.io pins, e.g. "GPIO5".
type PeriphConfig struct {
	Data  string `yaml:"data"`
	Clock string `yaml:"clock"`
}

// SimConfig configures the simulated converter.
type SimConfig struct {
	Raw        []uint32      `yaml:"raw"`
	ReadyDelay time.Duration `yaml:"ready_delay"`
}

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Cell      string `yaml:"cell"` // const label distinguishing load cells
}

// Default returns a default configuration: an FT232H with DOUT on C0 and SCK on C1.
func Default() *Config {
	return &Config{
		Backend: BackendFT232H,
		Pins: PinsConfig{
			Data:  0,
			Clock: 1,
		},
		Converter: ConverterConfig{
			Gain:    128,
			Timeout: time.Duration(hx711.DefaultTimeoutMs) * time.Millisecond,
		},
		Calibration: CalibrationConfig{
			Scale:          1.0,
			TareOnStart:    true,
			TareSamples:    hx711.DefaultTareSamples,
			AverageSamples: hx711.DefaultAverageSamples,
		},
		FT232H: FT232HConfig{
			Index: 0,
		},
		Periph: PeriphConfig{
			Data:  "GPIO5",
			Clock: "GPIO6",
		},
		Metrics: MetricsConfig{
			Namespace: "hx711",
			Cell:      "default",
		},
		LogLevel: zerolog.InfoLevel.String(),
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) ensureDefaults() {
	def := Default()

	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.Converter.Gain == 0 {
		c.Converter.Gain = def.Converter.Gain
	}
	if c.Calibration.Scale == 0 {
		c.Calibration.Scale = def.Calibration.Scale
	}
	if c.Calibration.TareSamples == 0 {
		c.Calibration.TareSamples = def.Calibration.TareSamples
	}
	if c.Calibration.AverageSamples == 0 {
		c.Calibration.AverageSamples = def.Calibration.AverageSamples
	}
	if c.Periph.Data == "" {
		c.Periph.Data = def.Periph.Data
	}
	if c.Periph.Clock == "" {
		c.Periph.Clock = def.Periph.Clock
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = def.Metrics.Namespace
	}
	if c.Metrics.Cell == "" {
		c.Metrics.Cell = def.Metrics.Cell
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate reports the first problem with the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFT232H, BackendRaspi, BackendPeriph, BackendSim:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend)
	}

	if c.Backend == BackendPeriph {
		if c.Periph.Data == c.Periph.Clock {
			return fmt.Errorf("%w: data and clock pin are both %q", ErrInvalid, c.Periph.Data)
		}
	} else if c.Pins.Data == c.Pins.Clock {
		return fmt.Errorf("%w: data and clock pin are both %d", ErrInvalid, c.Pins.Data)
	}

	if c.Backend == BackendFT232H && c.FT232H.Serial == "" && c.FT232H.Index < 0 {
		return fmt.Errorf("%w: ft232h needs a serial number or an index >= 0", ErrInvalid)
	}

	if _, err := c.Gain(); err != nil {
		return fmt.Errorf("%w: gain %d: %v", ErrInvalid, c.Converter.Gain, err)
	}

	if c.Converter.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalid, c.Converter.Timeout)
	}
	if c.Converter.Timeout.Milliseconds() > math.MaxUint32 {
		return fmt.Errorf("%w: timeout %s too long", ErrInvalid, c.Converter.Timeout)
	}
	if c.Converter.Timeout > 0 && c.Converter.Timeout < time.Millisecond {
		return fmt.Errorf("%w: timeout %s below 1ms would wait forever", ErrInvalid, c.Converter.Timeout)
	}

	if off := c.Calibration.TareOffset; off != nil && (*off < -1<<23 || *off > 1<<23-1) {
		return fmt.Errorf("%w: tare offset %d outside the 24-bit range", ErrInvalid, *off)
	}

	if c.Calibration.TareSamples < 0 || c.Calibration.AverageSamples < 0 {
		return fmt.Errorf("%w: negative sample count", ErrInvalid)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %v", ErrInvalid, err)
	}

	return nil
}

// Gain returns the configured gain mode.
func (c *Config) Gain() (hx711.Gain, error) {
	return hx711.ParseGain(c.Converter.Gain)
}

// TimeoutMs returns the ready-wait bound in milliseconds.
func (c *Config) TimeoutMs() uint32 {
	return uint32(c.Converter.Timeout.Milliseconds())
}

// Level returns the parsed log level, Info if it does not parse.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
