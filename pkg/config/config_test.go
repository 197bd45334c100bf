package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yunginnanet/ftdi-hx711/pkg/hx711"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hx711.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, BackendFT232H, cfg.Backend)
	assert.Equal(t, uint(0), cfg.Pins.Data)
	assert.Equal(t, uint(1), cfg.Pins.Clock)
	assert.Equal(t, 128, cfg.Converter.Gain)
	assert.Equal(t, time.Second, cfg.Converter.Timeout)
	assert.Equal(t, float32(1.0), cfg.Calibration.Scale)
	assert.True(t, cfg.Calibration.TareOnStart)
	assert.Nil(t, cfg.Calibration.TareOffset)
	assert.Equal(t, hx711.DefaultTareSamples, cfg.Calibration.TareSamples)
	assert.Equal(t, hx711.DefaultAverageSamples, cfg.Calibration.AverageSamples)
	assert.NoError(t, cfg.Validate())

	g, err := cfg.Gain()
	require.NoError(t, err)
	assert.Equal(t, hx711.Gain128, g)
	assert.Equal(t, hx711.DefaultTimeoutMs, cfg.TimeoutMs())
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, `
backend: raspi
pins:
  data: 5
  clock: 6
converter:
  gain: 64
  timeout: 250ms
  edge_wait: true
calibration:
  scale: -412.5
  tare_offset: -8123
  tare_on_start: false
metrics:
  enabled: true
  cell: hopper
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendRaspi, cfg.Backend)
	assert.Equal(t, uint(5), cfg.Pins.Data)
	assert.Equal(t, uint(6), cfg.Pins.Clock)
	assert.Equal(t, 250*time.Millisecond, cfg.Converter.Timeout)
	assert.Equal(t, uint32(250), cfg.TimeoutMs())
	assert.True(t, cfg.Converter.EdgeWait)
	assert.Equal(t, float32(-412.5), cfg.Calibration.Scale)
	require.NotNil(t, cfg.Calibration.TareOffset)
	assert.Equal(t, int32(-8123), *cfg.Calibration.TareOffset)
	assert.False(t, cfg.Calibration.TareOnStart)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "hopper", cfg.Metrics.Cell)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())

	g, err := cfg.Gain()
	require.NoError(t, err)
	assert.Equal(t, hx711.Gain64, g)

	// defaults fill what the file leaves out
	assert.Equal(t, hx711.DefaultTareSamples, cfg.Calibration.TareSamples)
	assert.Equal(t, hx711.DefaultAverageSamples, cfg.Calibration.AverageSamples)
	assert.Equal(t, "hx711", cfg.Metrics.Namespace)
}

func TestLoad_Sim(t *testing.T) {
	path := writeConfig(t, `
backend: sim
pins: {data: 2, clock: 3}
sim:
  raw: [0x123456, 0xFFDC28]
  ready_delay: 90ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x123456, 0xFFDC28}, cfg.Sim.Raw)
	assert.Equal(t, 90*time.Millisecond, cfg.Sim.ReadyDelay)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "backend: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"UnknownBackend":  func(c *Config) { c.Backend = "spi" },
		"SamePins":        func(c *Config) { c.Pins.Clock = c.Pins.Data },
		"SamePeriphPins":  func(c *Config) { c.Backend = BackendPeriph; c.Periph.Clock = c.Periph.Data },
		"NoFT232H":        func(c *Config) { c.FT232H.Index = -1 },
		"BadGain":         func(c *Config) { c.Converter.Gain = 16 },
		"NegativeTimeout": func(c *Config) { c.Converter.Timeout = -time.Second },
		"SubMsTimeout":    func(c *Config) { c.Converter.Timeout = 500 * time.Microsecond },
		"HugeTimeout":     func(c *Config) { c.Converter.Timeout = 2000 * time.Hour },
		"HugeTareOffset":  func(c *Config) { off := int32(1 << 23); c.Calibration.TareOffset = &off },
		"NegativeSamples": func(c *Config) { c.Calibration.TareSamples = -1 },
		"UnknownLogLevel": func(c *Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	t.Run("PeriphIgnoresNumericPins", func(t *testing.T) {
		cfg := Default()
		cfg.Backend = BackendPeriph
		cfg.Pins.Clock = cfg.Pins.Data
		assert.NoError(t, cfg.Validate())
	})

	t.Run("TareOffsetBounds", func(t *testing.T) {
		for _, off := range []int32{-1 << 23, 0, 1<<23 - 1} {
			cfg := Default()
			cfg.Calibration.TareOffset = &off
			assert.NoError(t, cfg.Validate(), "offset %d", off)
		}
	})

	t.Run("ZeroTimeoutWaitsForever", func(t *testing.T) {
		cfg := Default()
		cfg.Converter.Timeout = 0
		assert.NoError(t, cfg.Validate())
		assert.Zero(t, cfg.TimeoutMs())
	})

	t.Run("LoadRejects", func(t *testing.T) {
		_, err := Load(writeConfig(t, "converter: {gain: 100}"))
		assert.ErrorIs(t, err, ErrInvalid)
	})
}
