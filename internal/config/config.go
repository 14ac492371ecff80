package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// SlowNoC describes the narrower, slower interconnect used by the slow-NoC
// experiments.
type SlowNoC struct {
	ClockRate int64 `yaml:"clockRate"` // Hz
	Width     int   `yaml:"width"`     // bits
}

// Config represents the latency model parameters
type Config struct {
	// Clocks
	CoreClockRate int64 `yaml:"coreClockRate"` // Hz
	NoCClockRate  int64 `yaml:"nocClockRate"`  // Hz

	// Interconnect
	NoCWidth int     `yaml:"nocWidth"` // bits
	SlowNoC  SlowNoC `yaml:"slowNoC"`

	// Load-store log
	LSLEntryWidth       int `yaml:"lslEntryWidth"`       // bits, average
	HashedLSLEntryWidth int `yaml:"hashedLSLEntryWidth"` // bits, address + size only
	LSLMessageWidth     int `yaml:"lslMessageWidth"`     // bits per push

	// LLC responses
	ResponseWidth           int `yaml:"responseWidth"`           // bits
	ResponseOverheadPackets int `yaml:"responseOverheadPackets"` // address and metadata

	// Benchmarks printed with a _roi suffix
	ROIBenchmarks []string `yaml:"roiBenchmarks"`

	// Column of the slow-NoC estimate table to read, keyed by topology
	SlowNoCEstimateColumns map[string]string `yaml:"slowNoCEstimateColumns"`

	// Run modes, normally set from the command line
	UseSlowNoC bool `yaml:"useSlowNoC"`
	Hashed     bool `yaml:"hashed"`
}

// LoadConfig loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is usable by the model.
func (c *Config) Validate() error {
	return validateConfig(c)
}

// validateConfig checks if the configuration is valid
func validateConfig(cfg *Config) error {
	if cfg.CoreClockRate <= 0 {
		return fmt.Errorf("core clock rate must be positive")
	}

	if cfg.NoCClockRate <= 0 {
		return fmt.Errorf("NoC clock rate must be positive")
	}

	if cfg.NoCWidth <= 0 {
		return fmt.Errorf("NoC width must be positive")
	}

	if cfg.SlowNoC.ClockRate <= 0 || cfg.SlowNoC.Width <= 0 {
		return fmt.Errorf("slow NoC clock rate and width must be positive")
	}

	if cfg.LSLMessageWidth <= 0 {
		return fmt.Errorf("LSL message width must be positive")
	}

	if cfg.LSLEntryWidth <= 0 || cfg.LSLEntryWidth > cfg.LSLMessageWidth {
		return fmt.Errorf("LSL entry width must be in (0, %d], got %d",
			cfg.LSLMessageWidth, cfg.LSLEntryWidth)
	}

	if cfg.HashedLSLEntryWidth <= 0 || cfg.HashedLSLEntryWidth > cfg.LSLMessageWidth {
		return fmt.Errorf("hashed LSL entry width must be in (0, %d], got %d",
			cfg.LSLMessageWidth, cfg.HashedLSLEntryWidth)
	}

	if cfg.ResponseWidth <= 0 {
		return fmt.Errorf("response width must be positive")
	}

	if cfg.ResponseOverheadPackets < 0 {
		return fmt.Errorf("response overhead must not be negative")
	}

	return nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		CoreClockRate: 3000000000, // 3 GHz
		NoCClockRate:  2000000000, // 2 GHz
		NoCWidth:      256,

		SlowNoC: SlowNoC{
			ClockRate: 1500000000, // 1.5 GHz
			Width:     128,
		},

		LSLEntryWidth:       128,
		HashedLSLEntryWidth: 64,
		LSLMessageWidth:     512,

		ResponseWidth:           512,
		ResponseOverheadPackets: 1,

		ROIBenchmarks: []string{"bc", "bfs", "cc", "pr"},

		SlowNoCEstimateColumns: map[string]string{
			"1M2C": "X2_slowNoC",
			"1M4C": "A510_slowNoC",
			"2M":   "A510_slowNoC",
			"4M":   "A510_slowNoC",
			"4x4i": "4x4i",
			"4x4o": "4x4o%dc",
		},
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c

	out.ROIBenchmarks = append([]string(nil), c.ROIBenchmarks...)

	out.SlowNoCEstimateColumns = make(map[string]string, len(c.SlowNoCEstimateColumns))
	for k, v := range c.SlowNoCEstimateColumns {
		out.SlowNoCEstimateColumns[k] = v
	}

	return &out
}

// EffectiveNoCWidth is the link width in bits after the slow-NoC mode is
// applied.
func (c *Config) EffectiveNoCWidth() int {
	if c.UseSlowNoC {
		return c.SlowNoC.Width
	}
	return c.NoCWidth
}

// EffectiveNoCClockRate is the NoC clock in Hz after the slow-NoC mode is
// applied.
func (c *Config) EffectiveNoCClockRate() int64 {
	if c.UseSlowNoC {
		return c.SlowNoC.ClockRate
	}
	return c.NoCClockRate
}

// EntryWidth is the LSL entry width in bits for the current encoding.
func (c *Config) EntryWidth() int {
	if c.Hashed {
		return c.HashedLSLEntryWidth
	}
	return c.LSLEntryWidth
}

// EntriesPerMessage is the number of LSL entries carried by one push.
func (c *Config) EntriesPerMessage() float64 {
	return float64(c.LSLMessageWidth) / float64(c.EntryWidth())
}

// MessageSize is the number of NoC packets needed for one LSL push.
func (c *Config) MessageSize() float64 {
	return math.Ceil(float64(c.LSLMessageWidth) / float64(c.EffectiveNoCWidth()))
}

// ResponseSize is the number of NoC packets per LLC response.
func (c *Config) ResponseSize() float64 {
	return math.Ceil(float64(c.ResponseWidth)/float64(c.EffectiveNoCWidth())) +
		float64(c.ResponseOverheadPackets)
}

// ServiceRate is the number of packets a router or link can sink per core
// cycle.
func (c *Config) ServiceRate() float64 {
	return float64(c.EffectiveNoCClockRate()) / float64(c.CoreClockRate)
}

// IsROI reports whether the benchmark is reported with a _roi suffix.
func (c *Config) IsROI(benchmark string) bool {
	for _, b := range c.ROIBenchmarks {
		if b == benchmark {
			return true
		}
	}
	return false
}
