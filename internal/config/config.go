// Package config implements the live-reloadable runtime configuration (spec
// §4.7) and the boot-time GPIO pin map.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Default values, matching original_source/b3/signalProcessingDefaults.h and
// b3Config.h's constructor initializers.
const (
	DefaultLPFCutoff     = 500.0
	DefaultHPFCutoff     = 5000.0
	DefaultChunkSizeMs    = 100.0
	DefaultBufferChunks  = 3
	DefaultBodyThreshold = 10000
	DefaultMouthThreshold = 10000
	DefaultRMSWindowMs   = 20.0
	DefaultFlipIntervalMs = 2000
)

// Config holds the live-tunable runtime parameters. ChunkSizeMs and
// BufferChunks are latched at PLAY-start per spec §3; the rest are re-read
// every pipeline tick.
type Config struct {
	LPFCutoff      float64
	HPFCutoff      float64
	ChunkSizeMs    float64
	BufferChunks   int
	BodyThreshold  int
	MouthThreshold int
	RMSWindowMs    float64
	FlipIntervalMs int64
	SeekTimeUs     int64

	path   string
	logger *log.Logger
}

// New returns a Config with default values and no backing file.
func New(logger *log.Logger) *Config {
	return &Config{
		LPFCutoff:      DefaultLPFCutoff,
		HPFCutoff:      DefaultHPFCutoff,
		ChunkSizeMs:    DefaultChunkSizeMs,
		BufferChunks:   DefaultBufferChunks,
		BodyThreshold:  DefaultBodyThreshold,
		MouthThreshold: DefaultMouthThreshold,
		RMSWindowMs:    DefaultRMSWindowMs,
		FlipIntervalMs: DefaultFlipIntervalMs,
		logger:         logger,
	}
}

// Init loads Config from path, creating it with current defaults (via
// PrintSettings) if it does not yet exist — mirrors b3Config::init.
func (c *Config) Init(path string) error {
	c.path = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		c.logger.Warn("config file missing, writing defaults", "path", path)
		return c.PrintSettings()
	}

	c.Poll()
	return nil
}

var configKeys = map[string]func(*Config, string){
	"lpf_cutoff": func(c *Config, v string) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.LPFCutoff = f
		}
	},
	"hpf_cutoff": func(c *Config, v string) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.HPFCutoff = f
		}
	},
	"body_threshold": func(c *Config, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			c.BodyThreshold = n
		}
	},
	"mouth_threshold": func(c *Config, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			c.MouthThreshold = n
		}
	},
	"rms_window_ms": func(c *Config, v string) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RMSWindowMs = f
		}
	},
	"flip_interval_ms": func(c *Config, v string) {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.FlipIntervalMs = n
		}
	},
	// Boot-only keys below: recognized by poll (and round-tripped by
	// PrintSettings) but only take effect at the next PLAY-start.
	"chunk_size_ms": func(c *Config, v string) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ChunkSizeMs = f
		}
	},
	"buffer_count": func(c *Config, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			c.BufferChunks = n
		}
	},
}

// Poll re-reads the config file, applying any recognized keys. Unknown keys
// and parse errors on individual lines are silently skipped, per spec §7.
func (c *Config) Poll() {
	if c.path == "" {
		return
	}

	f, err := os.Open(c.path)
	if err != nil {
		c.logger.Warn("failed to open config for poll", "path", c.path, "err", err)
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		if apply, ok := configKeys[key]; ok {
			apply(c, value)
		}
	}
}

// PrintSettings writes the current config back to its backing path, with a
// banner distinguishing live-tunable from boot-only keys.
func (c *Config) PrintSettings() error {
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# live-tunable (re-read every tick)")
	fmt.Fprintf(w, "lpf_cutoff = %v\n", c.LPFCutoff)
	fmt.Fprintf(w, "hpf_cutoff = %v\n", c.HPFCutoff)
	fmt.Fprintf(w, "body_threshold = %d\n", c.BodyThreshold)
	fmt.Fprintf(w, "mouth_threshold = %d\n", c.MouthThreshold)
	fmt.Fprintf(w, "rms_window_ms = %v\n", c.RMSWindowMs)
	fmt.Fprintf(w, "flip_interval_ms = %d\n", c.FlipIntervalMs)
	fmt.Fprintln(w, "# boot-only (applied at next PLAY-start)")
	fmt.Fprintf(w, "chunk_size_ms = %v\n", c.ChunkSizeMs)
	fmt.Fprintf(w, "buffer_count = %d\n", c.BufferChunks)

	return w.Flush()
}
