package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

type appConfig struct {
	scenario        string
	inputPath       string
	outputPath      string
	pLoss           float64
	pError          float64
	maxDelay        time.Duration
	window          int
	timeout         time.Duration
	chunkSize       int
	sessionDeadline time.Duration
	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration
	mdnsEnable      bool
	mdnsName        string
	transport       string
	serialDevice    string
	serialBaud      int
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	scenario := pflag.String("scenario", "", "Run a single named preset scenario (S1-perfect|S2-noisy|S3-unstable|S4-long-delay); empty runs all presets")
	input := pflag.String("input", "", "Path to the payload to transmit; empty generates a synthetic payload")
	output := pflag.String("output", "", "Path to write the reassembled payload; empty skips the write")
	pLoss := pflag.Float64("ploss", 0, "Packet loss probability [0,1] (overridden by --scenario presets)")
	pError := pflag.Float64("perror", 0, "Bit-corruption probability [0,1] (overridden by --scenario presets)")
	maxDelay := pflag.Duration("max-delay", 0, "Maximum simulated one-way delay (overridden by --scenario presets)")
	window := pflag.Int("window", 5, "Sender sliding-window size")
	timeout := pflag.Duration("timeout", 500*time.Millisecond, "Per-frame retransmission timeout")
	chunkSize := pflag.Int("chunk-size", 100, "Payload chunk size in bytes")
	sessionDeadline := pflag.Duration("session-deadline", 60*time.Second, "Wall-clock bound per scenario run")
	logFormat := pflag.String("log-format", "text", "Log format: text|json")
	logLevel := pflag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := pflag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := pflag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters")
	mdnsEnable := pflag.Bool("mdns-enable", false, "Enable mDNS advertisement of the metrics endpoint")
	mdnsName := pflag.String("mdns-name", "", "mDNS instance name (default linkarq-sim-<hostname>)")
	transport := pflag.String("transport", "simulated", "Transport to run the protocol over: simulated|serial")
	serialDevice := pflag.String("serial-device", "", "Serial device path (required when --transport=serial)")
	serialBaud := pflag.Int("serial-baud", 115200, "Serial baud rate (only used when --transport=serial)")
	showVersion := pflag.Bool("version", false, "Print version and exit")
	pflag.Parse()

	setFlags := map[string]struct{}{}
	pflag.Visit(func(f *pflag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.scenario = *scenario
	cfg.inputPath = *input
	cfg.outputPath = *output
	cfg.pLoss = *pLoss
	cfg.pError = *pError
	cfg.maxDelay = *maxDelay
	cfg.window = *window
	cfg.timeout = *timeout
	cfg.chunkSize = *chunkSize
	cfg.sessionDeadline = *sessionDeadline
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName
	cfg.transport = *transport
	cfg.serialDevice = *serialDevice
	cfg.serialBaud = *serialBaud

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open files – only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.pLoss < 0 || c.pLoss > 1 {
		return fmt.Errorf("ploss must be in [0,1] (got %v)", c.pLoss)
	}
	if c.pError < 0 || c.pError > 1 {
		return fmt.Errorf("perror must be in [0,1] (got %v)", c.pError)
	}
	if c.window <= 0 {
		return fmt.Errorf("window must be > 0 (got %d)", c.window)
	}
	if c.timeout <= 0 {
		return fmt.Errorf("timeout must be > 0")
	}
	if c.chunkSize <= 0 {
		return fmt.Errorf("chunk-size must be > 0 (got %d)", c.chunkSize)
	}
	if c.sessionDeadline <= 0 {
		return fmt.Errorf("session-deadline must be > 0")
	}
	switch c.transport {
	case "simulated", "serial":
	default:
		return fmt.Errorf("invalid transport: %s", c.transport)
	}
	if c.transport == "serial" {
		if c.serialDevice == "" {
			return errors.New("serial-device is required when transport=serial")
		}
		if c.serialBaud <= 0 {
			return fmt.Errorf("serial-baud must be > 0 (got %d)", c.serialBaud)
		}
	}
	return nil
}

// applyEnvOverrides maps LINKARQ_* environment variables to config fields
// unless a corresponding flag was explicitly set (flag wins).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["scenario"]; !ok {
		if v, ok := get("LINKARQ_SCENARIO"); ok {
			c.scenario = v
		}
	}
	if _, ok := set["input"]; !ok {
		if v, ok := get("LINKARQ_INPUT"); ok {
			c.inputPath = v
		}
	}
	if _, ok := set["output"]; !ok {
		if v, ok := get("LINKARQ_OUTPUT"); ok {
			c.outputPath = v
		}
	}
	if _, ok := set["ploss"]; !ok {
		if v, ok := get("LINKARQ_PLOSS"); ok && v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.pLoss = f
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid LINKARQ_PLOSS: %w", err)
			}
		}
	}
	if _, ok := set["perror"]; !ok {
		if v, ok := get("LINKARQ_PERROR"); ok && v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.pError = f
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid LINKARQ_PERROR: %w", err)
			}
		}
	}
	if _, ok := set["max-delay"]; !ok {
		if v, ok := get("LINKARQ_MAX_DELAY"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				c.maxDelay = d
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid LINKARQ_MAX_DELAY: %w", err)
			}
		}
	}
	if _, ok := set["window"]; !ok {
		if v, ok := get("LINKARQ_WINDOW"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.window = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid LINKARQ_WINDOW: %w", err)
			}
		}
	}
	if _, ok := set["timeout"]; !ok {
		if v, ok := get("LINKARQ_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.timeout = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid LINKARQ_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["chunk-size"]; !ok {
		if v, ok := get("LINKARQ_CHUNK_SIZE"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.chunkSize = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid LINKARQ_CHUNK_SIZE: %w", err)
			}
		}
	}
	if _, ok := set["session-deadline"]; !ok {
		if v, ok := get("LINKARQ_SESSION_DEADLINE"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.sessionDeadline = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid LINKARQ_SESSION_DEADLINE: %w", err)
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("LINKARQ_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("LINKARQ_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("LINKARQ_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("LINKARQ_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid LINKARQ_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("LINKARQ_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("LINKARQ_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	if _, ok := set["transport"]; !ok {
		if v, ok := get("LINKARQ_TRANSPORT"); ok && v != "" {
			c.transport = v
		}
	}
	if _, ok := set["serial-device"]; !ok {
		if v, ok := get("LINKARQ_SERIAL_DEVICE"); ok {
			c.serialDevice = v
		}
	}
	if _, ok := set["serial-baud"]; !ok {
		if v, ok := get("LINKARQ_SERIAL_BAUD"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.serialBaud = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid LINKARQ_SERIAL_BAUD: %w", err)
			}
		}
	}
	return firstErr
}
