package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/arqnet/linkarq/internal/events"
	"github.com/arqnet/linkarq/internal/metrics"
	"github.com/arqnet/linkarq/internal/scenario"
)

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("linkarq-sim %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(2)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()

		if cfg.mdnsEnable {
			portNum := 0
			if _, p, err := net.SplitHostPort(cfg.metricsAddr); err == nil {
				if pn, perr := strconv.Atoi(p); perr == nil {
					portNum = pn
				}
			}
			if portNum == 0 {
				if i := strings.LastIndex(cfg.metricsAddr, ":"); i >= 0 {
					if pn, perr := strconv.Atoi(cfg.metricsAddr[i+1:]); perr == nil {
						portNum = pn
					}
				}
			}
			cleanupMDNS, err := startMDNS(ctx, cfg, portNum)
			if err != nil {
				wrapped := fmt.Errorf("%w: %v", ErrMDNSStart, err)
				metrics.IncError(mapErrToMetric(wrapped))
				l.Warn("mdns_start_failed", "error", wrapped)
			} else {
				l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", portNum)
				defer cleanupMDNS()
			}
		}
	}

	content, err := loadPayload(cfg.inputPath)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrInputRead, err)
		metrics.IncError(mapErrToMetric(wrapped))
		l.Error("input_read_error", "error", wrapped)
		os.Exit(1)
	}

	bus := events.New()

	var results []scenario.Result
	if cfg.transport == "serial" {
		res, err := runSerial(ctx, cfg, l, bus, content)
		if err != nil {
			metrics.IncError(mapErrToMetric(err))
			l.Error("serial_transport_error", "error", err)
			os.Exit(1)
		}
		results = []scenario.Result{res}
	} else {
		configs := selectScenarios(cfg)
		results = make([]scenario.Result, 0, len(configs))
		for _, sc := range configs {
			sc.Logger = l
			sc.Bus = bus
			sc.SessionDeadline = cfg.sessionDeadline
			res := scenario.Run(ctx, sc, content)
			results = append(results, res)
		}
	}

	scenario.WriteReport(os.Stdout, results)

	if cfg.outputPath != "" && len(results) > 0 {
		if err := os.WriteFile(cfg.outputPath, results[len(results)-1].Delivered, 0o644); err != nil {
			wrapped := fmt.Errorf("%w: %v", ErrOutputWrite, err)
			metrics.IncError(mapErrToMetric(wrapped))
			l.Error("output_write_error", "error", wrapped)
		}
	}

	cancel()
	wg.Wait()
}

// loadPayload reads path, or generates a synthetic deterministic payload
// when path is empty, matching protocole.py's __main__ demo message.
func loadPayload(path string) ([]byte, error) {
	if path == "" {
		return []byte(strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)), nil
	}
	return os.ReadFile(path)
}

// selectScenarios returns the scenarios to run: a single named preset, a
// single ad-hoc scenario built from --ploss/--perror/--max-delay, or all
// presets when neither is given (the demo sweep protocole.py's __main__
// performs).
func selectScenarios(cfg *appConfig) []scenario.Config {
	if cfg.scenario != "" {
		for _, p := range scenario.Presets {
			if p.Name == cfg.scenario {
				return []scenario.Config{applyShared(p, cfg)}
			}
		}
	}
	if cfg.pLoss > 0 || cfg.pError > 0 || cfg.maxDelay > 0 {
		return []scenario.Config{applyShared(scenario.Config{
			Name:     "custom",
			PLoss:    cfg.pLoss,
			PError:   cfg.pError,
			MaxDelay: cfg.maxDelay,
		}, cfg)}
	}
	out := make([]scenario.Config, len(scenario.Presets))
	for i, p := range scenario.Presets {
		out[i] = applyShared(p, cfg)
	}
	return out
}

// applyShared overlays the CLI-wide window/timeout/chunk-size onto a
// scenario preset or ad-hoc config.
func applyShared(sc scenario.Config, cfg *appConfig) scenario.Config {
	sc.Window = cfg.window
	sc.Timeout = cfg.timeout
	sc.ChunkSize = cfg.chunkSize
	return sc
}
