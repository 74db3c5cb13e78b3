package main

import (
	"os"
	"testing"
	"time"
)

func TestApplyEnvOverrides_Basic(t *testing.T) {
	base := validConfig()

	os.Setenv("LINKARQ_WINDOW", "8")
	os.Setenv("LINKARQ_MDNS_ENABLE", "true")
	os.Setenv("LINKARQ_TIMEOUT", "250ms")
	os.Setenv("LINKARQ_LOG_METRICS_INTERVAL", "5s")
	t.Cleanup(func() {
		os.Unsetenv("LINKARQ_WINDOW")
		os.Unsetenv("LINKARQ_MDNS_ENABLE")
		os.Unsetenv("LINKARQ_TIMEOUT")
		os.Unsetenv("LINKARQ_LOG_METRICS_INTERVAL")
	})
	if err := applyEnvOverrides(base, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.window != 8 {
		t.Fatalf("expected window override, got %d", base.window)
	}
	if !base.mdnsEnable {
		t.Fatalf("expected mdnsEnable true")
	}
	if base.timeout != 250*time.Millisecond {
		t.Fatalf("expected timeout 250ms got %v", base.timeout)
	}
	if base.logMetricsEvery != 5*time.Second {
		t.Fatalf("expected logMetricsEvery 5s got %v", base.logMetricsEvery)
	}
}

func TestApplyEnvOverrides_FlagPrecedence(t *testing.T) {
	base := validConfig()
	base.window = 5
	os.Setenv("LINKARQ_WINDOW", "9")
	t.Cleanup(func() { os.Unsetenv("LINKARQ_WINDOW") })
	if err := applyEnvOverrides(base, map[string]struct{}{"window": {}}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if base.window != 5 {
		t.Fatalf("expected window unchanged 5, got %d", base.window)
	}
}

func TestApplyEnvOverrides_SerialTransport(t *testing.T) {
	base := validConfig()
	os.Setenv("LINKARQ_TRANSPORT", "serial")
	os.Setenv("LINKARQ_SERIAL_DEVICE", "/dev/ttyUSB1")
	os.Setenv("LINKARQ_SERIAL_BAUD", "57600")
	t.Cleanup(func() {
		os.Unsetenv("LINKARQ_TRANSPORT")
		os.Unsetenv("LINKARQ_SERIAL_DEVICE")
		os.Unsetenv("LINKARQ_SERIAL_BAUD")
	})
	if err := applyEnvOverrides(base, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.transport != "serial" {
		t.Fatalf("expected transport serial, got %s", base.transport)
	}
	if base.serialDevice != "/dev/ttyUSB1" {
		t.Fatalf("expected serial device override, got %s", base.serialDevice)
	}
	if base.serialBaud != 57600 {
		t.Fatalf("expected serial baud override, got %d", base.serialBaud)
	}
}

func TestApplyEnvOverrides_BadInt(t *testing.T) {
	base := validConfig()
	os.Setenv("LINKARQ_WINDOW", "notint")
	t.Cleanup(func() { os.Unsetenv("LINKARQ_WINDOW") })
	if err := applyEnvOverrides(base, map[string]struct{}{}); err == nil {
		t.Fatalf("expected error for bad integer")
	}
}
