package main

import (
	"testing"
	"time"
)

func validConfig() *appConfig {
	return &appConfig{
		window:          5,
		timeout:         500 * time.Millisecond,
		chunkSize:       100,
		sessionDeadline: 60 * time.Second,
		logFormat:       "text",
		logLevel:        "info",
		transport:       "simulated",
	}
}

func TestConfigValidate_OK(t *testing.T) {
	if err := validConfig().validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}

func TestConfigValidate_SerialTransportOK(t *testing.T) {
	c := validConfig()
	c.transport = "serial"
	c.serialDevice = "/dev/ttyUSB0"
	c.serialBaud = 9600
	if err := c.validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"badFormat", func(c *appConfig) { c.logFormat = "xx" }},
		{"badLevel", func(c *appConfig) { c.logLevel = "nope" }},
		{"badPLoss", func(c *appConfig) { c.pLoss = 1.5 }},
		{"negPLoss", func(c *appConfig) { c.pLoss = -0.1 }},
		{"badPError", func(c *appConfig) { c.pError = 2 }},
		{"badWindow", func(c *appConfig) { c.window = 0 }},
		{"badTimeout", func(c *appConfig) { c.timeout = 0 }},
		{"badChunkSize", func(c *appConfig) { c.chunkSize = 0 }},
		{"badSessionDeadline", func(c *appConfig) { c.sessionDeadline = 0 }},
		{"badTransport", func(c *appConfig) { c.transport = "carrier-pigeon" }},
		{"serialWithoutDevice", func(c *appConfig) { c.transport = "serial" }},
		{"serialWithBadBaud", func(c *appConfig) { c.transport = "serial"; c.serialDevice = "/dev/ttyUSB0"; c.serialBaud = 0 }},
	}
	for _, tc := range tests {
		base := validConfig()
		tc.mod(base)
		if err := base.validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
