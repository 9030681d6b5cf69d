// Package printer talks to label printers over USB bulk endpoints, a
// host print spooler, or a serial port, and owns the single shared
// printer session.
package printer

import (
	"fmt"
	"strings"
)

// Transport is the uniform contract over the three device-connection
// strategies. A transport is created connected; Close tears it down.
// Write and Read block, bounded by the transport's fixed timeout.
type Transport interface {
	Write(data []byte) (int, error)
	Read(buf []byte) (int, error)
	Close() error
	// Describe identifies the open connection for logs and listings.
	Describe() string
}

// Config is the persisted printer configuration the session consumes.
// Width and height are in print dots (8 dots = 1 mm).
type Config struct {
	Darkness int    `json:"darkness"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Speed    int    `json:"speed"`
	Dialect  string `json:"dialect"`
	// Port selects the transport: "USB", "SPOOLER:<queue name>", or a
	// serial device path such as "/dev/ttyUSB0" or "COM3".
	Port string `json:"port"`
	Baud int    `json:"baud,omitempty"`
	// AllowSimulated substitutes a logged no-op transport when no
	// physical device is found. Development convenience, never silent.
	AllowSimulated bool `json:"allow_simulated,omitempty"`
}

// DefaultConfig mirrors the defaults shipped with the printer: a 105 mm
// web of three labels at medium darkness and speed.
func DefaultConfig() Config {
	return Config{
		Darkness: 8,
		Width:    840,
		Height:   176,
		Speed:    2,
		Dialect:  "pplb",
		Port:     "USB",
		Baud:     9600,
	}
}

const spoolerPortPrefix = "SPOOLER:"

// openTransport dials the transport selected by cfg.Port.
func openTransport(cfg Config) (Transport, error) {
	port := strings.TrimSpace(cfg.Port)
	switch {
	case port == "" || strings.EqualFold(port, "USB"):
		return ConnectUSB(KnownDevices)
	case strings.HasPrefix(strings.ToUpper(port), spoolerPortPrefix):
		name := strings.TrimSpace(port[len(spoolerPortPrefix):])
		if name == "" {
			return nil, fmt.Errorf("spooler port requires a queue name")
		}
		return ConnectSpooler(name)
	default:
		baud := cfg.Baud
		if baud == 0 {
			baud = 9600
		}
		return ConnectSerial(port, baud)
	}
}
