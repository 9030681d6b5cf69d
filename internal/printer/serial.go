package printer

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/tarm/serial"
)

// serialReadTimeout bounds blocking reads so a silent printer cannot
// hang a status probe.
const serialReadTimeout = time.Second

// SerialTransport writes raw command bytes to an RS-232 port at 8N1.
type SerialTransport struct {
	port   *serial.Port
	device string
	baud   int
}

// ConnectSerial opens the named serial device at the configured baud
// rate, 8 data bits, no parity, one stop bit.
func ConnectSerial(device string, baud int) (*SerialTransport, error) {
	cfg := &serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: serialReadTimeout,
	}

	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: serial port %s: %v", ErrDeviceNotFound, device, err)
	}

	return &SerialTransport{port: port, device: device, baud: baud}, nil
}

func (t *SerialTransport) Write(data []byte) (int, error) {
	n, err := t.port.Write(data)
	return n, transportErr("serial", "write", err)
}

func (t *SerialTransport) Read(buf []byte) (int, error) {
	n, err := t.port.Read(buf)
	return n, transportErr("serial", "read", err)
}

func (t *SerialTransport) Close() error {
	return transportErr("serial", "close", t.port.Close())
}

func (t *SerialTransport) Describe() string {
	return fmt.Sprintf("serial %s @ %d baud", t.device, t.baud)
}

// ListSerialPorts scans for serial devices a printer could be attached
// to. Candidates are probed with a brief open to weed out dead nodes.
func ListSerialPorts() []string {
	var candidates []string

	switch runtime.GOOS {
	case "linux":
		for _, pattern := range []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyS*"} {
			matches, _ := filepath.Glob(pattern)
			candidates = append(candidates, matches...)
		}
	case "darwin":
		for _, pattern := range []string{"/dev/cu.usbserial*", "/dev/cu.usbmodem*"} {
			matches, _ := filepath.Glob(pattern)
			candidates = append(candidates, matches...)
		}
	case "windows":
		for i := 1; i <= 32; i++ {
			candidates = append(candidates, fmt.Sprintf("COM%d", i))
		}
	}

	var ports []string
	for _, device := range candidates {
		port, err := serial.OpenPort(&serial.Config{Name: device, Baud: 9600, ReadTimeout: 100 * time.Millisecond})
		if err != nil {
			continue
		}
		port.Close()
		ports = append(ports, device)
	}

	return ports
}
