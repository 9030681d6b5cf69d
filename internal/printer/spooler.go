package printer

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// SpoolerTransport submits the raw command stream as a single document
// to a named OS-managed printer queue. There is no read-back channel:
// once the OS accepts the job the printer is on its own.
type SpoolerTransport struct {
	queue string
}

// ConnectSpooler binds to a named spooler queue after checking that the
// host actually knows it.
func ConnectSpooler(queue string) (*SpoolerTransport, error) {
	queues, err := ListSpoolerQueues()
	if err != nil {
		return nil, transportErr("spooler", "open", err)
	}

	for _, q := range queues {
		if strings.EqualFold(q, queue) {
			return &SpoolerTransport{queue: q}, nil
		}
	}
	return nil, fmt.Errorf("%w: spooler queue %q", ErrDeviceNotFound, queue)
}

// Write spools data as one raw print job. Every step is checked and the
// temp document is released on all paths.
func (t *SpoolerTransport) Write(data []byte) (int, error) {
	doc, err := os.CreateTemp("", "label-*.prn")
	if err != nil {
		return 0, transportErr("spooler", "write", err)
	}
	defer os.Remove(doc.Name())

	if _, err := doc.Write(data); err != nil {
		doc.Close()
		return 0, transportErr("spooler", "write", err)
	}
	if err := doc.Close(); err != nil {
		return 0, transportErr("spooler", "write", err)
	}

	if err := submitRaw(t.queue, doc.Name()); err != nil {
		return 0, transportErr("spooler", "write", err)
	}
	return len(data), nil
}

// Read is unsupported: the spooler gives no access to the device's
// status channel.
func (t *SpoolerTransport) Read(buf []byte) (int, error) {
	return 0, ErrReadNotSupported
}

func (t *SpoolerTransport) Close() error { return nil }

func (t *SpoolerTransport) Describe() string {
	return fmt.Sprintf("spooler %q", t.queue)
}

// submitRaw hands the document to the host print subsystem without any
// driver-side rendering.
func submitRaw(queue, path string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		// Raw copy to the queue's share, the documented way to bypass
		// the driver for label printers.
		cmd = exec.Command("cmd.exe", "/C", fmt.Sprintf(`copy /b "%s" "%s"`, path, queue))
	} else {
		cmd = exec.Command("lp", "-d", queue, "-o", "raw", path)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("spool to %q: %w (%s)", queue, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ListSpoolerQueues asks the host OS print subsystem for its queues.
func ListSpoolerQueues() ([]string, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("powershell.exe", "-NoProfile", "-Command",
			"Get-Printer | Select-Object -ExpandProperty Name")
	} else {
		// lpstat -a lists queues accepting jobs, one per line, name first.
		cmd = exec.Command("lpstat", "-a")
	}

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("enumerate printer queues: %w", err)
	}

	var queues []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if runtime.GOOS != "windows" {
			line = strings.Fields(line)[0]
		}
		queues = append(queues, line)
	}
	return queues, nil
}
