package printer

import (
	"sync"

	"go.uber.org/zap"
)

// SimulatedTransport is the development substitute used when no physical
// device is present and the config allows it. Every write is logged and
// retained so tests can inspect complete streams; reads answer with a
// canned status response.
type SimulatedTransport struct {
	mu      sync.Mutex
	writes  [][]byte
	log     *zap.Logger
	replies []byte
}

// NewSimulatedTransport creates a simulated connection. A nil logger
// falls back to zap's no-op logger.
func NewSimulatedTransport(log *zap.Logger) *SimulatedTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &SimulatedTransport{
		log:     log,
		replies: []byte("OK\r\n"),
	}
}

func (t *SimulatedTransport) Write(data []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	t.writes = append(t.writes, buf)

	t.log.Debug("simulated printer write",
		zap.Int("bytes", len(data)),
		zap.ByteString("stream", data))
	return len(data), nil
}

func (t *SimulatedTransport) Read(buf []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := copy(buf, t.replies)
	return n, nil
}

func (t *SimulatedTransport) Close() error { return nil }

func (t *SimulatedTransport) Describe() string { return "simulated printer" }

// Writes returns a copy of every stream written so far, in order.
func (t *SimulatedTransport) Writes() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([][]byte, len(t.writes))
	for i, w := range t.writes {
		buf := make([]byte, len(w))
		copy(buf, w)
		out[i] = buf
	}
	return out
}
