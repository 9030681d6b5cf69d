package printer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/estrelametais/label-engine/internal/dialect"
	"github.com/estrelametais/label-engine/internal/util"
)

// Event describes a session state change, consumed by the websocket feed.
type Event struct {
	Type   string `json:"type"` // connected, disconnected, print_completed, print_failed
	JobID  string `json:"job_id,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Session owns the single shared printer connection. Every operation
// that touches the transport holds the session mutex for its duration,
// so concurrent prints serialize instead of racing on the device.
type Session struct {
	mu        sync.Mutex
	transport Transport
	simulated bool
	cfg       Config
	enc       dialect.Dialect
	log       *zap.Logger
	onEvent   func(Event)

	// allowSim is the process-level default for the simulated fallback,
	// ORed with the per-connect config.
	allowSim bool
}

// NewSession creates a disconnected session.
func NewSession(log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{log: log}
}

// OnEvent registers a callback for session state changes. Register
// before the session is first used; the callback runs outside the
// session lock.
func (s *Session) OnEvent(fn func(Event)) {
	s.onEvent = fn
}

// AllowSimulatedFallback sets the process-level default for substituting
// a simulated transport when no device is found. Set once at startup.
func (s *Session) AllowSimulatedFallback(allow bool) {
	s.allowSim = allow
}

func (s *Session) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

// Connect establishes the transport selected by cfg, replacing any
// previous connection wholesale. When no physical device is found and
// cfg.AllowSimulated is set, a simulated transport is substituted; the
// substitution is logged and queryable via IsSimulated, never silent.
func (s *Session) Connect(cfg Config) error {
	enc, err := dialect.Select(cfg.Dialect)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.transport != nil {
		if cerr := s.transport.Close(); cerr != nil {
			s.log.Warn("closing previous printer connection", zap.Error(cerr))
		}
		s.transport = nil
		s.simulated = false
	}

	transport, err := openTransport(cfg)
	if err != nil {
		if cfg.AllowSimulated || s.allowSim {
			s.log.Warn("no physical printer, substituting simulated transport",
				zap.String("port", cfg.Port), zap.Error(err))
			transport = NewSimulatedTransport(s.log)
			s.simulated = true
		} else {
			s.mu.Unlock()
			return err
		}
	}

	s.transport = transport
	s.cfg = cfg
	s.enc = enc
	s.mu.Unlock()

	s.log.Info("printer connected",
		zap.String("transport", transport.Describe()),
		zap.String("dialect", enc.Name()),
		zap.Bool("simulated", s.IsSimulated()))
	s.emit(Event{Type: "connected", Detail: transport.Describe()})
	return nil
}

// Disconnect tears down the active connection, if any.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	transport := s.transport
	s.transport = nil
	s.simulated = false
	s.mu.Unlock()

	if transport == nil {
		return nil
	}
	err := transport.Close()
	s.emit(Event{Type: "disconnected"})
	return err
}

// Connected reports whether a session (real or simulated) is active.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport != nil
}

// IsSimulated reports whether the active session is the development
// substitute rather than a real device.
func (s *Session) IsSimulated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport != nil && s.simulated
}

// Config returns the configuration the active connection was opened
// with. Mutating persisted settings later does not touch it.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Print encodes up to three label payloads into one dialect command
// stream and writes it in a single transport call. A write failure is
// reported upward without retries and leaves the connection open.
func (s *Session) Print(labels []dialect.Label) (string, error) {
	jobID := uuid.New().String()

	if err := s.writeLabels(jobID, labels); err != nil {
		if !errors.Is(err, ErrNotConnected) {
			s.emit(Event{Type: "print_failed", JobID: jobID, Detail: err.Error()})
		}
		return jobID, err
	}

	s.emit(Event{Type: "print_completed", JobID: jobID})
	return jobID, nil
}

// writeLabels holds the session lock for the whole encode-and-write so
// concurrent prints cannot interleave on the device.
func (s *Session) writeLabels(jobID string, labels []dialect.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport == nil {
		return ErrNotConnected
	}

	geo := dialect.Geometry{
		Darkness: s.cfg.Darkness,
		Speed:    s.cfg.Speed,
		Width:    s.cfg.Width,
		Height:   s.cfg.Height,
	}
	stream, err := s.enc.EncodeLabels(geo, labels)
	if err != nil {
		util.PrintFailuresTotal.WithLabelValues("encode").Inc()
		return err
	}

	start := time.Now()
	if _, err := s.transport.Write(stream); err != nil {
		util.PrintFailuresTotal.WithLabelValues("transport").Inc()
		s.log.Error("label write failed",
			zap.String("job_id", jobID), zap.Error(err))
		return err
	}
	util.PrintWriteLatency.Observe(time.Since(start).Seconds())
	util.LabelsPrintedTotal.Add(float64(len(labels)))

	s.log.Info("labels printed",
		zap.String("job_id", jobID),
		zap.Int("labels", len(labels)),
		zap.Int("bytes", len(stream)))
	return nil
}

// PrintTestPattern writes the dialect's fixed test label.
func (s *Session) PrintTestPattern() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport == nil {
		return ErrNotConnected
	}

	geo := dialect.Geometry{
		Darkness: s.cfg.Darkness,
		Speed:    s.cfg.Speed,
		Width:    s.cfg.Width,
		Height:   s.cfg.Height,
	}
	stream, err := s.enc.EncodeTestPattern(geo)
	if err != nil {
		return err
	}

	if _, err := s.transport.Write(stream); err != nil {
		util.PrintFailuresTotal.WithLabelValues("transport").Inc()
		return err
	}
	return nil
}

// TestConnection probes the link. USB demands a non-empty answer to the
// dialect status query; spooler and serial sessions are considered
// healthy once open, since they have no reliable read-back.
func (s *Session) TestConnection() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport == nil {
		return ErrNotConnected
	}

	switch s.transport.(type) {
	case *USBTransport, *SimulatedTransport:
		if _, err := s.transport.Write(s.enc.StatusQuery()); err != nil {
			return err
		}
		buf := make([]byte, 32)
		n, err := s.transport.Read(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return transportErr("usb", "read", fmt.Errorf("printer did not answer status query"))
		}
	}
	return nil
}

// ListPrinters enumerates reachable printer identifiers across all
// transports. The simulated session, when active, lists itself so the
// operator can see the substitution.
func (s *Session) ListPrinters() []string {
	var printers []string

	if s.IsSimulated() {
		printers = append(printers, "simulated printer (development fallback)")
	}

	if usb, err := ListUSBDevices(); err == nil {
		printers = append(printers, usb...)
	} else {
		s.log.Warn("usb enumeration failed", zap.Error(err))
	}

	if queues, err := ListSpoolerQueues(); err == nil {
		for _, q := range queues {
			printers = append(printers, "spooler "+q)
		}
	}

	for _, p := range ListSerialPorts() {
		printers = append(printers, "serial "+p)
	}

	return printers
}
