package printer

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Monitor polls transport enumeration and reports printers appearing or
// disappearing. It never touches the session's open connection, so a
// slow USB scan cannot stall an in-flight print.
type Monitor struct {
	session  *Session
	interval time.Duration
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	onChange func(added, removed []string)
}

// NewMonitor creates a monitor over the given session's enumeration.
func NewMonitor(session *Session, interval time.Duration, log *zap.Logger) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		session:  session,
		interval: interval,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnChange registers the callback invoked with enumeration deltas.
// Register before Start.
func (m *Monitor) OnChange(fn func(added, removed []string)) {
	m.onChange = fn
}

// Start begins polling in a background goroutine. A non-positive
// interval disables the monitor entirely.
func (m *Monitor) Start() {
	if m.interval <= 0 {
		m.log.Info("printer monitor disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		previous := map[string]bool{}
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				previous = m.poll(previous)
			}
		}
	}()
}

// Stop halts polling.
func (m *Monitor) Stop() {
	m.cancel()
}

func (m *Monitor) poll(previous map[string]bool) map[string]bool {
	current := map[string]bool{}
	for _, p := range m.session.ListPrinters() {
		current[p] = true
	}

	var added, removed []string
	for p := range current {
		if !previous[p] {
			added = append(added, p)
		}
	}
	for p := range previous {
		if !current[p] {
			removed = append(removed, p)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	for _, p := range added {
		m.log.Info("printer attached", zap.String("printer", p))
	}
	for _, p := range removed {
		m.log.Info("printer detached", zap.String("printer", p))
	}

	if m.onChange != nil && (len(added) > 0 || len(removed) > 0) {
		m.onChange(added, removed)
	}
	return current
}
