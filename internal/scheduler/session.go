package scheduler

import (
	"sync"

	"github.com/gridflow/gridflow/internal/graph"
	"github.com/gridflow/gridflow/internal/logger"
	"github.com/gridflow/gridflow/internal/protocol"
	"github.com/gridflow/gridflow/internal/translate"
)

// Update is a session-visible state change pushed after an accepted engine
// response. Err carries protocol-level failures; evaluation failures travel
// as error values inside Values instead.
type Update struct {
	Values      map[string]protocol.Value
	Diagnostics []protocol.Diagnostic
	Partial     bool
	Err         error
}

// Session owns a synchronizer and its response pump, and makes the pair safe
// for concurrent use. One session corresponds to one live document.
type Session struct {
	mu        sync.Mutex
	sync      *Synchronizer
	log       *logger.Logger
	updates   chan Update
	done      chan struct{}
	closeOnce sync.Once
	datasets  map[string]struct{}
}

// NewSession starts the response pump immediately; the engine's ready
// announcement is consumed like any other response.
func NewSession(transport Transport, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	s := &Session{
		sync:     NewSynchronizer(transport, log),
		log:      log,
		updates:  make(chan Update, 16),
		done:     make(chan struct{}),
		datasets: make(map[string]struct{}),
	}
	go s.pump(transport.Responses())
	return s
}

func (s *Session) pump(responses <-chan protocol.Response) {
	for {
		select {
		case <-s.done:
			return
		case resp, ok := <-responses:
			if !ok {
				return
			}
			s.mu.Lock()
			applied, err := s.sync.HandleResponse(resp)
			var update Update
			if applied || err != nil {
				update = Update{
					Values:      s.sync.Values(),
					Diagnostics: s.sync.Diagnostics(),
					Partial:     s.sync.Partial(),
					Err:         err,
				}
			}
			s.mu.Unlock()

			if err != nil {
				s.log.Error(err, "engine response failed")
			}
			if applied || err != nil {
				select {
				case s.updates <- update:
				default:
					// A slow consumer only ever misses intermediate
					// snapshots; the next update carries full state.
				}
			}
		}
	}
}

// ApplyEdit observes the current graph state after an edit. Safe to call at
// editing cadence; invisible changes produce no engine traffic.
func (s *Session) ApplyEdit(nodes []graph.Node, edges []graph.Edge, opts *translate.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.sync.Observe(nodes, edges, opts)
	return err
}

// SetInput scrubs a single node input without a structural patch.
func (s *Session) SetInput(nodeID, input string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.SetInput(nodeID, input, value)
}

// RegisterDataset registers a numeric buffer and tracks it for release on
// Close.
func (s *Session) RegisterDataset(ds protocol.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sync.RegisterDataset(ds); err != nil {
		return err
	}
	s.datasets[ds.ID] = struct{}{}
	return nil
}

// ReleaseDataset releases a buffer eagerly.
func (s *Session) ReleaseDataset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.datasets, id)
	return s.sync.ReleaseDataset(id)
}

// RequestStats asks the engine for store statistics; the reply arrives as an
// update.
func (s *Session) RequestStats() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.RequestStats()
}

// Values returns a snapshot of the cumulative value map.
func (s *Session) Values() map[string]protocol.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.Values()
}

// CanonicalSnapshot returns a copy of the last applied graph in canonical
// form, the shape export consumers read.
func (s *Session) CanonicalSnapshot() ([]graph.Node, []graph.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.Baseline()
}

// Diagnostics returns the current diagnostics in stable order.
func (s *Session) Diagnostics() []protocol.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.Diagnostics()
}

// Partial reports whether the latest accepted result was partial.
func (s *Session) Partial() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.Partial()
}

// EngineInfo returns the engine's ready announcement, or nil before it.
func (s *Session) EngineInfo() *EngineInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.EngineInfo()
}

// LastStats returns the most recent stats reply, if any.
func (s *Session) LastStats() *protocol.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.LastStats()
}

// Updates exposes the stream of accepted state changes.
func (s *Session) Updates() <-chan Update { return s.updates }

// Close releases every tracked dataset and stops the pump. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		for id := range s.datasets {
			_ = s.sync.ReleaseDataset(id)
		}
		s.datasets = nil
		s.mu.Unlock()
		close(s.done)
	})
}
