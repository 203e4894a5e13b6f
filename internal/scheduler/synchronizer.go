// Package scheduler keeps the editable canvas graph and the engine's
// persistent graph consistent under continuous rapid editing. It decides
// between full reload and incremental patch, coalesces overlapping work via a
// last-request-wins sequence rule, and merges partial results into a
// cumulative value map.
package scheduler

import (
	"sort"
	"time"

	"github.com/gridflow/gridflow/internal/diff"
	"github.com/gridflow/gridflow/internal/graph"
	"github.com/gridflow/gridflow/internal/group"
	"github.com/gridflow/gridflow/internal/logger"
	"github.com/gridflow/gridflow/internal/metrics"
	"github.com/gridflow/gridflow/internal/protocol"
	"github.com/gridflow/gridflow/internal/translate"
	gferrors "github.com/gridflow/gridflow/pkg/errors"
)

// Transport is the engine boundary as seen by the synchronizer: asynchronous
// message passing with correlated replies.
type Transport interface {
	Send(protocol.Request) error
	Responses() <-chan protocol.Response
}

// EngineInfo is the catalog and version the engine announced on ready.
type EngineInfo struct {
	Operations      []string
	EngineVersion   string
	ContractVersion int
}

type pendingRequest struct {
	kind   protocol.RequestKind
	sentAt time.Time
}

// Synchronizer is the stateful orchestrator bound to one live graph session.
// It is not safe for concurrent use; Session serializes access to it.
type Synchronizer struct {
	log       *logger.Logger
	transport Transport

	seq         uint64
	latestEval  uint64
	initialized bool

	baselineNodes []graph.Node
	baselineEdges []graph.Edge
	baselineOpts  *translate.Options

	values      map[string]protocol.Value
	diagnostics map[string][]protocol.Diagnostic
	partial     bool

	pending  map[uint64]pendingRequest
	removals map[uint64][]string

	engineInfo   *EngineInfo
	lastProgress *protocol.Progress
	lastStats    *protocol.Stats
}

// NewSynchronizer creates an uninitialized synchronizer; the first Observe
// performs a full snapshot load.
func NewSynchronizer(transport Transport, log *logger.Logger) *Synchronizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Synchronizer{
		log:         log,
		transport:   transport,
		values:      make(map[string]protocol.Value),
		diagnostics: make(map[string][]protocol.Diagnostic),
		pending:     make(map[uint64]pendingRequest),
		removals:    make(map[uint64][]string),
	}
}

// Observe synchronizes the engine with the given graph state. The first call
// dispatches a full snapshot load; every later call diffs against the
// last-synchronized baseline and dispatches an incremental patch, or nothing
// at all when the change is invisible to evaluation. The baseline is updated
// optimistically: it always tracks the latest observed graph, not the latest
// acknowledged one, and a failed send does not roll it back.
//
// The returned bool reports whether a request was dispatched.
func (s *Synchronizer) Observe(nodes []graph.Node, edges []graph.Edge, opts *translate.Options) (bool, error) {
	canonNodes, canonEdges := group.CanonicalSnapshot(nodes, edges)

	if !s.initialized {
		snapshot := translate.ToEngineSnapshot(canonNodes, canonEdges, opts)
		s.initialized = true
		s.storeBaseline(canonNodes, canonEdges, opts)

		err := s.dispatch(protocol.Request{Kind: protocol.ReqLoadSnapshot, Snapshot: &snapshot}, nil)
		return true, err
	}

	ops := diff.Graph(s.baselineNodes, s.baselineEdges, canonNodes, canonEdges, s.baselineOpts, opts)
	if len(ops) == 0 {
		return false, nil
	}

	s.storeBaseline(canonNodes, canonEdges, opts)

	var removed []string
	var added []string
	for _, op := range ops {
		switch op.Kind {
		case protocol.OpRemoveNode:
			removed = append(removed, op.NodeID)
		case protocol.OpAddNode:
			added = append(added, op.Node.ID)
		}
	}
	// A node re-added by this patch must not be deleted by an earlier,
	// still-unapplied removal.
	for _, id := range added {
		for seq, ids := range s.removals {
			s.removals[seq] = deleteID(ids, id)
		}
	}

	err := s.dispatch(protocol.Request{Kind: protocol.ReqApplyPatch, Patch: ops}, removed)
	return true, err
}

// SetInput dispatches a single-input change without a structural patch. The
// baseline is untouched: this path exists for transient scrubbing before the
// edit is committed to the graph.
func (s *Synchronizer) SetInput(nodeID, input string, value float64) error {
	return s.dispatch(protocol.Request{
		Kind:     protocol.ReqSetInput,
		SetInput: &protocol.SetInput{NodeID: nodeID, Input: input, Value: value},
	}, nil)
}

// RegisterDataset hands a large numeric buffer to the engine.
func (s *Synchronizer) RegisterDataset(ds protocol.Dataset) error {
	return s.dispatch(protocol.Request{Kind: protocol.ReqRegisterDataset, Dataset: &ds}, nil)
}

// ReleaseDataset releases a previously registered buffer.
func (s *Synchronizer) ReleaseDataset(id string) error {
	return s.dispatch(protocol.Request{Kind: protocol.ReqReleaseDataset, DatasetID: id}, nil)
}

// RequestStats asks the engine for its store statistics.
func (s *Synchronizer) RequestStats() error {
	return s.dispatch(protocol.Request{Kind: protocol.ReqGetStats}, nil)
}

func isEvalRequest(kind protocol.RequestKind) bool {
	switch kind {
	case protocol.ReqLoadSnapshot, protocol.ReqApplyPatch, protocol.ReqSetInput:
		return true
	}
	return false
}

// dispatch assigns the next sequence number, records the in-flight request,
// and sends it. When a value-bearing request supersedes an unacknowledged
// one, an advisory cancel is sent so the engine can skip queued work it has
// not started; in-flight work is handled by the discard rule alone.
func (s *Synchronizer) dispatch(req protocol.Request, removed []string) error {
	if isEvalRequest(req.Kind) && s.latestEval != 0 {
		if _, outstanding := s.pending[s.latestEval]; outstanding {
			superseded := s.latestEval
			s.seq++
			_ = s.transport.Send(protocol.Request{
				Kind:          protocol.ReqCancel,
				CorrelationID: s.seq,
				CancelTarget:  superseded,
			})
			s.log.WithFields(map[string]any{"superseded": superseded}).Debug("advisory cancel sent")
		}
	}

	s.seq++
	req.CorrelationID = s.seq
	s.pending[s.seq] = pendingRequest{kind: req.Kind, sentAt: time.Now()}

	if isEvalRequest(req.Kind) {
		s.latestEval = req.CorrelationID
		if removed != nil {
			s.removals[req.CorrelationID] = removed
		}
	}

	metrics.RequestsTotal.WithLabelValues(string(req.Kind)).Inc()
	s.log.WithFields(map[string]any{"kind": string(req.Kind), "seq": req.CorrelationID}).Debug("engine request dispatched")

	if err := s.transport.Send(req); err != nil {
		delete(s.pending, req.CorrelationID)
		return err
	}
	return nil
}

// HandleResponse applies one response from the engine. Stale value-bearing
// responses, superseded by a newer request at the moment of arrival, are
// silently discarded: the applied state always reflects the newest request
// only. The returned bool reports whether session-visible state changed.
func (s *Synchronizer) HandleResponse(resp protocol.Response) (bool, error) {
	switch resp.Kind {
	case protocol.RespReady:
		return s.handleReady(resp)
	case protocol.RespProgress:
		s.lastProgress = resp.Progress
		return false, nil
	case protocol.RespStats:
		delete(s.pending, resp.CorrelationID)
		s.lastStats = resp.Stats
		return true, nil
	case protocol.RespError:
		return s.handleError(resp)
	case protocol.RespResult:
		return s.handleResult(resp)
	case protocol.RespIncremental:
		return s.handleIncremental(resp)
	}
	return false, nil
}

func (s *Synchronizer) handleReady(resp protocol.Response) (bool, error) {
	if resp.Ready == nil {
		return false, nil
	}
	s.engineInfo = &EngineInfo{
		Operations:      resp.Ready.Operations,
		EngineVersion:   resp.Ready.EngineVersion,
		ContractVersion: resp.Ready.ContractVersion,
	}
	if resp.Ready.ContractVersion != protocol.ContractVersion {
		return false, gferrors.NewProtocolError("CONTRACT_MISMATCH",
			"engine speaks a different contract version")
	}
	s.log.WithFields(map[string]any{"engine": resp.Ready.EngineVersion}).Info("engine ready")
	// Ready carries no values, so it is not an applied evaluation.
	return false, nil
}

func (s *Synchronizer) handleError(resp protocol.Response) (bool, error) {
	pend, known := s.pending[resp.CorrelationID]
	delete(s.pending, resp.CorrelationID)

	if known && isEvalRequest(pend.kind) && resp.CorrelationID != s.latestEval {
		s.discardStale(resp)
		return false, nil
	}
	if resp.Error == nil {
		return false, gferrors.NewProtocolError("", "malformed error response")
	}
	// Surfaced verbatim; no automatic retry, and the optimistic baseline is
	// deliberately left where it is.
	return false, gferrors.NewProtocolError(resp.Error.Code, resp.Error.Message)
}

func (s *Synchronizer) handleResult(resp protocol.Response) (bool, error) {
	pend, known := s.pending[resp.CorrelationID]
	delete(s.pending, resp.CorrelationID)
	if resp.Result == nil {
		return false, nil
	}

	if known && !isEvalRequest(pend.kind) {
		// Dataset register/release acknowledgement; nothing to merge.
		s.observeTiming(pend, 0)
		return false, nil
	}
	if resp.CorrelationID != s.latestEval {
		s.discardStale(resp)
		return false, nil
	}

	// Full snapshot: the value map is replaced wholesale.
	s.values = make(map[string]protocol.Value, len(resp.Result.Values))
	for id, value := range resp.Result.Values {
		s.values[id] = value
	}
	s.rebuildDiagnostics(resp.Result.Diagnostics)
	s.partial = resp.Result.Partial
	s.clearRemovalsThrough(resp.CorrelationID)

	s.observeTiming(pend, resp.Result.ElapsedTimeUs)
	metrics.NodesEvaluated.Add(float64(len(resp.Result.Values)))
	if resp.Result.Partial {
		metrics.PartialResults.Inc()
	}
	metrics.ValueMapSize.Set(float64(len(s.values)))
	return true, nil
}

func (s *Synchronizer) handleIncremental(resp protocol.Response) (bool, error) {
	pend := s.pending[resp.CorrelationID]
	delete(s.pending, resp.CorrelationID)
	if resp.Incremental == nil {
		return false, nil
	}
	if resp.CorrelationID != s.latestEval {
		s.discardStale(resp)
		return false, nil
	}

	// Merge before removal cleanup, so a node both updated and removed in
	// the same patch ends up absent, not stale.
	for id, value := range resp.Incremental.ChangedValues {
		s.values[id] = value
	}
	s.mergeDiagnostics(resp.Incremental)
	s.applyRemovalsThrough(resp.CorrelationID)
	s.partial = resp.Incremental.Partial

	s.observeTiming(pend, resp.Incremental.ElapsedTimeUs)
	metrics.NodesEvaluated.Add(float64(resp.Incremental.EvaluatedCount))
	if resp.Incremental.Partial {
		metrics.PartialResults.Inc()
	}
	metrics.ValueMapSize.Set(float64(len(s.values)))
	return true, nil
}

// applyRemovalsThrough deletes value entries for nodes removed by every
// evaluation request up to and including seq. The engine processed those
// patches whether or not their responses survived the discard rule, so
// removals from superseded requests must still be honored.
func (s *Synchronizer) applyRemovalsThrough(seq uint64) {
	for reqSeq, ids := range s.removals {
		if reqSeq > seq {
			continue
		}
		for _, id := range ids {
			delete(s.values, id)
			delete(s.diagnostics, id)
		}
		delete(s.removals, reqSeq)
	}
}

func (s *Synchronizer) clearRemovalsThrough(seq uint64) {
	for reqSeq := range s.removals {
		if reqSeq <= seq {
			delete(s.removals, reqSeq)
		}
	}
}

func (s *Synchronizer) discardStale(resp protocol.Response) {
	metrics.StaleResponsesTotal.Inc()
	s.log.WithFields(map[string]any{
		"seq":    resp.CorrelationID,
		"latest": s.latestEval,
	}).Debug("stale response discarded")
}

func (s *Synchronizer) observeTiming(pend pendingRequest, engineUs int64) {
	if pend.sentAt.IsZero() {
		return
	}
	kind := string(pend.kind)
	metrics.RoundTripDuration.WithLabelValues(kind).Observe(time.Since(pend.sentAt).Seconds())
	metrics.EngineElapsed.WithLabelValues(kind).Observe(float64(engineUs) / 1e6)
}

func (s *Synchronizer) rebuildDiagnostics(diags []protocol.Diagnostic) {
	s.diagnostics = make(map[string][]protocol.Diagnostic)
	for _, diag := range diags {
		s.diagnostics[diag.NodeID] = append(s.diagnostics[diag.NodeID], diag)
	}
}

func (s *Synchronizer) mergeDiagnostics(inc *protocol.Incremental) {
	for id := range inc.ChangedValues {
		delete(s.diagnostics, id)
	}
	for _, diag := range inc.Diagnostics {
		s.diagnostics[diag.NodeID] = append(s.diagnostics[diag.NodeID], diag)
	}
}

// Baseline returns a copy of the last observed graph in canonical form.
func (s *Synchronizer) Baseline() ([]graph.Node, []graph.Edge) {
	return graph.CloneNodes(s.baselineNodes), graph.CloneEdges(s.baselineEdges)
}

// storeBaseline keeps private copies so later in-place mutation of the
// caller's slices cannot silently shift the diff baseline.
func (s *Synchronizer) storeBaseline(nodes []graph.Node, edges []graph.Edge, opts *translate.Options) {
	s.baselineNodes = graph.CloneNodes(nodes)
	s.baselineEdges = graph.CloneEdges(edges)
	s.baselineOpts = opts
}

// Values returns a snapshot copy of the cumulative value map.
func (s *Synchronizer) Values() map[string]protocol.Value {
	out := make(map[string]protocol.Value, len(s.values))
	for id, value := range s.values {
		out[id] = value
	}
	return out
}

// Diagnostics returns the current diagnostics in stable node order.
func (s *Synchronizer) Diagnostics() []protocol.Diagnostic {
	ids := make([]string, 0, len(s.diagnostics))
	for id := range s.diagnostics {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []protocol.Diagnostic
	for _, id := range ids {
		out = append(out, s.diagnostics[id]...)
	}
	return out
}

// Partial reports whether the latest accepted response was flagged partial.
// It is a signal, never an error.
func (s *Synchronizer) Partial() bool { return s.partial }

// EngineInfo returns the ready announcement, or nil before the handshake.
func (s *Synchronizer) EngineInfo() *EngineInfo { return s.engineInfo }

// LastProgress returns the most recent progress notification, if any.
func (s *Synchronizer) LastProgress() *protocol.Progress { return s.lastProgress }

// LastStats returns the most recent stats reply, if any.
func (s *Synchronizer) LastStats() *protocol.Stats { return s.lastStats }

func deleteID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
