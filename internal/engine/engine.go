// Package engine hosts the evaluation engine in its own isolated execution
// context: a single goroutine with a run-to-completion mailbox loop, reachable
// only by message passing. It owns a persistent graph store, applies patch
// operations incrementally, and re-evaluates only what a patch dirtied.
package engine

import (
	"fmt"
	"sync"

	"github.com/gridflow/gridflow/internal/logger"
	"github.com/gridflow/gridflow/internal/protocol"
)

// Version is the human-readable engine version announced in the ready message.
const Version = "gridflow-engine 1.4.0"

// Options tunes an engine instance.
type Options struct {
	Log *logger.Logger

	// EvalLimit caps nodes evaluated per request; exceeding it yields a
	// partial result. Zero means unlimited.
	EvalLimit int

	// ProgressEvery emits a progress notification after every N evaluated
	// nodes. Zero disables progress.
	ProgressEvery int
}

// Engine is a handle to a running engine. Send and Responses are safe for use
// from other goroutines; all evaluation state is confined to the engine's own
// goroutine.
type Engine struct {
	opts      Options
	responses chan protocol.Response

	mu       sync.Mutex
	wake     chan struct{}
	pending  []protocol.Request
	canceled map[uint64]struct{}
	closed   bool

	store *store
}

// Start boots an engine goroutine and announces readiness. The ready message
// carries the operation catalog and the contract version callers should check
// before sending requests.
func Start(opts Options) *Engine {
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	e := &Engine{
		opts:      opts,
		responses: make(chan protocol.Response, 64),
		wake:      make(chan struct{}, 1),
		canceled:  make(map[uint64]struct{}),
		store:     newStore(),
	}
	go e.run()
	return e
}

// Responses returns the channel the engine replies on.
func (e *Engine) Responses() <-chan protocol.Response {
	return e.responses
}

// Send enqueues a request. A cancel request marks its target: queued work that
// has not started is skipped, but work already running is never interrupted
// because the engine's computation model is run-to-completion.
func (e *Engine) Send(req protocol.Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("engine is closed")
	}

	if req.Kind == protocol.ReqCancel {
		e.canceled[req.CancelTarget] = struct{}{}
	} else {
		e.pending = append(e.pending, req)
	}

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close shuts the engine down after in-flight work completes. The responses
// channel is closed once the loop exits.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) run() {
	e.responses <- protocol.Response{
		Kind: protocol.RespReady,
		Ready: &protocol.Ready{
			Operations:      OperationKinds(),
			EngineVersion:   Version,
			ContractVersion: protocol.ContractVersion,
		},
	}

	for {
		req, ok := e.next()
		if !ok {
			close(e.responses)
			return
		}
		e.responses <- e.dispatch(req)
	}
}

// next pops the oldest queued request that has not been canceled, blocking
// until one arrives or the engine is closed with an empty queue.
func (e *Engine) next() (protocol.Request, bool) {
	for {
		e.mu.Lock()
		for len(e.pending) > 0 {
			req := e.pending[0]
			e.pending = e.pending[1:]
			if _, skip := e.canceled[req.CorrelationID]; skip {
				delete(e.canceled, req.CorrelationID)
				e.opts.Log.WithFields(map[string]any{"correlation_id": req.CorrelationID}).Debug("skipping canceled queued request")
				continue
			}
			e.mu.Unlock()
			return req, true
		}
		closed := e.closed
		e.mu.Unlock()

		if closed {
			return protocol.Request{}, false
		}
		<-e.wake
	}
}

func (e *Engine) dispatch(req protocol.Request) protocol.Response {
	log := e.opts.Log.WithFields(map[string]any{"kind": string(req.Kind), "correlation_id": req.CorrelationID})
	log.Debug("engine request")

	switch req.Kind {
	case protocol.ReqLoadSnapshot:
		if req.Snapshot == nil {
			return errorResponse(req, "BAD_REQUEST", "loadSnapshot requires a snapshot payload")
		}
		return e.loadSnapshot(req)
	case protocol.ReqApplyPatch:
		if len(req.Patch) == 0 {
			return errorResponse(req, "BAD_REQUEST", "applyPatch requires a non-empty patch")
		}
		return e.applyPatch(req)
	case protocol.ReqSetInput:
		if req.SetInput == nil {
			return errorResponse(req, "BAD_REQUEST", "setInput requires a payload")
		}
		return e.setInput(req)
	case protocol.ReqRegisterDataset:
		if req.Dataset == nil || req.Dataset.ID == "" {
			return errorResponse(req, "BAD_REQUEST", "registerDataset requires a dataset with an id")
		}
		e.store.datasets[req.Dataset.ID] = *req.Dataset
		return protocol.Response{Kind: protocol.RespResult, CorrelationID: req.CorrelationID, Result: &protocol.Result{}}
	case protocol.ReqReleaseDataset:
		delete(e.store.datasets, req.DatasetID)
		return protocol.Response{Kind: protocol.RespResult, CorrelationID: req.CorrelationID, Result: &protocol.Result{}}
	case protocol.ReqGetStats:
		return protocol.Response{
			Kind:          protocol.RespStats,
			CorrelationID: req.CorrelationID,
			Stats: &protocol.Stats{
				NodeCount:    len(e.store.nodes),
				EdgeCount:    len(e.store.edges),
				DatasetCount: len(e.store.datasets),
				Evaluations:  e.store.evaluations,
			},
		}
	default:
		return errorResponse(req, "UNKNOWN_REQUEST", fmt.Sprintf("unknown request kind %q", req.Kind))
	}
}

func errorResponse(req protocol.Request, code, message string) protocol.Response {
	return protocol.Response{
		Kind:          protocol.RespError,
		CorrelationID: req.CorrelationID,
		Error:         &protocol.ErrorInfo{Code: code, Message: message},
	}
}
