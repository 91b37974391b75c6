// Package orchestrator sequences one analysis cycle: acquisition, the relay
// call and the resolved result or error. It owns the only mutable state in
// the client.
package orchestrator

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/example/deeptrust/internal/analysis"
	"github.com/example/deeptrust/internal/imageinput"
)

// ErrSuperseded is returned to the caller of a cycle that was replaced by a
// newer selection or a reset before its response arrived.
var ErrSuperseded = errors.New("analysis superseded by a newer selection")

// NotificationTitle heads every failure notification.
const NotificationTitle = "Analysis Failed"

// Phase is the lifecycle position of the current cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAnalyzing
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// State is a snapshot of the orchestrator. In PhaseResolved exactly one of
// Result and Err is set; Image stays set until Reset.
type State struct {
	Phase  Phase
	Cycle  uint64
	Image  *imageinput.ImageInput
	Result *analysis.Result
	Err    *analysis.Error
}

// Analyzer performs one relay round trip.
type Analyzer interface {
	Analyze(ctx context.Context, in imageinput.ImageInput) (*analysis.Result, error)
}

// Notifier surfaces a transient message to the user.
type Notifier interface {
	Notify(title, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, message string)

// Notify calls f.
func (f NotifierFunc) Notify(title, message string) { f(title, message) }

// Orchestrator runs at most one live cycle at a time. Selecting a new image
// starts a new cycle; the previous call is cancelled and whatever it returns
// is dropped.
type Orchestrator struct {
	analyzer Analyzer
	notifier Notifier
	logger   *zap.Logger

	mu       sync.Mutex
	state    State
	version  uint64
	cancel   context.CancelFunc
	onChange func(State)

	// deliverMu serializes onChange calls; delivered is the newest version
	// handed out so far.
	deliverMu sync.Mutex
	delivered uint64
}

// New constructs an idle orchestrator. notifier may be nil.
func New(analyzer Analyzer, notifier Notifier, logger *zap.Logger) *Orchestrator {
	if notifier == nil {
		notifier = NotifierFunc(func(string, string) {})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		analyzer: analyzer,
		notifier: notifier,
		logger:   logger.Named("orchestrator"),
	}
}

// OnChange registers fn to receive state transitions of live cycles. Calls
// are serialized and never go backwards: a snapshot older than one already
// delivered is dropped. fn must not call back into the orchestrator.
func (o *Orchestrator) OnChange(fn func(State)) {
	o.mu.Lock()
	o.onChange = fn
	o.mu.Unlock()
}

// State returns the current snapshot.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SelectURL acquires a URL input and analyzes it. A blank URL leaves the
// state untouched.
func (o *Orchestrator) SelectURL(ctx context.Context, raw string) (State, error) {
	in, err := imageinput.FromURL(raw)
	if err != nil {
		return o.State(), err
	}
	return o.Select(ctx, in)
}

// SelectFile acquires a file input and analyzes it. Non-image files are
// rejected without touching the state.
func (o *Orchestrator) SelectFile(ctx context.Context, r io.Reader, contentType string) (State, error) {
	in, err := imageinput.FromFile(r, contentType)
	if err != nil {
		return o.State(), err
	}
	return o.Select(ctx, in)
}

// Select starts a new cycle for in and blocks until it resolves. The
// returned state belongs to this cycle. If the cycle is superseded first,
// ErrSuperseded is returned and the late response is discarded.
func (o *Orchestrator) Select(ctx context.Context, in imageinput.ImageInput) (State, error) {
	callCtx, cycle := o.begin(ctx, in)

	result, err := o.analyzer.Analyze(callCtx, in)

	o.mu.Lock()
	if o.state.Cycle != cycle || o.state.Phase != PhaseAnalyzing {
		o.mu.Unlock()
		o.logger.Debug("discarding stale response", zap.Uint64("cycle", cycle))
		return State{}, ErrSuperseded
	}

	o.state.Phase = PhaseResolved
	var failure *analysis.Error
	if err != nil {
		failure = analysis.AsError(err)
		o.state.Err = failure
	} else {
		o.state.Result = result
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.version++
	version := o.version
	snapshot := o.state
	onChange := o.onChange
	o.mu.Unlock()

	if failure != nil {
		o.logger.Warn("analysis failed", zap.Uint64("cycle", cycle), zap.String("kind", string(failure.Kind)), zap.Error(failure))
		o.notifier.Notify(NotificationTitle, failure.Message)
	}
	o.emit(onChange, version, snapshot)
	if failure != nil {
		return snapshot, failure
	}
	return snapshot, nil
}

// Reset discards the image, result and error and returns to idle. Any
// in-flight call is cancelled and its response ignored.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.state = State{Phase: PhaseIdle, Cycle: o.state.Cycle + 1}
	o.version++
	version := o.version
	snapshot := o.state
	onChange := o.onChange
	o.mu.Unlock()

	o.emit(onChange, version, snapshot)
}

func (o *Orchestrator) begin(ctx context.Context, in imageinput.ImageInput) (context.Context, uint64) {
	callCtx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	image := in
	o.state = State{Phase: PhaseAnalyzing, Cycle: o.state.Cycle + 1, Image: &image}
	o.cancel = cancel
	cycle := o.state.Cycle
	o.version++
	version := o.version
	snapshot := o.state
	onChange := o.onChange
	o.mu.Unlock()

	o.emit(onChange, version, snapshot)
	return callCtx, cycle
}

func (o *Orchestrator) emit(fn func(State), version uint64, snapshot State) {
	if fn == nil {
		return
	}
	o.deliverMu.Lock()
	defer o.deliverMu.Unlock()
	if version <= o.delivered {
		o.logger.Debug("dropping stale snapshot", zap.Uint64("cycle", snapshot.Cycle))
		return
	}
	o.delivered = version
	fn(snapshot)
}
