package dispatcher

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ninelines/scribe/internal/dispatcher/hook"
	"github.com/ninelines/scribe/internal/engine/event"
	"github.com/ninelines/scribe/internal/engine/eventstate"
	"github.com/ninelines/scribe/internal/notify"
)

// Source identifies which channel an event arrived on, for metrics and
// logging.
type Source uint8

const (
	SourceInput Source = iota
	SourcePlugin
	SourceLSP
	SourceFilesystem
	SourceTimer
)

func (s Source) String() string {
	switch s {
	case SourceInput:
		return "input"
	case SourcePlugin:
		return "plugin"
	case SourceLSP:
		return "lsp"
	case SourceFilesystem:
		return "filesystem"
	case SourceTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// Dispatcher is the single-writer event loop: one goroutine drains the
// five source channels in fixed priority order and is the only caller of
// EditorState.Apply for the state it owns.
type Dispatcher struct {
	mu    sync.RWMutex
	state *eventstate.EditorState

	config   Config
	hooks    *hook.Manager
	notifier *notify.Bus
	wired    bool

	metrics *Metrics

	input      chan *event.Event
	plugin     chan *event.Event
	lsp        chan *event.Event
	filesystem chan *event.Event
	timer      chan *event.Event

	done    chan struct{}
	running bool
}

// New creates a Dispatcher over state with the given configuration.
func New(state *eventstate.EditorState, config Config) *Dispatcher {
	d := &Dispatcher{
		state:      state,
		config:     config,
		hooks:      hook.NewManager(),
		input:      make(chan *event.Event, config.InputBufferSize),
		plugin:     make(chan *event.Event, config.PluginBufferSize),
		lsp:        make(chan *event.Event, config.LSPBufferSize),
		filesystem: make(chan *event.Event, config.FilesystemBufferSize),
		timer:      make(chan *event.Event, config.TimerBufferSize),
		done:       make(chan struct{}),
	}
	if config.EnableMetrics {
		d.metrics = NewMetrics()
	}
	return d
}

// NewWithDefaults creates a Dispatcher with DefaultConfig.
func NewWithDefaults(state *eventstate.EditorState) *Dispatcher {
	return New(state, DefaultConfig())
}

// Hooks returns the dispatcher's hook manager for registering
// before/after event hooks.
func (d *Dispatcher) Hooks() *hook.Manager {
	return d.hooks
}

// Metrics returns the metrics collector, or nil if disabled.
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// SetNotifier attaches the fan-out bus. After every successfully applied
// event the dispatcher publishes it on "apply.<kind>" (lowercased), so a
// renderer subscribes to "apply.**" and an overlay-interested subsystem
// to "apply.addoverlay". Set before Start.
func (d *Dispatcher) SetNotifier(b *notify.Bus) {
	d.notifier = b
}

// SetState switches the EditorState the dispatcher applies events
// against, e.g. when the active document changes.
func (d *Dispatcher) SetState(state *eventstate.EditorState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
}

// Channel returns the send side of one source's channel.
func (d *Dispatcher) Channel(src Source) chan<- *event.Event {
	switch src {
	case SourceInput:
		return d.input
	case SourcePlugin:
		return d.plugin
	case SourceLSP:
		return d.lsp
	case SourceFilesystem:
		return d.filesystem
	case SourceTimer:
		return d.timer
	default:
		return nil
	}
}

// Submit enqueues an event on src's channel, blocking if it is full.
// Callers that must never block (e.g. a UI goroutine) should select on
// Channel(src) with a default case instead.
func (d *Dispatcher) Submit(src Source, e *event.Event) {
	d.Channel(src) <- e
}

// Start launches the single dispatch goroutine. Returns ErrAlreadyRunning
// if already started.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.running = true
	d.wireHooksOnce()
	d.mu.Unlock()

	go d.loop()
	return nil
}

// Stop halts the dispatch goroutine. Returns ErrNotRunning if not started.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ErrNotRunning
	}
	d.running = false
	close(d.done)
	return nil
}

func (d *Dispatcher) wireHooksOnce() {
	if d.wired {
		return
	}
	d.wired = true
	d.state.AddBeforeHook(d.hooks.RunBefore)
	d.state.AddAfterHook(d.hooks.RunAfter)
}

// loop drains the five channels in fixed priority order: on every
// iteration it tries input, then plugin, then lsp, then filesystem, then
// timer, applying at most one event before starting the scan over again.
// This means a steady stream of high-priority input events can starve
// timers indefinitely, which is the intended trade-off: interactive
// typing latency always wins over background housekeeping.
func (d *Dispatcher) loop() {
	for {
		select {
		case <-d.done:
			return
		default:
		}

		e, ok := d.next()
		if !ok {
			select {
			case <-d.done:
				return
			case <-time.After(time.Millisecond):
			}
			continue
		}

		d.applyOne(e)
	}
}

func (d *Dispatcher) next() (*event.Event, bool) {
	select {
	case e := <-d.input:
		return e, true
	default:
	}
	select {
	case e := <-d.plugin:
		return e, true
	default:
	}
	select {
	case e := <-d.lsp:
		return e, true
	default:
	}
	select {
	case e := <-d.filesystem:
		return e, true
	default:
	}
	select {
	case e := <-d.timer:
		return e, true
	default:
	}
	return nil, false
}

func (d *Dispatcher) applyOne(e *event.Event) {
	d.mu.RLock()
	state := d.state
	d.mu.RUnlock()

	if state == nil {
		return
	}

	start := time.Now()
	var err error
	if d.config.RecoverFromPanic {
		err = d.applyWithRecovery(state, e)
	} else {
		err = state.Apply(e)
	}

	if d.metrics != nil {
		d.metrics.RecordApply(e, time.Since(start), err)
	}
	if err == nil && d.notifier != nil {
		d.notifier.Publish(notify.Topic("apply."+strings.ToLower(e.Kind.String())), e)
	}
}

func (d *Dispatcher) applyWithRecovery(state *eventstate.EditorState, e *event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			err = fmt.Errorf("dispatcher: panic applying %s: %v\n%s", e.Kind, r, string(stack[:n]))
			if d.metrics != nil {
				d.metrics.RecordPanic(e.Kind.String())
			}
		}
	}()
	return state.Apply(e)
}
