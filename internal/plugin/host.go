package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/ninelines/scribe/internal/app"
	"github.com/ninelines/scribe/internal/dispatcher"
	"github.com/ninelines/scribe/internal/dispatcher/hook"
	"github.com/ninelines/scribe/internal/engine/event"
	"github.com/ninelines/scribe/internal/engine/eventstate"
)

// Plugin is one loaded extension: its manifest plus its running sandbox.
type Plugin struct {
	Manifest *Manifest
	sandbox  *sandbox
	hooks    map[string]bool
}

// Name returns the plugin's manifest name.
func (p *Plugin) Name() string { return p.Manifest.Name }

// Host loads plugins and routes hook traffic between the dispatcher and
// their sandboxes.
type Host struct {
	logger  *app.Logger
	submit  func(*event.Event)
	status  func(plugin, message string)
	timeout time.Duration

	plugins []*Plugin

	// bufferID and state identify the document current hook payloads
	// describe; the host is driven from the dispatcher goroutine, so no
	// lock is needed.
	bufferID string
	state    *eventstate.EditorState
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithCallTimeout overrides the per-callback timeout.
func WithCallTimeout(d time.Duration) HostOption {
	return func(h *Host) { h.timeout = d }
}

// WithStatusSink routes set_status commands; default is the log.
func WithStatusSink(fn func(plugin, message string)) HostOption {
	return func(h *Host) { h.status = fn }
}

// NewHost creates a host that submits plugin-generated events through
// submit (normally the dispatcher's plugin channel).
func NewHost(logger *app.Logger, submit func(*event.Event), opts ...HostOption) *Host {
	if logger == nil {
		logger = app.NullLogger
	}
	h := &Host{
		logger:  logger.WithComponent("plugin"),
		submit:  submit,
		timeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.status == nil {
		h.status = func(plugin, message string) {
			h.logger.Info("[%s] %s", plugin, message)
		}
	}
	return h
}

// SetDocument points subsequent hook payloads at a document.
func (h *Host) SetDocument(bufferID string, state *eventstate.EditorState) {
	h.bufferID = bufferID
	h.state = state
}

// LoadDir loads every plugin directory under root (one subdirectory per
// plugin, each with a plugin.toml). Load failures are logged and skipped:
// one broken plugin must not block the rest.
func (h *Host) LoadDir(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("reading plugin dir %s: %w", root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := h.Load(filepath.Join(root, name)); err != nil {
			h.logger.Warn("skipping plugin %s: %v", name, err)
		}
	}
	return nil
}

// Load loads a single plugin directory and runs its entry script.
func (h *Host) Load(dir string) (*Plugin, error) {
	m, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	for _, p := range h.plugins {
		if p.Manifest.Name == m.Name {
			return nil, fmt.Errorf("plugin %s already loaded", m.Name)
		}
	}

	sb := newSandbox(h.timeout)
	if err := sb.runFile(m.EntryPath()); err != nil {
		sb.close()
		return nil, fmt.Errorf("plugin %s: %w", m.Name, err)
	}

	p := &Plugin{Manifest: m, sandbox: sb, hooks: make(map[string]bool)}
	for _, name := range m.Hooks {
		fn := "on_" + name
		if !sb.hasFunction(fn) {
			sb.close()
			return nil, fmt.Errorf("plugin %s subscribes %q but defines no %s", m.Name, name, fn)
		}
		p.hooks[name] = true
	}

	h.plugins = append(h.plugins, p)
	h.logger.Info("loaded plugin %s %s (%d hooks)", m.Name, m.Version, len(p.hooks))
	return p, nil
}

// Plugins returns the loaded plugins in load order.
func (h *Host) Plugins() []*Plugin {
	return h.plugins
}

// Close tears down every sandbox.
func (h *Host) Close() {
	for _, p := range h.plugins {
		p.sandbox.close()
	}
	h.plugins = nil
}

// AttachHooks registers the host with a dispatcher hook manager so every
// applied event is offered to subscribing plugins.
func (h *Host) AttachHooks(hm *hook.Manager) {
	hm.RegisterBefore(hook.NewBeforeFunc("plugin-host", hook.PriorityPlugin, h.fireBefore))
	hm.RegisterAfter(hook.NewAfterFunc("plugin-host", hook.PriorityPlugin, h.fireAfter))
}

// fireBefore offers a not-yet-applied event to subscribing plugins. Any
// plugin returning false vetoes it.
func (h *Host) fireBefore(e *event.Event) bool {
	name, _ := HookForEvent(e)
	if name == "" {
		return true
	}
	payload := BuildPayload(h.bufferID, e, h.state)
	for _, p := range h.plugins {
		if !p.hooks[name] {
			continue
		}
		ret, err := p.sandbox.call("on_"+name, payload)
		if err != nil {
			h.logger.Warn("plugin %s %s: %v", p.Name(), name, err)
			continue
		}
		if b, ok := ret.(lua.LBool); ok && !bool(b) {
			h.logger.Debug("plugin %s vetoed %s", p.Name(), e.Kind)
			return false
		}
	}
	return true
}

// fireAfter notifies subscribing plugins of an applied event and submits
// any commands they return.
func (h *Host) fireAfter(e *event.Event) {
	_, name := HookForEvent(e)
	if name == "" {
		return
	}
	payload := BuildPayload(h.bufferID, e, h.state)
	for _, p := range h.plugins {
		if !p.hooks[name] {
			continue
		}
		ret, err := p.sandbox.call("on_"+name, payload)
		if err != nil {
			h.logger.Warn("plugin %s %s: %v", p.Name(), name, err)
			continue
		}
		h.dispatchResult(p, ret)
	}
}

// FireIdle runs the idle hook across plugins; the timer source calls this
// when the editor has been quiet.
func (h *Host) FireIdle() {
	for _, p := range h.plugins {
		if !p.hooks[HookIdle] {
			continue
		}
		ret, err := p.sandbox.call("on_"+HookIdle, `{}`)
		if err != nil {
			h.logger.Warn("plugin %s idle: %v", p.Name(), err)
			continue
		}
		h.dispatchResult(p, ret)
	}
}

func (h *Host) dispatchResult(p *Plugin, ret lua.LValue) {
	str, ok := ret.(lua.LString)
	if !ok {
		return
	}
	cmds, err := ParseCommands(string(str))
	if err != nil {
		h.logger.Warn("plugin %s returned bad commands: %v", p.Name(), err)
		return
	}
	for _, cmd := range cmds {
		capability, _ := capabilityFor(cmd.Op)
		if !p.Manifest.Allows(capability) {
			h.logger.Warn("plugin %s lacks capability %q for op %s; dropped", p.Name(), capability, cmd.Op)
			continue
		}
		if cmd.Op == OpSetStatus {
			h.status(p.Name(), cmd.Message)
			continue
		}
		if ev := cmd.Event(); ev != nil && h.submit != nil {
			h.submit(ev)
		}
	}
}

// ConnectDispatcher wires the host into a dispatcher: hook registration
// for observation and the plugin channel for command submission. The
// submit is non-blocking: hooks run on the dispatcher goroutine, the
// same goroutine that drains the channel, so blocking on a full channel
// would deadlock the loop. A full channel drops the command with a
// warning instead.
func ConnectDispatcher(h *Host, d *dispatcher.Dispatcher) {
	ch := d.Channel(dispatcher.SourcePlugin)
	h.submit = func(e *event.Event) {
		select {
		case ch <- e:
		default:
			h.logger.Warn("plugin channel full; dropping %s", e.Kind)
		}
	}
	h.AttachHooks(d.Hooks())
}
