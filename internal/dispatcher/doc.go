// Package dispatcher runs the editor's single-writer event loop. Exactly
// one goroutine ever calls EditorState.Apply; every other goroutine
// (keyboard input, plugin commands, language-server notifications,
// filesystem watchers, timers) hands events to the dispatcher over a
// bounded channel instead of touching editor state directly.
//
// The loop drains its five source channels in a fixed priority order on
// every iteration: input, then plugins, then LSP, then filesystem, then
// timers. A channel is only read from if every higher-priority channel
// was empty on that pass, so a burst of filesystem events can never
// starve interactive typing.
package dispatcher
