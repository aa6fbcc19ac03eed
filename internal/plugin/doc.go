// Package plugin hosts untrusted editor extensions in sandboxed Lua
// states and mediates everything they see and do. The contract has three
// legs:
//
//   - Plugins observe the editor only through serialized JSON hook
//     payloads. They never hold a reference to editor state, so a plugin
//     can neither read stale state nor mutate anything directly.
//   - Plugins influence the editor only through commands: small JSON
//     objects returned from hook callbacks, converted to engine events
//     and submitted on the dispatcher's plugin channel, where they take
//     their turn behind user input.
//   - Each command class is gated by a capability declared in the
//     plugin's manifest; undeclared commands are dropped with a warning
//     rather than executed.
//
// Hook callbacks run synchronously on the dispatcher goroutine with a
// per-call timeout, so a misbehaving plugin stalls one event, not the
// process.
package plugin
