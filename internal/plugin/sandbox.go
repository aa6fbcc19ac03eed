package plugin

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultCallTimeout bounds one hook callback invocation. Callbacks run
// on the dispatcher goroutine, so this is the longest a plugin can stall
// event processing.
const DefaultCallTimeout = 50 * time.Millisecond

// sandbox owns one plugin's Lua state. Not safe for concurrent use; the
// host serializes all calls on the dispatcher goroutine.
type sandbox struct {
	L       *lua.LState
	timeout time.Duration
}

// newSandbox builds a Lua state with only the safe standard libraries:
// base, table, string, and math. io, os, debug, and package stay closed;
// a plugin's only I/O is the payload in and the command list out.
func newSandbox(timeout time.Duration) *sandbox {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// OpenBase installs a few escape hatches worth removing even from the
	// "safe" set.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &sandbox{L: L, timeout: timeout}
}

func (s *sandbox) close() {
	s.L.Close()
}

// runFile executes the plugin's entry script (function definitions,
// top-level setup).
func (s *sandbox) runFile(path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic in %s: %v", path, r)
		}
	}()
	return s.L.DoFile(path)
}

// hasFunction reports whether the script defined a global function name.
func (s *sandbox) hasFunction(name string) bool {
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// call invokes a global function with the payload string and returns its
// result: a string of commands, a boolean (for Before* veto), or nil.
// The call runs under the sandbox timeout via the state's context.
func (s *sandbox) call(fn string, payload string) (result lua.LValue, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic in %s: %v", fn, r)
		}
	}()

	err = s.L.CallByParam(lua.P{
		Fn:      s.L.GetGlobal(fn),
		NRet:    1,
		Protect: true,
	}, lua.LString(payload))
	if err != nil {
		return lua.LNil, err
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)
	return ret, nil
}
