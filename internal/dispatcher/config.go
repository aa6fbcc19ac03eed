package dispatcher

// Config configures a Dispatcher's channel buffering and fault handling.
type Config struct {
	// InputBufferSize bounds the input-event channel.
	InputBufferSize int
	// PluginBufferSize bounds the plugin-event channel.
	PluginBufferSize int
	// LSPBufferSize bounds the language-server-event channel.
	LSPBufferSize int
	// FilesystemBufferSize bounds the filesystem-event channel.
	FilesystemBufferSize int
	// TimerBufferSize bounds the timer-event channel.
	TimerBufferSize int

	// RecoverFromPanic wraps event application in a panic recovery that
	// converts the panic into an error rather than taking down the
	// process for a single bad event.
	RecoverFromPanic bool

	// EnableMetrics turns on dispatch latency/count tracking.
	EnableMetrics bool
}

// DefaultConfig returns sensible channel sizes for interactive use.
func DefaultConfig() Config {
	return Config{
		InputBufferSize:      64,
		PluginBufferSize:     64,
		LSPBufferSize:        128,
		FilesystemBufferSize: 32,
		TimerBufferSize:      16,
		RecoverFromPanic:     true,
		EnableMetrics:        true,
	}
}
