// Package main is the headless entry point for the scribe editing
// engine: it wires configuration, logging, the editor, the dispatcher,
// and the session services (filesystem watch, crash recovery) around the
// files named on the command line. Terminal rendering and key handling
// belong to a front end built on top of this engine; this binary exists
// to exercise the full stack and to host recovery inspection.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ninelines/scribe/internal/app"
	"github.com/ninelines/scribe/internal/config"
	"github.com/ninelines/scribe/internal/dispatcher"
	"github.com/ninelines/scribe/internal/engine/buffer"
	"github.com/ninelines/scribe/internal/notify"
	"github.com/ninelines/scribe/internal/plugin"
	"github.com/ninelines/scribe/internal/recovery"
	"github.com/ninelines/scribe/internal/session"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  string
		pluginDir   string
		showVersion bool
		listRecover bool
	)
	flag.StringVar(&configPath, "config", "", "path to settings file")
	flag.StringVar(&pluginDir, "plugins", "", "directory of plugins to load")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.BoolVar(&listRecover, "list-recovery", false, "list recovery snapshots and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("scribe %s (%s)\n", version, commit)
		return 0
	}

	settings, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger := app.NewLogger(app.LoggerConfig{
		Level:  app.ParseLogLevel(settings.Logging.Level),
		Output: os.Stderr,
		Prefix: "scribe",
	})
	app.SetLogger(logger)

	if listRecover {
		return listRecovery(settings, logger)
	}

	editor := app.NewEditor()
	if err := editor.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer editor.Stop()

	sess, err := session.New(editor, session.Config{
		RecoveryDir:      settings.Recovery.Dir,
		RecoveryInterval: settings.Recovery.Interval.Std(),
		WatchDebounce:    settings.Watch.Debounce.Std(),
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer sess.Close()

	if crashed, prev := sess.CrashDetected(); crashed {
		logger.Warn("previous session (pid %d) exited uncleanly; recovery snapshots may be available, run with -list-recovery", prev.PID)
	}

	// Open the files named on the command line; the last becomes active.
	for _, path := range flag.Args() {
		if err := editor.OpenPath(path, buffer.WithThreshold(settings.Editor.ChunkThresholdBytes), buffer.WithTabWidth(settings.Editor.TabWidth)); err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", path, err)
			return 1
		}
		if err := sess.WatchDocument(path); err != nil {
			logger.Warn("cannot watch %s: %v", path, err)
		}
	}
	if len(flag.Args()) == 0 {
		if err := editor.OpenScratch("*scratch*", ""); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	state, err := editor.Active()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	d := dispatcher.New(state, dispatcher.DefaultConfig())
	bus := notify.NewBufferedBus(256)
	defer bus.Close()
	d.SetNotifier(bus)

	host := plugin.NewHost(logger, nil)
	defer host.Close()
	plugin.ConnectDispatcher(host, d)
	host.SetDocument(editor.ActiveID(), state)
	if pluginDir != "" {
		if err := host.LoadDir(pluginDir); err != nil {
			logger.Warn("plugin load: %v", err)
		}
	}

	if err := d.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer d.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.Start(ctx)

	logger.Info("scribe %s engine up: %d document(s), dispatcher running", version, len(editor.DocumentIDs()))

	// Headless: run until interrupted, then shut down cleanly so the
	// session lock is released and recovery snapshots are discarded.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
	logger.Info("shutting down")
	return 0
}

func listRecovery(settings config.Settings, logger *app.Logger) int {
	store, err := recovery.NewStore(settings.Recovery.Dir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	ids, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(ids) == 0 {
		fmt.Println("no recovery snapshots")
		return 0
	}
	for _, id := range ids {
		out := store.Load(id)
		switch out.Kind {
		case recovery.Recovered:
			fmt.Printf("%s  full content, %d bytes (%s)\n", id, len(out.Content), out.Meta.BufferName)
		case recovery.RecoveredChunks:
			fmt.Printf("%s  %d chunk(s) atop %s\n", id, len(out.Chunks), out.Meta.OriginalPath)
		case recovery.OriginalFileModified:
			fmt.Printf("%s  original modified since snapshot: %s\n", id, out.Path)
		case recovery.Corrupted:
			fmt.Printf("%s  corrupted: %s\n", id, out.Reason)
		default:
			fmt.Printf("%s  %s\n", id, out.Kind)
		}
	}
	return 0
}
