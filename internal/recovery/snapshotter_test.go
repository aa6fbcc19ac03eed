package recovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ninelines/scribe/internal/engine/buffer"
)

func TestSnapshotterWritesDueTargets(t *testing.T) {
	s := newTestStore(t)
	id := ScratchID()

	var mu sync.Mutex
	pending := true
	collect := func() []Target {
		mu.Lock()
		defer mu.Unlock()
		if !pending {
			return nil
		}
		return []Target{{
			ID:     id,
			Meta:   Metadata{FinalSize: 5},
			Chunks: []buffer.RecoveryChunk{{Offset: 0, NewBytes: []byte("dirty")}},
			Done: func() {
				mu.Lock()
				pending = false
				mu.Unlock()
			},
		}}
	}

	sn := NewSnapshotter(s, 5*time.Millisecond, collect, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sn.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := !pending
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	if pending {
		mu.Unlock()
		t.Fatal("snapshotter never ticked")
	}
	mu.Unlock()

	out := s.Load(id)
	if out.Kind != Recovered || string(out.Content) != "dirty" {
		t.Errorf("Load = %s %q", out.Kind, out.Content)
	}
}
