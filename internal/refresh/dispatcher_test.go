package refresh_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/leadflow/internal/refresh"
)

type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	rec := &recorder{}
	d := refresh.NewDispatcher(func(ctx context.Context, leadID string) error {
		rec.record(leadID)
		return nil
	})

	d.Refresh("a")
	d.Refresh("b")
	d.Refresh("c")
	d.Close()

	assert.Equal(t, []string{"a", "b", "c"}, rec.snapshot())
}

func TestDispatcher_FailureIsIsolated(t *testing.T) {
	rec := &recorder{}
	d := refresh.NewDispatcher(func(ctx context.Context, leadID string) error {
		if leadID == "bad" {
			return errors.New("recompute failed")
		}
		rec.record(leadID)
		return nil
	})

	d.Refresh("bad")
	d.Refresh("good")
	d.Close()

	// The failed refresh never surfaces; later work still runs.
	assert.Equal(t, []string{"good"}, rec.snapshot())
}

func TestDispatcher_PanicIsContained(t *testing.T) {
	rec := &recorder{}
	d := refresh.NewDispatcher(func(ctx context.Context, leadID string) error {
		if leadID == "boom" {
			panic("unexpected")
		}
		rec.record(leadID)
		return nil
	})

	d.Refresh("boom")
	d.Refresh("after")
	d.Close()

	assert.Equal(t, []string{"after"}, rec.snapshot())
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	started := make(chan string, 3)
	release := make(chan struct{})
	rec := &recorder{}
	d := refresh.NewDispatcher(func(ctx context.Context, leadID string) error {
		started <- leadID
		<-release
		rec.record(leadID)
		return nil
	}, refresh.WithQueueSize(1))

	d.Refresh("working")
	select {
	case <-started: // worker is now busy, buffer is empty
	case <-time.After(time.Second):
		t.Fatal("worker never picked up the first refresh")
	}
	d.Refresh("queued")  // fills the buffer
	d.Refresh("dropped") // must drop, not block

	close(release)
	d.Close()

	require.Equal(t, []string{"working", "queued"}, rec.snapshot())
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	d := refresh.NewDispatcher(func(ctx context.Context, leadID string) error { return nil })
	d.Close()
	d.Close()
}
