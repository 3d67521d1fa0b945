package broker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSaver implements Saver with the same compare-and-set contract as the
// real store: a stale base version changes nothing.
type fakeSaver struct {
	mu    sync.Mutex
	p     model.Portfolio
	saves int
}

func newFakeSaver(id string) *fakeSaver {
	return &fakeSaver{p: model.Portfolio{ID: id, OwnerID: "u-1", Blocks: []model.Block{}}}
}

func (f *fakeSaver) SaveBlocks(_ context.Context, id string, baseVersion int64, blocks []model.Block) (*model.Portfolio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if baseVersion != f.p.Version {
		return nil, service.ErrVersionConflict
	}
	f.saves++
	f.p.Version++
	f.p.Blocks = blocks
	cp := f.p
	return &cp, nil
}

func (f *fakeSaver) Get(_ context.Context, id string) (*model.Portfolio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := f.p
	return &cp, nil
}

func (f *fakeSaver) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func someBlocks(label string) []model.Block {
	return []model.Block{{ID: label, Type: model.BlockTypeHero, Visible: true, Content: json.RawMessage(`{}`)}}
}

func TestBroker_SubmitAcceptsAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	saver := newFakeSaver("p-1")
	b := New(saver, 8)

	origin := b.Join("p-1")
	watcher := b.Join("p-1")
	defer b.Leave(origin)
	defer b.Leave(watcher)

	out := b.Submit(ctx, origin, "p-1", 0, someBlocks("b-1"))

	require.Equal(t, OutcomeAccepted, out.Kind)
	assert.Equal(t, int64(1), out.Portfolio.Version)

	select {
	case msg := <-watcher.Events():
		assert.Equal(t, EventAccepted, msg.Type)
		assert.Equal(t, int64(1), msg.Version)
	case <-time.After(time.Second):
		t.Fatal("watcher did not receive the broadcast")
	}

	// The originator already has the result locally and must not be echoed.
	select {
	case msg := <-origin.Events():
		t.Fatalf("originator received its own mutation: %+v", msg)
	default:
	}
}

func TestBroker_StaleBaseGetsConflictWithCurrentState(t *testing.T) {
	ctx := context.Background()
	saver := newFakeSaver("p-1")
	b := New(saver, 8)

	require.Equal(t, OutcomeAccepted, b.Submit(ctx, nil, "p-1", 0, someBlocks("b-1")).Kind)

	out := b.Submit(ctx, nil, "p-1", 0, someBlocks("b-2"))

	require.Equal(t, OutcomeConflict, out.Kind)
	require.NotNil(t, out.Portfolio)
	assert.Equal(t, int64(1), out.Portfolio.Version)
	require.Len(t, out.Portfolio.Blocks, 1)
	assert.Equal(t, "b-1", out.Portfolio.Blocks[0].ID)
}

func TestBroker_ConcurrentSameBaseAdmitsExactlyOne(t *testing.T) {
	ctx := context.Background()
	saver := newFakeSaver("p-1")
	b := New(saver, 8)

	const racers = 16
	outcomes := make(chan Outcome, racers)
	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			outcomes <- b.Submit(ctx, nil, "p-1", 0, someBlocks("racer"))
		}(i)
	}
	start.Done()
	done.Wait()
	close(outcomes)

	accepted, conflicted := 0, 0
	for out := range outcomes {
		switch out.Kind {
		case OutcomeAccepted:
			accepted++
			assert.Equal(t, int64(1), out.Portfolio.Version)
		case OutcomeConflict:
			conflicted++
			assert.Equal(t, int64(1), out.Portfolio.Version)
		default:
			t.Fatalf("unexpected outcome: %+v", out)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, racers-1, conflicted)
	assert.Equal(t, 1, saver.saveCount())
}

func TestBroker_LateWatcherSeesOnlyLaterVersions(t *testing.T) {
	ctx := context.Background()
	saver := newFakeSaver("p-1")
	b := New(saver, 8)

	for v := int64(0); v < 3; v++ {
		require.Equal(t, OutcomeAccepted, b.Submit(ctx, nil, "p-1", v, someBlocks("early")).Kind)
	}

	w := b.Join("p-1")
	defer b.Leave(w)

	require.Equal(t, OutcomeAccepted, b.Submit(ctx, nil, "p-1", 3, someBlocks("v4")).Kind)
	require.Equal(t, OutcomeAccepted, b.Submit(ctx, nil, "p-1", 4, someBlocks("v5")).Kind)

	var versions []int64
	for len(versions) < 2 {
		select {
		case msg := <-w.Events():
			versions = append(versions, msg.Version)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcasts")
		}
	}
	assert.Equal(t, []int64{4, 5}, versions)

	select {
	case msg := <-w.Events():
		t.Fatalf("received a broadcast from before the join: %+v", msg)
	default:
	}
}

func TestBroker_SlowWatcherIsDroppedNotWaitedOn(t *testing.T) {
	ctx := context.Background()
	saver := newFakeSaver("p-1")
	b := New(saver, 1)

	slow := b.Join("p-1")
	healthy := b.Join("p-1")
	defer b.Leave(healthy)

	// Fill slow's buffer, then overflow it. Nobody reads slow.Events().
	require.Equal(t, OutcomeAccepted, b.Submit(ctx, nil, "p-1", 0, someBlocks("a")).Kind)
	require.Equal(t, OutcomeAccepted, b.Submit(ctx, nil, "p-1", 1, someBlocks("b")).Kind)

	assert.Equal(t, 1, b.Watchers("p-1"))

	// The dropped connection's channel is closed after the buffered message.
	<-slow.Events()
	_, open := <-slow.Events()
	assert.False(t, open)

	// The healthy watcher got both deliveries.
	for i := 0; i < 2; i++ {
		select {
		case <-healthy.Events():
		case <-time.After(time.Second):
			t.Fatal("healthy watcher missed a delivery")
		}
	}

	// Leave on an already-dropped connection is harmless.
	b.Leave(slow)
}

func TestBroker_IdleGroupsAreReaped(t *testing.T) {
	saver := newFakeSaver("p-1")
	b := New(saver, 8)

	c := b.Join("p-1")
	assert.Equal(t, 1, b.Watchers("p-1"))
	b.Leave(c)
	assert.Equal(t, 0, b.Watchers("p-1"))

	b.mu.Lock()
	assert.Empty(t, b.groups)
	b.mu.Unlock()
}

func TestAutosave_CoalescesBurstIntoOneWrite(t *testing.T) {
	saver := newFakeSaver("p-1")
	b := New(saver, 8)

	outcomes := make(chan Outcome, 1)
	a := NewAutosave(b, 30*time.Millisecond, func(out Outcome) { outcomes <- out })
	defer a.Stop()

	for i := 0; i < 5; i++ {
		a.Queue(nil, "p-1", 0, someBlocks("burst"))
	}

	select {
	case out := <-outcomes:
		require.Equal(t, OutcomeAccepted, out.Kind)
		assert.Equal(t, int64(1), out.Portfolio.Version)
	case <-time.After(time.Second):
		t.Fatal("autosave never flushed")
	}
	assert.Equal(t, 1, saver.saveCount())
}

func TestAutosave_FlushPersistsPendingImmediately(t *testing.T) {
	saver := newFakeSaver("p-1")
	b := New(saver, 8)

	a := NewAutosave(b, time.Hour, nil)
	defer a.Stop()

	a.Queue(nil, "p-1", 0, someBlocks("pending"))
	a.Flush()

	assert.Equal(t, 1, saver.saveCount())
}

func TestAutosave_StopCancelsPending(t *testing.T) {
	saver := newFakeSaver("p-1")
	b := New(saver, 8)

	a := NewAutosave(b, time.Hour, nil)
	a.Queue(nil, "p-1", 0, someBlocks("never"))
	a.Stop()

	assert.Equal(t, 0, saver.saveCount())
}
