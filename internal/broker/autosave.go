package broker

import (
	"context"
	"sync"
	"time"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
)

// Autosave coalesces a rapid burst of edits from one connection into a single
// persisted write once the burst has been quiet for the quiescence interval.
// Only the newest intent survives a burst; the version rule in Submit still
// governs the coalesced write.
type Autosave struct {
	broker     *Broker
	quiescence time.Duration
	timeout    time.Duration
	onResult   func(Outcome)

	mu      sync.Mutex
	timer   *time.Timer
	pending *intent
	stopped bool
	wg      sync.WaitGroup
}

type intent struct {
	origin      *Conn
	portfolioID string
	baseVersion int64
	blocks      []model.Block
}

// NewAutosave constructs an Autosave for one connection. onResult receives
// the outcome of every flushed write; it may be nil.
func NewAutosave(b *Broker, quiescence time.Duration, onResult func(Outcome)) *Autosave {
	if quiescence <= 0 {
		quiescence = 2 * time.Second
	}
	return &Autosave{
		broker:     b,
		quiescence: quiescence,
		timeout:    10 * time.Second,
		onResult:   onResult,
	}
}

// Queue replaces any pending intent with this one and restarts the
// quiescence clock.
func (a *Autosave) Queue(origin *Conn, portfolioID string, baseVersion int64, blocks []model.Block) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.pending = &intent{origin: origin, portfolioID: portfolioID, baseVersion: baseVersion, blocks: blocks}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.quiescence, a.fire)
}

func (a *Autosave) fire() {
	a.mu.Lock()
	in := a.pending
	a.pending = nil
	if in == nil || a.stopped {
		a.mu.Unlock()
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()

	defer a.wg.Done()
	a.submit(in)
}

// Flush persists any pending intent immediately. Called on disconnect so a
// half-quiet burst isn't lost.
func (a *Autosave) Flush() {
	a.mu.Lock()
	in := a.pending
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()

	if in != nil {
		a.submit(in)
	}
}

// Stop cancels any pending write and waits for an in-flight one to finish.
func (a *Autosave) Stop() {
	a.mu.Lock()
	a.stopped = true
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *Autosave) submit(in *intent) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	out := a.broker.Submit(ctx, in.origin, in.portfolioID, in.baseVersion, in.blocks)
	if a.onResult != nil {
		a.onResult(out)
	}
}
