// Package broker keeps every live connection watching a portfolio eventually
// consistent with the latest accepted mutation, while giving the store a
// single serialized stream of writes per portfolio.
package broker

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/service"
)

// Event names carried on the wire.
const (
	EventAccepted = "mutation-accepted"
	EventConflict = "mutation-conflict"
)

// Message is one broadcast or reply delivered to a connection.
type Message struct {
	Type        string        `json:"type"`
	PortfolioID string        `json:"portfolioId"`
	Version     int64         `json:"version"`
	Blocks      []model.Block `json:"blocks"`
}

// OutcomeKind classifies the result of a submitted mutation intent.
type OutcomeKind int

const (
	// OutcomeAccepted means the mutation persisted and the version advanced.
	OutcomeAccepted OutcomeKind = iota
	// OutcomeConflict means the base version was stale; Portfolio carries the
	// current server state for the client to rebase on.
	OutcomeConflict
	// OutcomeError means the store failed; Err carries the cause.
	OutcomeError
)

// Outcome is the typed result of Submit. Conflicts are an expected, frequent
// result the caller branches on, not an error.
type Outcome struct {
	Kind      OutcomeKind
	Portfolio *model.Portfolio
	Err       error
}

// Saver is the slice of the portfolio service the broker needs: a guarded
// write and a read for populating conflict replies.
type Saver interface {
	SaveBlocks(ctx context.Context, id string, baseVersion int64, blocks []model.Block) (*model.Portfolio, error)
	Get(ctx context.Context, id string) (*model.Portfolio, error)
}

// Conn is one live connection bound to a single portfolio. Deliveries arrive
// on Events; the channel is closed when the connection is dropped or leaves.
type Conn struct {
	id          string
	portfolioID string
	send        chan Message

	closeOnce sync.Once
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// Events is the connection's delivery channel. The reader must drain it
// promptly; a connection whose buffer stays full is dropped from the group.
func (c *Conn) Events() <-chan Message { return c.send }

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

type group struct {
	conns map[string]*Conn
	// submitMu is the per-portfolio sequencing point: concurrent intents for
	// one portfolio are applied one at a time.
	submitMu sync.Mutex
	// inflight counts submitters holding a reference so an idle group is not
	// reaped mid-submit.
	inflight int
}

// Broker is the live-sync hub. Groups are keyed by portfolio ID and exist
// only while they have watchers or in-flight submissions; a portfolio with no
// watchers still accepts mutations, they are just not broadcast.
type Broker struct {
	saver      Saver
	sendBuffer int

	mu     sync.Mutex
	groups map[string]*group
}

// New constructs a Broker. sendBuffer is the per-connection delivery buffer;
// zero picks a sane default.
func New(saver Saver, sendBuffer int) *Broker {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Broker{
		saver:      saver,
		sendBuffer: sendBuffer,
		groups:     make(map[string]*group),
	}
}

// Join registers a new connection watching portfolioID and returns it.
func (b *Broker) Join(portfolioID string) *Conn {
	c := &Conn{
		id:          uuid.New().String(),
		portfolioID: portfolioID,
		send:        make(chan Message, b.sendBuffer),
	}

	b.mu.Lock()
	g := b.groups[portfolioID]
	if g == nil {
		g = &group{conns: make(map[string]*Conn)}
		b.groups[portfolioID] = g
	}
	g.conns[c.id] = c
	b.mu.Unlock()

	return c
}

// Leave deregisters the connection and closes its delivery channel. Safe to
// call more than once.
func (b *Broker) Leave(c *Conn) {
	b.mu.Lock()
	if g, ok := b.groups[c.portfolioID]; ok {
		delete(g.conns, c.id)
		b.reapLocked(c.portfolioID, g)
	}
	b.mu.Unlock()
	c.close()
}

// Watchers reports how many live connections are registered for portfolioID.
func (b *Broker) Watchers(portfolioID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g, ok := b.groups[portfolioID]; ok {
		return len(g.conns)
	}
	return 0
}

// Submit applies a mutation intent against portfolioID on behalf of origin
// (nil when the intent arrived over plain HTTP rather than a live
// connection). Intents for the same portfolio are serialized; an accepted
// mutation is broadcast to every watcher except the originator.
func (b *Broker) Submit(ctx context.Context, origin *Conn, portfolioID string, baseVersion int64, blocks []model.Block) Outcome {
	g := b.acquire(portfolioID)
	g.submitMu.Lock()
	defer func() {
		g.submitMu.Unlock()
		b.release(portfolioID, g)
	}()

	p, err := b.saver.SaveBlocks(ctx, portfolioID, baseVersion, blocks)
	if err != nil {
		if errors.Is(err, service.ErrVersionConflict) {
			current, gerr := b.saver.Get(ctx, portfolioID)
			if gerr != nil {
				return Outcome{Kind: OutcomeError, Err: gerr}
			}
			return Outcome{Kind: OutcomeConflict, Portfolio: current}
		}
		return Outcome{Kind: OutcomeError, Err: err}
	}

	b.broadcast(origin, Message{
		Type:        EventAccepted,
		PortfolioID: portfolioID,
		Version:     p.Version,
		Blocks:      p.Blocks,
	})
	return Outcome{Kind: OutcomeAccepted, Portfolio: p}
}

// acquire pins the portfolio's group for the duration of a submission,
// creating it if the portfolio currently has no watchers.
func (b *Broker) acquire(portfolioID string) *group {
	b.mu.Lock()
	defer b.mu.Unlock()
	g := b.groups[portfolioID]
	if g == nil {
		g = &group{conns: make(map[string]*Conn)}
		b.groups[portfolioID] = g
	}
	g.inflight++
	return g
}

func (b *Broker) release(portfolioID string, g *group) {
	b.mu.Lock()
	g.inflight--
	b.reapLocked(portfolioID, g)
	b.mu.Unlock()
}

// reapLocked drops an empty, quiescent group. Callers hold b.mu.
func (b *Broker) reapLocked(portfolioID string, g *group) {
	if len(g.conns) == 0 && g.inflight == 0 {
		delete(b.groups, portfolioID)
	}
}

// broadcast fans msg out to every watcher of its portfolio except origin. A
// watcher whose buffer is full is dropped rather than allowed to stall
// delivery to the rest of the group.
func (b *Broker) broadcast(origin *Conn, msg Message) {
	b.mu.Lock()
	g := b.groups[msg.PortfolioID]
	if g == nil {
		b.mu.Unlock()
		return
	}
	var dropped []*Conn
	for _, c := range g.conns {
		if origin != nil && c.id == origin.id {
			continue
		}
		select {
		case c.send <- msg:
		default:
			delete(g.conns, c.id)
			dropped = append(dropped, c)
		}
	}
	b.reapLocked(msg.PortfolioID, g)
	b.mu.Unlock()

	for _, c := range dropped {
		c.close()
	}
}
