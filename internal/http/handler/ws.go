package handler

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/broker"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
)

// SyncHandler carries live-sync connections for one portfolio each. The
// upstream auth and ownership middleware have already run by the time the
// connection upgrades, so everything on the socket is from the owner.
type SyncHandler struct {
	brk         *broker.Broker
	quiescence  time.Duration
	idleTimeout time.Duration
}

// NewSyncHandler constructs a SyncHandler. quiescence is the autosave
// coalescing interval; idleTimeout is how long a silent connection is
// presumed alive.
func NewSyncHandler(brk *broker.Broker, quiescence, idleTimeout time.Duration) *SyncHandler {
	if idleTimeout <= 0 {
		idleTimeout = 2 * time.Minute
	}
	return &SyncHandler{brk: brk, quiescence: quiescence, idleTimeout: idleTimeout}
}

// Upgrade gates the route to websocket upgrade requests.
func (h *SyncHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// intentMessage is what a client sends on the socket.
type intentMessage struct {
	Type        string        `json:"type"`
	BaseVersion int64         `json:"baseVersion"`
	Blocks      []model.Block `json:"blocks"`
}

const intentType = "mutation-intent"

// Handle returns the websocket handler. One goroutine owns all writes; reads
// happen on the connection's own goroutine. A connection that sends nothing
// for the idle timeout is presumed dead and dropped.
func (h *SyncHandler) Handle() fiber.Handler {
	return websocket.New(func(ws *websocket.Conn) {
		portfolioID := ws.Params("id")

		conn := h.brk.Join(portfolioID)
		defer h.brk.Leave(conn)

		replies := make(chan broker.Message, 8)
		done := make(chan struct{})
		writerDone := make(chan struct{})

		autosave := broker.NewAutosave(h.brk, h.quiescence, func(out broker.Outcome) {
			msg, ok := outcomeMessage(portfolioID, out)
			if !ok {
				return
			}
			sendReply(replies, msg, done, writerDone)
		})
		go func() {
			defer close(writerDone)
			for {
				select {
				case msg, ok := <-conn.Events():
					if !ok {
						// Dropped as a slow consumer; the read loop will
						// notice the closed socket.
						_ = ws.Close()
						return
					}
					if err := ws.WriteJSON(msg); err != nil {
						return
					}
				case msg := <-replies:
					if err := ws.WriteJSON(msg); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_ = ws.SetReadDeadline(time.Now().Add(h.idleTimeout))
			var in intentMessage
			if err := ws.ReadJSON(&in); err != nil {
				break
			}
			if in.Type != intentType {
				continue
			}
			autosave.Queue(conn, portfolioID, in.BaseVersion, in.Blocks)
		}

		// Persist whatever the quiescence timer hadn't flushed yet.
		autosave.Flush()
		autosave.Stop()
		close(done)
		<-writerDone
	})
}

// sendReply hands an outcome to the writer goroutine. Unlike watcher
// fan-out, a reply to the originator must arrive, so a full buffer blocks
// until the writer drains it; only connection teardown releases the send.
func sendReply(replies chan<- broker.Message, msg broker.Message, done, writerDone <-chan struct{}) {
	select {
	case replies <- msg:
	case <-done:
	case <-writerDone:
	}
}

// outcomeMessage converts a submit outcome to its wire event. Store errors
// produce no event; the client resyncs on its next intent.
func outcomeMessage(portfolioID string, out broker.Outcome) (broker.Message, bool) {
	switch out.Kind {
	case broker.OutcomeAccepted:
		return broker.Message{
			Type:        broker.EventAccepted,
			PortfolioID: portfolioID,
			Version:     out.Portfolio.Version,
			Blocks:      out.Portfolio.Blocks,
		}, true
	case broker.OutcomeConflict:
		return broker.Message{
			Type:        broker.EventConflict,
			PortfolioID: portfolioID,
			Version:     out.Portfolio.Version,
			Blocks:      out.Portfolio.Blocks,
		}, true
	default:
		return broker.Message{}, false
	}
}
