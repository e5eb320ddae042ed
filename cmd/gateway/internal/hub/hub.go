package hub

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tickplane/tickplane/cmd/gateway/internal/protocol"
	"github.com/tickplane/tickplane/cmd/gateway/internal/repository"
)

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	// SendBytes reports false when the connection is already closed so the
	// hub can detach the dead client.
	SendBytes(b []byte) bool
	Close()
}

// Hub owns the subscription registry for one gateway instance: which client
// wants which symbols, and how many clients want each symbol. The upstream
// bus subscription for a symbol exists iff its refcount > 0.
type Hub struct {
	subscribers map[string]map[ClientInterface]bool
	clientSubs  map[ClientInterface]map[string]bool
	refCount    map[string]int

	store  repository.BusStore
	logger *zap.Logger
	mu     sync.RWMutex
}

func NewHub(store repository.BusStore, logger *zap.Logger) *Hub {
	h := &Hub{
		subscribers: make(map[string]map[ClientInterface]bool),
		clientSubs:  make(map[ClientInterface]map[string]bool),
		refCount:    make(map[string]int),
		store:       store,
		logger:      logger,
	}

	go h.store.RunPubSub(context.Background(), h.Broadcast)

	return h
}

func (h *Hub) HandleCommand(client ClientInterface, req protocol.Request, validSymbols map[string]bool) {
	switch req.Op {
	case protocol.OpSubscribe:
		h.handleSubscribe(client, req.Symbols, validSymbols)
	case protocol.OpUnsubscribe:
		h.handleUnsubscribe(client, req.Symbols)
	default:
		client.SendJSON(protocol.ErrorReply{Op: protocol.OpError, Code: protocol.CodeUnsupportedOp})
	}
}

func (h *Hub) handleSubscribe(client ClientInterface, symbols []string, validSymbols map[string]bool) {
	h.mu.Lock()

	accepted := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if !validSymbols[sym] {
			continue
		}
		// Idempotency: re-subscribing is a no-op
		if h.clientSubs[client] != nil && h.clientSubs[client][sym] {
			continue
		}
		accepted = append(accepted, sym)
	}

	if h.clientSubs[client] == nil {
		h.clientSubs[client] = make(map[string]bool)
	}

	for _, sym := range accepted {
		h.clientSubs[client][sym] = true
		if h.subscribers[sym] == nil {
			h.subscribers[sym] = make(map[ClientInterface]bool)
		}
		h.subscribers[sym][client] = true

		// Lazy upstream subscription: only on the 0 -> 1 transition
		h.refCount[sym]++
		if h.refCount[sym] == 1 {
			if err := h.store.SubscribeToFeed(context.Background(), sym); err != nil {
				h.logger.Error("Failed to subscribe upstream", zap.String("symbol", sym), zap.Error(err))
			}
		}
	}
	h.mu.Unlock()

	client.SendJSON(protocol.Ack{Op: protocol.OpSubscribed, Symbols: accepted})

	// Send latest-tick snapshots async to avoid holding anything across the
	// redis round trip
	if len(accepted) > 0 {
		go func(targets []string) {
			snapshots, err := h.store.GetSnapshots(context.Background(), targets)
			if err != nil {
				h.logger.Warn("Snapshot fetch failed", zap.Error(err))
				return
			}
			for _, snap := range snapshots {
				client.SendBytes([]byte(snap))
			}
		}(accepted)
	}
}

func (h *Hub) handleUnsubscribe(client ClientInterface, symbols []string) {
	h.mu.Lock()

	var removed []string
	if subs, ok := h.clientSubs[client]; ok {
		if len(symbols) == 0 {
			// Omitted symbols means everything this client holds
			for sym := range subs {
				symbols = append(symbols, sym)
			}
		}
		for _, sym := range symbols {
			// Unsubscribing an absent symbol is a no-op, not an error
			if !subs[sym] {
				continue
			}
			delete(subs, sym)
			delete(h.subscribers[sym], client)
			removed = append(removed, sym)
			h.decreaseRefCount(sym)
		}
	}
	h.mu.Unlock()

	if removed == nil {
		removed = []string{}
	}
	client.SendJSON(protocol.Ack{Op: protocol.OpUnsubscribed, Symbols: removed})
}

// Unregister detaches the client from every symbol it holds. Called on
// disconnect and on a dead connection discovered mid-broadcast.
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.clientSubs[client]; ok {
		for sym := range subs {
			delete(h.subscribers[sym], client)
			h.decreaseRefCount(sym)
		}
		delete(h.clientSubs, client)
	}
	client.Close()
}

// Broadcast forwards the raw payload verbatim to every client interested in
// the symbol. A symbol with no subscribers is dropped silently. Clients whose
// connection turns out closed are cascade-detached afterwards.
func (h *Hub) Broadcast(symbol string, payload string) {
	h.mu.RLock()
	var dead []ClientInterface
	if clients, ok := h.subscribers[symbol]; ok {
		msgBytes := []byte(payload)
		for client := range clients {
			if !client.SendBytes(msgBytes) {
				dead = append(dead, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range dead {
		h.logger.Debug("Detaching dead connection", zap.String("client", client.ID()))
		h.Unregister(client)
	}
}

// decreaseRefCount must be called with the write lock held. Dropping the map
// entries at zero keeps the registry from growing without bound.
func (h *Hub) decreaseRefCount(symbol string) {
	h.refCount[symbol]--
	if h.refCount[symbol] <= 0 {
		if err := h.store.UnsubscribeFromFeed(context.Background(), symbol); err != nil {
			h.logger.Error("Failed to unsubscribe upstream", zap.String("symbol", symbol), zap.Error(err))
		}
		delete(h.refCount, symbol)
		delete(h.subscribers, symbol)
	}
}
