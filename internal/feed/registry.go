package feed

import (
	"sort"
	"sync"

	"github.com/openvortex/wire-data/internal/wire"
)

// Subscription is one (exchange, token) entry with its requested mode.
type Subscription struct {
	Exchange string
	Token    int32
	Mode     wire.Mode
}

// registry tracks active subscriptions so they can be replayed after a
// reconnect; the server keeps no subscription state across connections.
type registry struct {
	mu    sync.Mutex
	modes map[string]map[int32]wire.Mode
}

func newRegistry() *registry {
	return &registry{modes: make(map[string]map[int32]wire.Mode)}
}

// put records a subscription. A repeated (exchange, token) overwrites
// the mode; the latest request always wins.
func (r *registry) put(exchange string, token int32, mode wire.Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokens, ok := r.modes[exchange]
	if !ok {
		tokens = make(map[int32]wire.Mode)
		r.modes[exchange] = tokens
	}
	tokens[token] = mode
}

// remove drops a subscription; no-op if absent.
func (r *registry) remove(exchange string, token int32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokens, ok := r.modes[exchange]
	if !ok {
		return
	}
	delete(tokens, token)
	if len(tokens) == 0 {
		delete(r.modes, exchange)
	}
}

// all returns every subscription sorted by exchange then token, so
// resubscribe replay order is deterministic.
func (r *registry) all() []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	var subs []Subscription
	for exchange, tokens := range r.modes {
		for token, mode := range tokens {
			subs = append(subs, Subscription{Exchange: exchange, Token: token, Mode: mode})
		}
	}

	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Exchange != subs[j].Exchange {
			return subs[i].Exchange < subs[j].Exchange
		}
		return subs[i].Token < subs[j].Token
	})
	return subs
}

func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, tokens := range r.modes {
		n += len(tokens)
	}
	return n
}
