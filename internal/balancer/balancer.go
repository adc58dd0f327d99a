// Package balancer selects an upstream peer for each request from the
// subset currently marked healthy, round-robin fashion.
package balancer

import (
	"errors"
	"sync/atomic"
)

// ErrNoHealthyPeers is returned when every peer in the pool is currently
// marked unhealthy.
var ErrNoHealthyPeers = errors.New("balancer: no healthy peers available")

// Peer is one upstream target. Healthy is flipped by the health checker
// and read on every selection; it is the only mutable field.
type Peer struct {
	Addr    string
	healthy atomic.Bool
}

func NewPeer(addr string) *Peer {
	p := &Peer{Addr: addr}
	p.healthy.Store(true)
	return p
}

func (p *Peer) SetHealthy(healthy bool) {
	p.healthy.Store(healthy)
}

func (p *Peer) Healthy() bool {
	return p.healthy.Load()
}

// Pool is a fixed set of peers selected round-robin over the currently
// healthy subset. The peer list itself never changes after construction;
// only each peer's health bit does.
type Pool struct {
	peers  []*Peer
	cursor atomic.Uint64
}

func NewPool(peers []*Peer) *Pool {
	return &Pool{peers: peers}
}

func (p *Pool) Peers() []*Peer {
	return p.peers
}

// Next walks forward from the cursor, at most len(peers) steps, and
// returns the first healthy peer encountered. The cursor always advances
// by one per call regardless of outcome, so repeated calls cycle through
// the pool rather than re-checking the same starting peer first. Returns
// ErrNoHealthyPeers if no peer in the pool is currently healthy.
func (p *Pool) Next() (*Peer, error) {
	n := len(p.peers)
	if n == 0 {
		return nil, ErrNoHealthyPeers
	}

	start := p.cursor.Add(1) - 1

	for i := 0; i < n; i++ {
		idx := (start + uint64(i)) % uint64(n)
		peer := p.peers[idx]
		if peer.Healthy() {
			return peer, nil
		}
	}

	return nil, ErrNoHealthyPeers
}
