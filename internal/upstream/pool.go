package upstream

import (
	"errors"
	"math/rand"
	"sync"
)

// ErrNoUpstream is returned by Select when every configured upstream is
// currently dead.
var ErrNoUpstream = errors.New("no alive upstream available")

// Pool partitions the configured upstream addresses into an alive slice and
// a dead slice. Both are guarded by one RWMutex: selection takes a read
// lock, MarkDead and Republish take the write lock. The union of the two
// slices is the configured set for the life of the process.
type Pool struct {
	mutex sync.RWMutex
	alive []string
	dead  []string
}

// NewPool starts with every address alive.
func NewPool(addresses []string) *Pool {
	alive := make([]string, len(addresses))
	copy(alive, addresses)

	return &Pool{
		alive: alive,
		dead:  make([]string, 0, len(addresses)),
	}
}

// Select picks one alive address uniformly at random and returns its index
// and value. The index is only a hint for MarkDead: the slice may have been
// reshuffled by the time the caller acts on it.
func (p *Pool) Select() (int, string, error) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if len(p.alive) == 0 {
		return 0, "", ErrNoUpstream
	}

	idx := rand.Intn(len(p.alive))
	return idx, p.alive[idx], nil
}

// MarkDead moves the address at idx from alive to dead. The index is
// revalidated under the write lock, since concurrent failovers can shrink
// or reshuffle the alive slice between a Select and the MarkDead acting on
// it; a stale index is a no-op. Removal swap-deletes, so alive order is not
// preserved.
func (p *Pool) MarkDead(idx int, addr string) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if idx >= len(p.alive) || p.alive[idx] != addr {
		return false
	}

	last := len(p.alive) - 1
	p.alive[idx] = p.alive[last]
	p.alive = p.alive[:last]
	p.dead = append(p.dead, addr)
	return true
}

// Republish replaces both partitions in one critical section. The health
// checker calls this at the end of each probing pass; a completed pass is
// authoritative, so any MarkDead that raced with the pass is overwritten by
// the pass result.
func (p *Pool) Republish(alive, dead []string) {
	newAlive := make([]string, len(alive))
	copy(newAlive, alive)
	newDead := make([]string, len(dead))
	copy(newDead, dead)

	p.mutex.Lock()
	p.alive = newAlive
	p.dead = newDead
	p.mutex.Unlock()
}

// Snapshot returns copies of both partitions taken under one read lock.
func (p *Pool) Snapshot() (alive, dead []string) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	alive = make([]string, len(p.alive))
	copy(alive, p.alive)
	dead = make([]string, len(p.dead))
	copy(dead, p.dead)
	return alive, dead
}

// Addresses returns the union of both partitions.
func (p *Pool) Addresses() []string {
	alive, dead := p.Snapshot()
	return append(alive, dead...)
}

// AliveCount returns the number of addresses currently eligible for
// selection.
func (p *Pool) AliveCount() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.alive)
}
