package typing

import (
	"sync"
	"time"
)

// DefaultTTL is how long a typing indicator stays on without a fresh start
// signal.
const DefaultTTL = 1200 * time.Millisecond

// TTL bounds for client-supplied values; out-of-range values clamp.
const (
	minTTL = 200 * time.Millisecond
	maxTTL = 10 * time.Second
)

// Coordinator is the per-(connection, room) typing state machine. A start
// signal on the idle edge broadcasts typing=true once and arms the TTL
// timer; repeated starts only reset the timer. A stop signal or timer
// expiry broadcasts typing=false once. All transitions for one instance are
// serialized behind the mutex.
type Coordinator struct {
	mu         sync.Mutex
	active     bool
	closed     bool
	timer      *time.Timer
	defaultTTL time.Duration
	broadcast  func(active bool)
}

// NewCoordinator builds a coordinator. broadcast is invoked on every edge
// transition, under the instance lock, so broadcasts observe transition
// order.
func NewCoordinator(defaultTTL time.Duration, broadcast func(active bool)) *Coordinator {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Coordinator{defaultTTL: defaultTTL, broadcast: broadcast}
}

// Start handles a typing-start signal. ttl <= 0 selects the default.
func (c *Coordinator) Start(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	} else if ttl < minTTL {
		ttl = minTTL
	} else if ttl > maxTTL {
		ttl = maxTTL
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(ttl, c.expire)

	if !c.active {
		c.active = true
		c.broadcast(true)
	}
}

// Stop handles an explicit typing-stop signal.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Close tears the instance down on disconnect, forcing a final stop
// broadcast if still active. Further signals are ignored.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopLocked()
	c.closed = true
}

func (c *Coordinator) expire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopLocked()
}

func (c *Coordinator) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.active {
		c.active = false
		c.broadcast(false)
	}
}
