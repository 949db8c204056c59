package deduper

import (
	"sync"
	"time"
)

// Deduper remembers job IDs for a TTL so redelivered jobs can be skipped.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
	done chan struct{}
	once sync.Once
}

func New(ttl time.Duration) *Deduper {
	d := &Deduper{seen: make(map[string]time.Time), ttl: ttl, now: time.Now, done: make(chan struct{})}
	if ttl > 0 {
		go d.cleanupLoop()
	}
	return d
}

// Seen reports whether id was marked within the TTL, and marks it otherwise.
// Empty ids are never considered seen.
func (d *Deduper) Seen(id string) bool {
	if id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if t, ok := d.seen[id]; ok && now.Sub(t) <= d.ttl {
		return true
	}
	d.seen[id] = now
	return false
}

// Len returns the number of ids currently remembered.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func (d *Deduper) sweep() {
	now := d.now()
	d.mu.Lock()
	for id, t := range d.seen {
		if now.Sub(t) > d.ttl {
			delete(d.seen, id)
		}
	}
	d.mu.Unlock()
}

func (d *Deduper) cleanupLoop() {
	ticker := time.NewTicker(d.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.sweep()
		case <-d.done:
			return
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (d *Deduper) Stop() { d.once.Do(func() { close(d.done) }) }
