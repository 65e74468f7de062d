package session

import (
	"sync"

	"github.com/swdee/go-posemotion/motion"
)

// Update is published to subscribers after every processed frame
type Update struct {
	SessionID string        `json:"session"`
	Result    motion.Result `json:"result"`
}

// Broadcaster fans updates out to subscribers.  Each subscriber channel holds
// only the most recent update, a slow subscriber misses intermediate updates
// but always sees the latest one.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Update
	nextID int
	latest *Update
}

// NewBroadcaster returns an empty Broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]chan Update),
	}
}

// Subscribe registers a new subscriber.  The returned cancel function
// unregisters it and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Update, func()) {

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan Update, 1)
	b.subs[id] = ch

	var once sync.Once

	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}

	return ch, cancel
}

// Publish delivers the update to every subscriber without blocking
func (b *Broadcaster) Publish(u Update) {

	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest = &u

	for _, ch := range b.subs {
		// replace any pending update with the newer one
		select {
		case <-ch:
		default:
		}

		ch <- u
	}
}

// Latest returns the most recently published update
func (b *Broadcaster) Latest() (Update, bool) {

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.latest == nil {
		return Update{}, false
	}

	return *b.latest, true
}

// Subscribers returns the number of active subscribers
func (b *Broadcaster) Subscribers() int {

	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}
