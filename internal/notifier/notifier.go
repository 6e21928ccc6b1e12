// Package notifier coalesces an agent's outbound update frames and fans
// them out to every registered upstream client on a wall-clock-aligned
// timer, so that an agent never emits more than one AgentMessage per
// flush period regardless of how many AgentUpdates it accumulated.
package notifier

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hailstorm-dev/hailstorm/internal/hailstormpb"
)

const defaultFlushInterval = 5 * time.Second

// Notifier owns its frame set and client list privately; all access goes
// through its exported methods, which serialize on an internal mutex
// rather than an actor mailbox, since nothing here suspends mid-handler.
type Notifier struct {
	mu            sync.Mutex
	frames        map[uint64]*hailstormpb.AgentUpdate
	clients       []chan<- *hailstormpb.AgentMessage
	flushInterval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// New returns a Notifier flushing every flushInterval; flushInterval <= 0
// uses the 5 s default from spec.md §4.7/§5.
func New(flushInterval time.Duration) *Notifier {
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	return &Notifier{
		frames:        make(map[uint64]*hailstormpb.AgentUpdate),
		flushInterval: flushInterval,
		stop:          make(chan struct{}),
	}
}

// Start begins the flush loop in its own goroutine. Start must be called
// at most once.
func (n *Notifier) Start() {
	n.wg.Add(1)
	go n.run()
}

// Stop ends the flush loop and waits for it to exit. The final partial
// frame set, if any, is not flushed.
func (n *Notifier) Stop() {
	close(n.stop)
	n.wg.Wait()
}

func (n *Notifier) run() {
	defer n.wg.Done()

	next := alignNext(time.Now(), n.flushInterval)
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-n.stop:
			return
		case <-timer.C:
			n.flush()
			next = next.Add(n.flushInterval)
			delay := time.Until(next)
			if delay < 0 {
				delay = 0
			}
			timer.Reset(delay)
		}
	}
}

// alignNext returns the next flush instant on the flushInterval grid,
// matching spec.md's next_fire = ceil(now/P)*P so every agent's notifier
// flushes at the same wall-clock instants.
func alignNext(now time.Time, period time.Duration) time.Time {
	rem := now.UnixNano() % period.Nanoseconds()
	if rem == 0 {
		return now
	}
	return now.Add(period - time.Duration(rem))
}

// RegisterClient adds an upstream send channel to the fan-out list. The
// channel is expected to be a bounded, non-blocking-on-full send target
// (an upstream client's outbound channel); Submit's caller does not block
// on a slow or stalled client.
func (n *Notifier) RegisterClient(ch chan<- *hailstormpb.AgentMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clients = append(n.clients, ch)
}

// Submit inserts or overwrites each update by UpdateId. Later submissions
// for the same UpdateId win, matching "duplicates overwrite" in
// spec.md §4.7.
func (n *Notifier) Submit(updates []*hailstormpb.AgentUpdate) {
	if len(updates) == 0 {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, u := range updates {
		n.frames[u.UpdateId] = u
	}
}

func (n *Notifier) flush() {
	n.mu.Lock()
	updates := make([]*hailstormpb.AgentUpdate, 0, len(n.frames))
	for _, frame := range n.frames {
		updates = append(updates, frame)
	}
	n.frames = make(map[uint64]*hailstormpb.AgentUpdate)
	clients := make([]chan<- *hailstormpb.AgentMessage, len(n.clients))
	copy(clients, n.clients)
	n.mu.Unlock()

	msg := &hailstormpb.AgentMessage{Updates: updates}
	for _, client := range clients {
		select {
		case client <- msg:
		default:
			logrus.Warn("notifier: dropping update frame, client channel full")
		}
	}
}

// FrameCount reports the number of distinct update_ids currently buffered,
// for tests and diagnostics.
func (n *Notifier) FrameCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.frames)
}
