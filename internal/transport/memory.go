package transport

import (
	"context"
	"sync"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/102326/PyLab/internal/common/cnst"
)

// MemoryTransport is a process-local Transport for single-instance
// deployments and tests. Every subscription owns an unbounded FIFO so a
// slow consumer never blocks publishers.
type MemoryTransport struct {
	logger *zap.Logger
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
}

var _ Transport = (*MemoryTransport)(nil)

// NewMemoryTransport creates an in-memory transport
func NewMemoryTransport(logger *zap.Logger) *MemoryTransport {
	return &MemoryTransport{
		logger: logger.Named("transport.memory"),
		subs:   make(map[string]map[*memorySubscription]struct{}),
	}
}

// Publish implements Transport.Publish
func (t *MemoryTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return cnst.ErrTransportClosed
	}
	for sub := range t.subs[channel] {
		// each subscriber gets its own copy
		buf := make([]byte, len(payload))
		copy(buf, payload)
		sub.push(buf)
	}
	return nil
}

// Subscribe implements Transport.Subscribe
func (t *MemoryTransport) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, cnst.ErrTransportUnavailable
	}
	sub := &memorySubscription{
		transport: t,
		channel:   channel,
		q:         queue.New(),
		signal:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	set, ok := t.subs[channel]
	if !ok {
		set = make(map[*memorySubscription]struct{})
		t.subs[channel] = set
	}
	set[sub] = struct{}{}
	return sub, nil
}

// Subscribers returns the number of live subscriptions on channel
func (t *MemoryTransport) Subscribers(channel string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs[channel])
}

// Close implements Transport.Close; all live subscriptions are closed
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	var all []*memorySubscription
	for _, set := range t.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	t.subs = make(map[string]map[*memorySubscription]struct{})
	t.mu.Unlock()

	for _, sub := range all {
		sub.shutdown()
	}
	return nil
}

func (t *MemoryTransport) remove(sub *memorySubscription) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := t.subs[sub.channel]
	delete(set, sub)
	if len(set) == 0 {
		delete(t.subs, sub.channel)
	}
}

type memorySubscription struct {
	transport *MemoryTransport
	channel   string

	mu     sync.Mutex
	q      *queue.Queue
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (s *memorySubscription) push(payload []byte) {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return
	default:
	}
	s.q.Add(payload)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *memorySubscription) Channel() string {
	return s.channel
}

func (s *memorySubscription) Receive(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-s.done:
			return nil, cnst.ErrSubscriptionClosed
		default:
		}

		s.mu.Lock()
		if s.q.Length() > 0 {
			payload := s.q.Remove().([]byte)
			s.mu.Unlock()
			return payload, nil
		}
		s.mu.Unlock()

		select {
		case <-s.signal:
		case <-s.done:
			return nil, cnst.ErrSubscriptionClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *memorySubscription) Close() error {
	s.transport.remove(s)
	s.shutdown()
	return nil
}

func (s *memorySubscription) shutdown() {
	s.once.Do(func() {
		s.mu.Lock()
		close(s.done)
		s.mu.Unlock()
	})
}
