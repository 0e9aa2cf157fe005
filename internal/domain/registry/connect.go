package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/webitel/im-presence-service/internal/domain/model"
)

var _ Connector = (*connect)(nil)

// Connector is one open client connection as seen by the hub. The transport
// owns the socket and drains the queue; everyone else only calls Send.
type Connector interface {
	GetID() model.SessionID
	GetMetadata() ConnectMetadata
	// Send enqueues env, waiting up to timeout for buffer space before
	// shedding by priority. It never blocks after Close.
	Send(env *model.Envelope, timeout time.Duration) bool
	// Ready is signalled whenever the queue gains an envelope.
	Ready() <-chan struct{}
	// Next pops the oldest queued envelope.
	Next() (*model.Envelope, bool)
	// Done is closed once the connector is closed.
	Done() <-chan struct{}
	Close()
	DroppedCount() uint64
}

type ConnectMetadata struct {
	RemoteIP  string
	UserAgent string
	Origin    string
}

type connect struct {
	id        model.SessionID
	metadata  ConnectMetadata
	createdAt time.Time
	ctx       context.Context
	cancelFn  context.CancelFunc
	closeOnce sync.Once

	mu       sync.Mutex
	queue    []*model.Envelope
	capacity int
	ready    chan struct{}
	space    chan struct{}

	lastActivityAt atomic.Int64
	droppedCount   atomic.Uint64
}

func NewConnector(ctx context.Context, id model.SessionID, md ConnectMetadata, bufferSize int) Connector {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	childCtx, cancel := context.WithCancel(ctx)

	c := &connect{
		id:        id,
		metadata:  md,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		queue:     make([]*model.Envelope, 0, bufferSize),
		capacity:  bufferSize,
		ready:     make(chan struct{}, 1),
		space:     make(chan struct{}, 1),
	}
	c.lastActivityAt.Store(c.createdAt.UnixNano())

	return c
}

func (c *connect) GetID() model.SessionID       { return c.id }
func (c *connect) GetMetadata() ConnectMetadata { return c.metadata }
func (c *connect) Ready() <-chan struct{}       { return c.ready }
func (c *connect) Done() <-chan struct{}        { return c.ctx.Done() }
func (c *connect) DroppedCount() uint64         { return c.droppedCount.Load() }

func (c *connect) Next() (*model.Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return nil, false
	}
	env := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	signal(c.space)

	return env, true
}

func (c *connect) Send(env *model.Envelope, timeout time.Duration) bool {
	if c.ctx.Err() != nil {
		return false
	}
	if c.tryEnqueue(env) {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return false
		case <-c.space:
			if c.tryEnqueue(env) {
				return true
			}
		case <-timer.C:
			// Buffer stayed saturated for the whole window: slow consumer.
			return c.handleBackpressure(env)
		}
	}
}

func (c *connect) tryEnqueue(env *model.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) >= c.capacity {
		return false
	}
	c.push(env)
	if len(c.queue) < c.capacity {
		signal(c.space)
	}
	return true
}

// push appends env. Callers hold mu.
func (c *connect) push(env *model.Envelope) {
	c.queue = append(c.queue, env)
	c.lastActivityAt.Store(time.Now().UnixNano())
	signal(c.ready)
}

// handleBackpressure makes room for env by evicting the lowest priority
// queued envelope, provided it is strictly lower than env. Otherwise env is
// rejected and the queue is left untouched, so equal priorities keep their
// order. Low priority envelopes are shed immediately.
func (c *connect) handleBackpressure(env *model.Envelope) bool {
	if env.GetPriority() <= model.PriorityLow {
		c.droppedCount.Add(1)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) < c.capacity {
		c.push(env)
		return true
	}

	victim := -1
	for i, old := range c.queue {
		if old.GetPriority() >= env.GetPriority() {
			continue
		}
		if victim < 0 || old.GetPriority() < c.queue[victim].GetPriority() {
			victim = i
		}
	}
	c.droppedCount.Add(1)
	if victim < 0 {
		return false
	}

	last := len(c.queue) - 1
	copy(c.queue[victim:], c.queue[victim+1:])
	c.queue[last] = nil
	c.queue = c.queue[:last]
	c.push(env)

	return true
}

// Close cancels the connector. Queued envelopes are abandoned; readers stop
// on Done.
func (c *connect) Close() {
	c.closeOnce.Do(c.cancelFn)
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
