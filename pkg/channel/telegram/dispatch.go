package telegram

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"chanfinder/pkg/bus"
)

// dispatcher runs inbound messages one chat at a time: messages of the same
// chat are handled in arrival order by a single worker, while different
// chats proceed in parallel up to the group limit.
type dispatcher struct {
	run func(bus.InboundMessage)

	mu sync.Mutex
	// pending holds queued messages per chat. A present key means a worker
	// is draining that chat.
	pending map[string][]bus.InboundMessage
	g       errgroup.Group
}

func newDispatcher(limit int, run func(bus.InboundMessage)) *dispatcher {
	d := &dispatcher{
		run:     run,
		pending: make(map[string][]bus.InboundMessage),
	}
	d.g.SetLimit(limit)
	return d
}

// submit queues msg behind earlier messages of its chat. It blocks while all
// workers are busy with other chats.
func (d *dispatcher) submit(msg bus.InboundMessage) {
	d.mu.Lock()
	if queue, active := d.pending[msg.ChatID]; active {
		d.pending[msg.ChatID] = append(queue, msg)
		d.mu.Unlock()
		return
	}
	d.pending[msg.ChatID] = nil
	d.mu.Unlock()

	d.g.Go(func() error {
		d.drain(msg)
		return nil
	})
}

func (d *dispatcher) drain(msg bus.InboundMessage) {
	chatID := msg.ChatID
	for {
		d.run(msg)

		d.mu.Lock()
		queue := d.pending[chatID]
		if len(queue) == 0 {
			delete(d.pending, chatID)
			d.mu.Unlock()
			return
		}
		msg = queue[0]
		d.pending[chatID] = queue[1:]
		d.mu.Unlock()
	}
}

// wait blocks until every queued message has been handled.
func (d *dispatcher) wait() {
	_ = d.g.Wait()
}
