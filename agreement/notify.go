package agreement

import (
	"sync"

	logger "github.com/sirupsen/logrus"
)

// ChannelNotifier fans every published event out to registered observer
// channels. Register observers via RegisterObserver before events flow.
// An observer that stops draining loses events rather than stalling the
// publisher or reordering the stream.
type ChannelNotifier struct {
	observers []chan interface{}
	mu        sync.Mutex
}

func NewChannelNotifier() *ChannelNotifier {
	return &ChannelNotifier{observers: make([]chan interface{}, 0)}
}

func (n *ChannelNotifier) RegisterObserver(observer chan interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.observers = append(n.observers, observer)
}

func (n *ChannelNotifier) Publish(ev interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, observer := range n.observers {
		select {
		case observer <- ev:
		default:
			// observer's channel is full, drop instead of blocking
			logger.WithField("event", ev).Warn("observer channel full, event dropped")
		}
	}
}

// LogNotifier writes every event to the log. Useful as a default sink
// when no monitoring pipeline is attached.
type LogNotifier struct{}

func (n *LogNotifier) Publish(ev interface{}) {
	logger.WithField("event", ev).Info("task event")
}
