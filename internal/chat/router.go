package chat

import (
	"log"
	"sync"
)

// subscriptionBuffer bounds how many undelivered messages a single
// subscription can hold before further matches are dropped.
const subscriptionBuffer = 32

type subscription struct {
	id     int
	filter func(Message) bool
	ch     chan Message
}

// Router fans the inbound message stream out to predicate-scoped
// subscriptions. Dispatch delivers each message to every matching
// subscription in turn, so a single dispatching goroutine gives the
// game its serialized event ordering.
type Router struct {
	mu   sync.Mutex
	subs map[int]*subscription
	next int
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{subs: make(map[int]*subscription)}
}

// Dispatch delivers msg to every subscription whose filter accepts
// it. Subscriptions that have fallen behind by more than
// subscriptionBuffer messages have the message dropped.
func (r *Router) Dispatch(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if !sub.filter(msg) {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			log.Printf("chat router: subscription %d full, dropping message from %s", sub.id, msg.User)
		}
	}
}

// Listen registers a subscription for messages accepted by filter.
// The returned cancel func detaches the subscription and closes its
// channel; it is safe to call more than once.
func (r *Router) Listen(filter func(Message) bool) (<-chan Message, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := &subscription{
		id:     r.next,
		filter: filter,
		ch:     make(chan Message, subscriptionBuffer),
	}
	r.subs[sub.id] = sub
	r.next++

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs, sub.id)
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// SubscriberCount reports how many subscriptions are attached.
func (r *Router) SubscriberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
