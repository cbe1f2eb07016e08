// Package sink is the collaborator contract the recursive enumerator
// (pkg/recurse) streams results through: an unbounded multi-producer
// channel of items, each wrapping a path entry, whether it's a live or
// phantom (deleted) observation, and the inventory handle it was resolved
// against. spec.md §4.8 leaves rendering entirely to the consumer; this
// package only defines the handoff.
package sink

import (
	"context"
	"errors"

	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
)

// ErrConsumerGone is returned by Send once the sender's context is done or
// the sink has been closed, realizing spec.md's "send failure is treated as
// consumer gone." A consumer that merely stops reading is not detected: the
// queue keeps growing.
var ErrConsumerGone = errors.New("sink: consumer gone")

// Item is one entry the enumerator observed, live or phantom.
type Item struct {
	Entry     paths.Entry
	Phantom   bool
	Inventory *inventory.Inventory
}

// Sink is anything the enumerator can stream Items to. Send must be safe
// for concurrent callers: live entries are sent from the single-threaded
// main loop, phantom entries from the deleted-discovery worker pool.
type Sink interface {
	Send(ctx context.Context, item Item) error
}

// UnboundedSink is a Sink backed by a goroutine-fed queue, so Send never
// blocks on slow consumption the way a fixed-capacity channel would --
// the "unbounded multi-producer channel" spec.md's collaborator contract
// calls for, built from idiomatic two-channel-plus-pump-goroutine Go
// rather than a genuinely unbounded OS resource.
type UnboundedSink struct {
	in   chan Item
	out  chan Item
	done chan struct{}
}

// NewUnboundedSink starts the pump goroutine and returns a ready Sink.
// Callers read from Items() and must call Close once no more Items will
// be sent, or the pump goroutine leaks.
func NewUnboundedSink() *UnboundedSink {
	s := &UnboundedSink{
		in:   make(chan Item),
		out:  make(chan Item),
		done: make(chan struct{}),
	}

	go s.pump()

	return s
}

// Items returns the channel a consumer ranges over to receive entries.
func (s *UnboundedSink) Items() <-chan Item {
	return s.out
}

// Send enqueues item, or returns ErrConsumerGone if ctx is done first.
func (s *UnboundedSink) Send(ctx context.Context, item Item) error {
	select {
	case s.in <- item:
		return nil
	case <-ctx.Done():
		return ErrConsumerGone
	case <-s.done:
		return ErrConsumerGone
	}
}

// Close signals that no more Items will be sent. The pump drains any
// already-queued Items to Items() before closing it.
func (s *UnboundedSink) Close() {
	close(s.in)
}

func (s *UnboundedSink) pump() {
	defer close(s.out)
	defer close(s.done)

	var queue []Item

	for {
		if len(queue) == 0 {
			item, ok := <-s.in
			if !ok {
				return
			}

			queue = append(queue, item)

			continue
		}

		select {
		case item, ok := <-s.in:
			if !ok {
				for _, q := range queue {
					s.out <- q
				}

				return
			}

			queue = append(queue, item)
		case s.out <- queue[0]:
			queue = queue[1:]
		}
	}
}
