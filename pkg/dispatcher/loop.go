// Package dispatcher implements the single cooperative scheduler that
// serializes every characteristic emission, state transition, async-call
// completion, and netlink-posted event. Nothing touches the GATT tree or
// the provisioning state machine except from inside Run.
package dispatcher

import (
	"github.com/pidevelop/provision-ble/pkg/netlinkmon"
)

// task is a unit of work to run on the loop goroutine. Used for IPC async
// completions and command-triggered work, which naturally carry their own
// closure context.
type task func()

// Loop is the single-goroutine event-loop dispatcher. Two channels feed
// it: task, an untyped closure queue for IPC completions and
// command-triggered work, and netlinkEvents, a typed channel for the
// specific ipv4-ready/ipv4-removed cross-thread boundary, per the design
// preference for a typed enum there over another untyped closure queue.
type Loop struct {
	tasks         chan task
	netlinkEvents chan netlinkmon.Event
	onNetlink     func(netlinkmon.Event)
	stop          chan struct{}
	done          chan struct{}
}

// New builds a loop. onNetlink is invoked on the loop goroutine for every
// netlink event posted via PostNetlinkEvent.
func New(onNetlink func(netlinkmon.Event)) *Loop {
	return &Loop{
		tasks:         make(chan task, 64),
		netlinkEvents: make(chan netlinkmon.Event, 16),
		onNetlink:     onNetlink,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Post enqueues fn to run on the loop goroutine. Safe to call from any
// goroutine, including the loop goroutine itself.
func (l *Loop) Post(fn func()) {
	l.tasks <- task(fn)
}

// PostNetlinkEvent enqueues a netlink event for delivery to onNetlink on
// the loop goroutine. This is the only thing the netlink thread is allowed
// to call; it must never invoke the state machine directly.
func (l *Loop) PostNetlinkEvent(ev netlinkmon.Event) {
	l.netlinkEvents <- ev
}

// Run blocks, servicing tasks and netlink events until Stop is called.
// Intended to run on its own dedicated goroutine for the process lifetime.
func (l *Loop) Run() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			return
		case t := <-l.tasks:
			t()
		case ev := <-l.netlinkEvents:
			l.onNetlink(ev)
		}
	}
}

// Stop signals Run to return and waits for it to do so.
func (l *Loop) Stop() {
	close(l.stop)
	<-l.done
}
