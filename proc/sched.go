package proc

import "sync"

// qnode is one link of the ready queue, spec.md 4.7's "ready queue is
// a singly linked list".
type qnode struct {
	t    *Thread
	next *qnode
}

// readyQueue is the systemwide ready queue CreateThread enqueues onto
// and AssignThreadToCPU dequeues from.
type readyQueue struct {
	mu         sync.Mutex
	head, tail *qnode
}

var ready = &readyQueue{}

func (q *readyQueue) enqueue(t *Thread) {
	n := &qnode{t: t}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tail == nil {
		q.head, q.tail = n, n
		return
	}
	q.tail.next = n
	q.tail = n
}

func (q *readyQueue) dequeue() (*Thread, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == nil {
		return nil, false
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	return n.t, true
}

// AssignThreadToCPU pops the next ready thread off the singly linked
// ready queue and loads its register frame via the IRETQ return path.
// A real core does this by popping into the frame built by
// CreateThread and executing iretq; the hosted stand-in runs entry(arg)
// in a goroutine, the same goroutine-as-core substitution package smp
// makes for AP bring-up, and closes the thread's done channel once
// entry returns so callers (Join) can observe completion. Reports
// false when the ready queue is empty.
func AssignThreadToCPU() (*Thread, bool) {
	t, ok := ready.dequeue()
	if !ok {
		return nil, false
	}
	go func() {
		defer close(t.done)
		t.entry(t.arg)
	}()
	return t, true
}

// Join blocks until t's entry function has returned.
func (t *Thread) Join() {
	<-t.done
}
