package proc

import "testing"

// drainReady empties the package-level ready queue so a test observes
// only the threads it itself enqueues, independent of leftover entries
// from other tests sharing the same process-wide queue.
func drainReady(t *testing.T) {
	t.Helper()
	for {
		if _, ok := ready.dequeue(); !ok {
			return
		}
	}
}

func TestAssignThreadToCPUReportsFalseOnEmptyQueue(t *testing.T) {
	drainReady(t)
	if _, ok := AssignThreadToCPU(); ok {
		t.Fatal("AssignThreadToCPU on an empty ready queue should report false")
	}
}

func TestAssignThreadToCPUDequeuesFIFO(t *testing.T) {
	drainReady(t)
	pm := newTestPM(t, 64)
	p, err := CreateProc("init", nil, pm)
	if err != nil {
		t.Fatalf("CreateProc: %v", err)
	}

	first, err := p.CreateThread("first", func(arg int) {}, 0)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	second, err := p.CreateThread("second", func(arg int) {}, 0)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}

	got1, ok := AssignThreadToCPU()
	if !ok || got1 != first {
		t.Fatalf("first AssignThreadToCPU = %v, want %v", got1, first)
	}
	got2, ok := AssignThreadToCPU()
	if !ok || got2 != second {
		t.Fatalf("second AssignThreadToCPU = %v, want %v", got2, second)
	}
	got1.Join()
	got2.Join()
}

func TestAssignThreadToCPURunsEntry(t *testing.T) {
	drainReady(t)
	pm := newTestPM(t, 64)
	p, err := CreateProc("init", nil, pm)
	if err != nil {
		t.Fatalf("CreateProc: %v", err)
	}

	ran := make(chan int, 1)
	th, err := p.CreateThread("worker", func(arg int) { ran <- arg }, 42)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}

	got, ok := AssignThreadToCPU()
	if !ok || got != th {
		t.Fatalf("AssignThreadToCPU = %v, %v, want %v, true", got, ok, th)
	}
	th.Join()

	select {
	case arg := <-ran:
		if arg != 42 {
			t.Fatalf("entry ran with arg %d, want 42", arg)
		}
	default:
		t.Fatal("entry did not run")
	}
}
