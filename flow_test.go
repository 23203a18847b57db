// Copyright 2014 The Go Authors.
// See https://code.google.com/p/go/source/browse/CONTRIBUTORS
// Licensed under the same terms as Go itself:
// https://code.google.com/p/go/source/browse/LICENSE

package http2

import (
	"testing"
	"time"
)

func TestFlowAcquireWithinCredit(t *testing.T) {
	f := NewFlow(100)
	if !f.Acquire(60) {
		t.Fatal("Acquire(60) on an open window with 100 credit failed")
	}
	if got := f.Available(); got != 40 {
		t.Fatalf("Available = %d after acquiring 60 of 100, want 40", got)
	}
}

func TestFlowAcquireBlocksUntilAdd(t *testing.T) {
	f := NewFlow(10)

	acquired := make(chan bool, 1)
	go func() { acquired <- f.Acquire(25) }()

	select {
	case <-acquired:
		t.Fatal("Acquire(25) returned with only 10 bytes of credit")
	case <-time.After(20 * time.Millisecond):
	}

	f.Add(15) // 10 + 15 = exactly enough
	select {
	case ok := <-acquired:
		if !ok {
			t.Fatal("Acquire reported a closed window after Add supplied credit")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire still blocked after enough credit arrived")
	}
	if got := f.Available(); got != 0 {
		t.Fatalf("Available = %d after the blocked acquire drained it, want 0", got)
	}
}

func TestFlowCloseUnblocksWaiters(t *testing.T) {
	f := NewFlow(0)

	results := make(chan bool, 2)
	go func() { results <- f.Acquire(1) }()
	go func() { results <- f.Acquire(1 << 20) }()

	time.Sleep(20 * time.Millisecond)
	f.Close()

	for i := 0; i < 2; i++ {
		select {
		case ok := <-results:
			if ok {
				t.Error("Acquire on a closed window reported success")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Close left a waiter blocked")
		}
	}

	if f.Acquire(1) {
		t.Error("Acquire after Close reported success")
	}
}

func TestFlowAddOverflow(t *testing.T) {
	f := NewFlow(1)
	if !f.Add(1<<31 - 2) {
		t.Fatal("Add up to exactly 2^31-1 rejected")
	}
	if f.Add(1) {
		t.Fatal("Add past 2^31-1 accepted; the caller would miss a FLOW_CONTROL_ERROR")
	}
	if got := f.Available(); got != 1<<31-1 {
		t.Fatalf("Available = %d after rejected Add, want %d", got, int32(1<<31-1))
	}
}

func TestFlowNegativeAddShrinksWindow(t *testing.T) {
	f := NewFlow(100)
	if !f.Add(-70) {
		t.Fatal("negative Add rejected")
	}
	if got := f.Available(); got != 30 {
		t.Fatalf("Available = %d after Add(-70), want 30", got)
	}
}
