package scheduler

import (
	"math/rand"
	"testing"
	"time"
)

var testLadder = []time.Duration{
	130 * time.Millisecond, 260 * time.Millisecond, 520 * time.Millisecond,
	1040 * time.Millisecond, 2080 * time.Millisecond,
}

func TestCentralQueuePicksFirstFree(t *testing.T) {
	slots := []Slot{{Free: false}, {Free: true}, {Free: true}}
	id, ok := CentralQueue(slots, testLadder, 100*time.Millisecond, nil)
	if !ok || id != 2 {
		t.Fatalf("expected slot 2, got %d ok=%v", id, ok)
	}
}

func TestCentralQueueNoneFree(t *testing.T) {
	slots := []Slot{{Free: false}, {Free: false}}
	_, ok := CentralQueue(slots, testLadder, 100*time.Millisecond, nil)
	if ok {
		t.Fatalf("expected no free slot")
	}
}

func TestTagsMapsRungToSlot(t *testing.T) {
	slots := make([]Slot, 5)
	for i := range slots {
		slots[i] = Slot{Free: true}
	}
	id, ok := Tags(slots, testLadder, 260*time.Millisecond, nil)
	if !ok || id != 2 {
		t.Fatalf("expected rung 2 -> slot 2, got %d ok=%v", id, ok)
	}
}

func TestTagsCapsAtSlotCount(t *testing.T) {
	slots := []Slot{{Free: true}, {Free: true}}
	id, ok := Tags(slots, testLadder, 2080*time.Millisecond, nil)
	if !ok || id != 2 {
		t.Fatalf("expected capped slot 2, got %d ok=%v", id, ok)
	}
}

func TestExpressCheckoutReservesSlotOne(t *testing.T) {
	slots := []Slot{{Free: true}, {Free: true}, {Free: true}}
	id, ok := ExpressCheckout(slots, testLadder, 500*time.Millisecond, nil)
	if !ok || id != 1 {
		t.Fatalf("expected slot 1 for short candidate, got %d ok=%v", id, ok)
	}

	slots[0] = Slot{Free: false}
	_, ok = ExpressCheckout(slots, testLadder, 500*time.Millisecond, nil)
	if ok {
		t.Fatalf("short candidate must not spill onto slots 2..N")
	}
}

func TestExpressCheckoutLongCandidateUsesRemainingSlots(t *testing.T) {
	slots := []Slot{{Free: false}, {Free: true}, {Free: true}}
	id, ok := ExpressCheckout(slots, testLadder, 2*time.Second, nil)
	if !ok || id != 2 {
		t.Fatalf("expected slot 2, got %d ok=%v", id, ok)
	}
}

func TestPreemptiveFallsBackToFreeSlotFirst(t *testing.T) {
	slots := []Slot{{Free: false}, {Free: true}}
	id, ok := Preemptive(slots, testLadder, 500*time.Millisecond, nil)
	if !ok || id != 2 {
		t.Fatalf("expected the free slot 2, got %d ok=%v", id, ok)
	}
}

func TestPreemptiveForcesRandomSlotWhenShortAndFull(t *testing.T) {
	slots := []Slot{{Free: false}, {Free: false}}
	rng := rand.New(rand.NewSource(42))
	id, ok := Preemptive(slots, testLadder, 500*time.Millisecond, rng)
	if !ok || id < 1 || id > 2 {
		t.Fatalf("expected a forced slot in range, got %d ok=%v", id, ok)
	}
}

func TestPreemptiveDoesNotForceWhenCandidateLong(t *testing.T) {
	slots := []Slot{{Free: false}, {Free: false}}
	_, ok := Preemptive(slots, testLadder, 2*time.Second, nil)
	if ok {
		t.Fatalf("long candidates should not force preemption")
	}
}

func TestSchedulerTotality(t *testing.T) {
	policies := []Policy{CentralQueue, Tags, ExpressCheckout, Preemptive}
	for _, p := range policies {
		slots := []Slot{{Free: true}, {Free: true}, {Free: true}}
		for _, candidate := range testLadder {
			if _, ok := p(slots, testLadder, candidate, rand.New(rand.NewSource(1))); !ok {
				t.Fatalf("policy failed totality with a free slot available, candidate=%v", candidate)
			}
		}
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"central_queue", "tags", "express_checkout", "preemptive"} {
		if _, ok := ByName(name); !ok {
			t.Fatalf("expected policy %q to resolve", name)
		}
	}
	if _, ok := ByName("nonsense"); ok {
		t.Fatalf("expected unknown policy name to fail")
	}
}
