package compiledriver

import (
	"sync"
	"testing"
)

func TestAtomicIntConcurrentIncrement(t *testing.T) {
	var counter atomicInt
	var wg sync.WaitGroup
	wg.Add(100)
	for i := 0; i < 100; i++ {
		go func() {
			defer wg.Done()
			counter.increment()
		}()
	}
	wg.Wait()
	if got := counter.load(); got != 100 {
		t.Fatalf("counter = %d, want 100", got)
	}
}

func TestAtomicStringListPreservesAppendedValues(t *testing.T) {
	var list atomicStringList
	list.append("a")
	list.append("b")
	if got := list.list(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("got %v", got)
	}
}

func TestAtomicStringSetDedups(t *testing.T) {
	set := newAtomicStringSet()
	set.add("x")
	set.add("x")
	set.add("y")
	got := set.list()
	if len(got) != 2 {
		t.Fatalf("expected 2 deduped entries, got %v", got)
	}
}
