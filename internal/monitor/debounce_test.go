package monitor

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedDebouncerCoalescesRapidTriggers(t *testing.T) {
	var mu sync.Mutex
	fired := make(map[string]int)

	d := NewKeyedDebouncer(50*time.Millisecond, func(key string) {
		mu.Lock()
		fired[key]++
		mu.Unlock()
	})

	for i := 0; i < 10; i++ {
		d.Trigger("/a")
	}
	d.Trigger("/b")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := fired["/a"] == 1 && fired["/b"] == 1
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if fired["/a"] != 1 {
		t.Errorf("key /a fired %d times, want 1", fired["/a"])
	}
	if fired["/b"] != 1 {
		t.Errorf("key /b fired %d times, want 1", fired["/b"])
	}
}

func TestKeyedDebouncerCancelPreventsFiring(t *testing.T) {
	var mu sync.Mutex
	count := 0

	d := NewKeyedDebouncer(30*time.Millisecond, func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	d.Trigger("/a")
	d.Cancel()

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("canceled action fired %d times", count)
	}
}
