package activerabbit

import (
	"sync"
	"testing"
	"time"
)

func TestDeduper_SuppressesWithinWindow(t *testing.T) {
	now := time.Now()
	d := NewDeduper(5 * time.Minute)
	d.now = func() time.Time { return now }

	if d.SeenRecently("TimeoutError", "app.go:10", "req-1") {
		t.Error("first occurrence should be admitted")
	}

	now = now.Add(30 * time.Second)
	if !d.SeenRecently("TimeoutError", "app.go:10", "req-1") {
		t.Error("second occurrence within the window should be suppressed")
	}

	now = now.Add(10 * time.Minute)
	if d.SeenRecently("TimeoutError", "app.go:10", "req-1") {
		t.Error("occurrence after the window elapsed should be admitted again")
	}
}

func TestDeduper_SuppressionDoesNotExtendWindow(t *testing.T) {
	now := time.Now()
	d := NewDeduper(time.Minute)
	d.now = func() time.Time { return now }

	d.SeenRecently("E", "f", "")

	// Hammer it just inside the window; suppressed hits must not refresh
	// the recorded time.
	now = now.Add(50 * time.Second)
	if !d.SeenRecently("E", "f", "") {
		t.Fatal("want suppression inside window")
	}

	now = now.Add(20 * time.Second) // 70s after the admit
	if d.SeenRecently("E", "f", "") {
		t.Error("window should be measured from the admitted occurrence")
	}
}

func TestDeduper_DistinctSignaturesAdmitted(t *testing.T) {
	d := NewDeduper(5 * time.Minute)

	if d.SeenRecently("TimeoutError", "app.go:10", "req-1") {
		t.Error("first signature should be admitted")
	}

	cases := []struct {
		name  string
		class string
		frame string
		corr  string
	}{
		{"different class", "ConnError", "app.go:10", "req-1"},
		{"different frame", "TimeoutError", "app.go:99", "req-1"},
		{"different correlation", "TimeoutError", "app.go:10", "req-2"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if d.SeenRecently(tt.class, tt.frame, tt.corr) {
				t.Error("distinct signature should be admitted")
			}
		})
	}
}

func TestDeduper_ZeroWindowDisables(t *testing.T) {
	d := NewDeduper(0)

	for i := 0; i < 5; i++ {
		if d.SeenRecently("E", "f", "c") {
			t.Fatal("disabled deduper must always admit")
		}
	}
	if n := d.size(); n != 0 {
		t.Errorf("disabled deduper kept %d entries, want 0", n)
	}
}

func TestDeduper_NegativeWindowDisables(t *testing.T) {
	d := NewDeduper(-1)

	if d.SeenRecently("E", "f", "c") || d.SeenRecently("E", "f", "c") {
		t.Error("negative window must disable suppression")
	}
}

func TestDeduper_PrunesExpiredEntries(t *testing.T) {
	now := time.Now()
	d := NewDeduper(time.Minute)
	d.now = func() time.Time { return now }

	d.SeenRecently("A", "f", "")
	d.SeenRecently("B", "f", "")
	d.SeenRecently("C", "f", "")
	if n := d.size(); n != 3 {
		t.Fatalf("size = %d, want 3", n)
	}

	now = now.Add(2 * time.Minute)
	d.SeenRecently("D", "f", "")

	// The three expired signatures are gone; only D remains.
	if n := d.size(); n != 1 {
		t.Errorf("size after prune = %d, want 1", n)
	}
}

func TestDeduper_ConcurrentSameSignatureAdmitsOnce(t *testing.T) {
	d := NewDeduper(time.Hour)

	const goroutines = 64
	var wg sync.WaitGroup
	admitted := make(chan struct{}, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !d.SeenRecently("E", "f", "c") {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	if n := len(admitted); n != 1 {
		t.Errorf("%d concurrent occurrences admitted, want exactly 1", n)
	}
}
