package gate

import (
	"sync"
	"testing"
)

func TestTryAcquireExcludesSecondHolder(t *testing.T) {
	var g Gate

	if !g.TryAcquire() {
		t.Fatalf("first TryAcquire should succeed on a fresh gate")
	}
	if g.TryAcquire() {
		t.Fatalf("second TryAcquire should fail while the permit is held")
	}
	g.Release()
	if !g.TryAcquire() {
		t.Fatalf("TryAcquire should succeed again after Release")
	}
}

func TestConcurrentTryAcquireAdmitsExactlyOne(t *testing.T) {
	var g Gate
	const attempts = 64

	admitted := int32(0)
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			if g.TryAcquire() {
				admitted++
			}
		}()
	}
	wg.Wait()

	if admitted != 1 {
		t.Fatalf("expected exactly 1 admitted out of %d concurrent attempts, got %d", attempts, admitted)
	}
}
