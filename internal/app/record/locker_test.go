package record

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocker_SerializesSameKey(t *testing.T) {
	locker := NewLocker()

	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("ana@example.com")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.Equal(t, 0, locker.size())
}

func TestLocker_IndependentKeys(t *testing.T) {
	locker := NewLocker()

	unlockA := locker.Lock("a@example.com")
	done := make(chan struct{})
	go func() {
		unlock := locker.Lock("b@example.com")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on an unrelated key blocked")
	}
	unlockA()
	assert.Equal(t, 0, locker.size())
}
