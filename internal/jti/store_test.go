package jti

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/agentmint-dev/agentmint/internal/errors"
)

func futureExp() int64 {
	return time.Now().Unix() + 300
}

func TestFirstJTISucceeds(t *testing.T) {
	store := New()
	if err := store.CheckAndInsert("jti-1", futureExp()); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
}

func TestDuplicateJTIRejected(t *testing.T) {
	store := New()
	exp := futureExp()
	if err := store.CheckAndInsert("jti-1", exp); err != nil {
		t.Fatal(err)
	}
	err := store.CheckAndInsert("jti-1", exp)
	if err == nil {
		t.Fatal("duplicate accepted")
	}
	if err.(*errors.AppError).Code != errors.CodeReplayDetected {
		t.Errorf("expected replay, got %v", err)
	}
}

func TestDifferentJTIsBothSucceed(t *testing.T) {
	store := New()
	exp := futureExp()
	if err := store.CheckAndInsert("jti-1", exp); err != nil {
		t.Fatal(err)
	}
	if err := store.CheckAndInsert("jti-2", exp); err != nil {
		t.Fatal(err)
	}
}

func TestCapacityLimitReturnsUnavailable(t *testing.T) {
	store := NewWithCapacity(2)
	exp := futureExp()
	store.CheckAndInsert("jti-1", exp)
	store.CheckAndInsert("jti-2", exp)

	err := store.CheckAndInsert("jti-3", exp)
	if err == nil {
		t.Fatal("insert above capacity accepted")
	}
	if err.(*errors.AppError).Code != errors.CodeServiceUnavailable {
		t.Errorf("expected unavailable, got %v", err)
	}
}

func TestExpiredEntriesEvictedBeforeCapacityCheck(t *testing.T) {
	store := NewWithCapacity(1)
	past := time.Now().Unix() - 1
	if err := store.CheckAndInsert("jti-old", past); err != nil {
		t.Fatal(err)
	}
	// The store is at capacity with one dead entry; the next insert must
	// evict it and succeed.
	if err := store.CheckAndInsert("jti-new", futureExp()); err != nil {
		t.Fatalf("insert after expiry failed: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("len = %d, want 1", store.Len())
	}
}

func TestConcurrentSameJTIExactlyOneWins(t *testing.T) {
	store := New()
	exp := futureExp()

	const goroutines = 50
	var wg sync.WaitGroup
	results := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.CheckAndInsert("contested", exp)
		}()
	}
	wg.Wait()
	close(results)

	var ok, replays int
	for err := range results {
		if err == nil {
			ok++
		} else if err.(*errors.AppError).Code == errors.CodeReplayDetected {
			replays++
		} else {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("winners = %d, want exactly 1", ok)
	}
	if replays != goroutines-1 {
		t.Errorf("replays = %d, want %d", replays, goroutines-1)
	}
}

func TestConcurrentDistinctJTIsAllSucceed(t *testing.T) {
	store := New()
	exp := futureExp()

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- store.CheckAndInsert(fmt.Sprintf("jti-%d", n), exp)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("insert failed: %v", err)
		}
	}
	if store.Len() != 100 {
		t.Errorf("len = %d, want 100", store.Len())
	}
}
