package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryFetchMissThenHit(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()

	key := []byte{0x01, 0x02}

	fetch := m.Fetch(context.Background(), key, nil)
	<-fetch.Done()
	if data, err := fetch.Result(); data != nil || err != nil {
		t.Fatalf("expected miss, got (%v, %v)", data, err)
	}

	m.Cache(key, []byte("payload"), time.Minute)

	fetch = m.Fetch(context.Background(), key, nil)
	<-fetch.Done()
	data, err := fetch.Result()
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("fetch returned %q, want payload", data)
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()

	key := []byte{0x01}
	m.Cache(key, []byte("short-lived"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	fetch := m.Fetch(context.Background(), key, nil)
	<-fetch.Done()
	if data, _ := fetch.Result(); data != nil {
		t.Errorf("expired entry returned %q, want miss", data)
	}
}

func TestMemorySweep(t *testing.T) {
	m := NewMemory(20 * time.Millisecond)
	defer m.Close()

	m.Cache([]byte{0x01}, []byte("a"), 5*time.Millisecond)
	m.Cache([]byte{0x02}, []byte("b"), time.Minute)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && m.Len() != 1 {
		time.Sleep(10 * time.Millisecond)
	}
	if got := m.Len(); got != 1 {
		t.Errorf("Len() = %d after sweep, want 1", got)
	}
}

func TestMemoryValueIsolation(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()

	key := []byte{0x01}
	original := []byte("payload")
	m.Cache(key, original, time.Minute)
	original[0] = 'X'

	fetch := m.Fetch(context.Background(), key, nil)
	<-fetch.Done()
	data, _ := fetch.Result()
	if string(data) != "payload" {
		t.Errorf("stored value shares memory with caller: %q", data)
	}

	// Mutating the fetched copy must not affect the stored value
	data[0] = 'Y'
	fetch = m.Fetch(context.Background(), key, nil)
	<-fetch.Done()
	data, _ = fetch.Result()
	if string(data) != "payload" {
		t.Errorf("fetched value shares memory with the store: %q", data)
	}
}

func TestMemoryZeroTTL(t *testing.T) {
	m := NewMemory(time.Minute)
	defer m.Close()

	m.Cache([]byte{0x01}, []byte("dropped"), 0)
	if m.Len() != 0 {
		t.Error("zero-TTL write should be dropped")
	}
}

func TestMemoryClose(t *testing.T) {
	m := NewMemory(time.Minute)

	if err := m.CheckHealth(context.Background()); err != nil {
		t.Errorf("CheckHealth() failed while open: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	// Idempotent
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}

	if err := m.CheckHealth(context.Background()); err == nil {
		t.Error("CheckHealth() should fail after Close()")
	}

	fetch := m.Fetch(context.Background(), []byte{0x01}, nil)
	<-fetch.Done()
	if _, err := fetch.Result(); err == nil {
		t.Error("Fetch() should fail after Close()")
	}

	// Writes after close are dropped silently
	m.Cache([]byte{0x01}, []byte("late"), time.Minute)
}
