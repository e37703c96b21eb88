package insight

import (
	"errors"
	"testing"
	"time"
)

func TestCacheHitWithinTTL(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache()
	c.now = func() time.Time { return clock }

	calls := 0
	compute := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	if v, err := c.GetOrCompute("k", time.Hour, compute); err != nil || v != 1 {
		t.Fatalf("first call = %v, %v", v, err)
	}

	clock = clock.Add(59 * time.Minute)
	if v, err := c.GetOrCompute("k", time.Hour, compute); err != nil || v != 1 {
		t.Fatalf("cached call = %v, %v", v, err)
	}
	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
}

func TestCacheExpiryRecomputes(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache()
	c.now = func() time.Time { return clock }

	calls := 0
	compute := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	c.GetOrCompute("k", time.Hour, compute)

	clock = clock.Add(time.Hour)
	if v, _ := c.GetOrCompute("k", time.Hour, compute); v != 2 {
		t.Errorf("post-expiry value = %v, want 2", v)
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2", calls)
	}
}

func TestCacheNeverStoresErrors(t *testing.T) {
	c := NewCache()
	boom := errors.New("fetch failed")

	calls := 0
	_, err := c.GetOrCompute("k", time.Hour, func() (interface{}, error) {
		calls++
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if c.Len() != 0 {
		t.Error("failed computation was cached")
	}

	// The next call must retry, not serve the failure.
	v, err := c.GetOrCompute("k", time.Hour, func() (interface{}, error) {
		calls++
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Errorf("retry = %v, %v", v, err)
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2", calls)
	}
}

func TestCacheInvalidateAll(t *testing.T) {
	c := NewCache()
	c.GetOrCompute("a", time.Hour, func() (interface{}, error) { return 1, nil })
	c.GetOrCompute("b", time.Hour, func() (interface{}, error) { return 2, nil })

	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("len after invalidation = %d, want 0", c.Len())
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		fn   string
		args []interface{}
		want string
	}{
		{"daily_credits", nil, "daily_credits()"},
		{"daily_credits", []interface{}{30}, "daily_credits(30)"},
		{"cost_facts", []interface{}{30, "user"}, "cost_facts(30,user)"},
	}
	for _, tt := range tests {
		if got := Key(tt.fn, tt.args...); got != tt.want {
			t.Errorf("Key(%s, %v) = %s, want %s", tt.fn, tt.args, got, tt.want)
		}
	}
}

func TestFetchTyped(t *testing.T) {
	c := NewCache()

	got, err := Fetch(c, "nums", time.Hour, func() ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %v, want 3 elements", got)
	}

	// Second fetch comes from the cache with the same type.
	again, err := Fetch(c, "nums", time.Hour, func() ([]int, error) {
		t.Fatal("compute ran on a warm cache")
		return nil, nil
	})
	if err != nil || len(again) != 3 {
		t.Errorf("cached fetch = %v, %v", again, err)
	}
}
